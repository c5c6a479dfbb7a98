// Package followup prepares the afternoon re-attempt list: contacts not yet
// worked according to the call log, restricted to one segment.
package followup

import (
	"github.com/sells-group/leadsplit/internal/keys"
	"github.com/sells-group/leadsplit/internal/model"
)

// Options binds the columns used by Reconcile.
type Options struct {
	ContactKey    string
	SegmentColumn string // default model.ColSegment
	LogKey        string
	Target        model.Segment // default FLEET_OWNER
}

// Result is the pending contact table plus audit counts.
type Result struct {
	Table *model.Table

	// WorkedKeys is the number of distinct normalized keys in the call log.
	WorkedKeys     int
	// RemovedWorked counts contact rows dropped because they were already worked.
	RemovedWorked  int
	// RemovedSegment counts pending rows dropped for being outside Target.
	RemovedSegment int
}

// Reconcile drops every synchronized contact whose key appears in the call
// log, then keeps only the target segment. Neither input is modified.
func Reconcile(contacts, callLog *model.Table, opts Options) (*Result, error) {
	if opts.SegmentColumn == "" {
		opts.SegmentColumn = model.ColSegment
	}
	if opts.Target == "" {
		opts.Target = model.SegmentFleetOwner
	}
	if err := contacts.Require("contacts", opts.ContactKey, opts.SegmentColumn); err != nil {
		return nil, err
	}
	if err := callLog.Require("call log", opts.LogKey); err != nil {
		return nil, err
	}

	worked := keys.NewSet(callLog.Column(opts.LogKey))
	res := &Result{WorkedKeys: len(worked)}

	res.Table = contacts.Filter(func(i int) bool {
		if worked.Contains(contacts.Get(i, opts.ContactKey)) {
			res.RemovedWorked++
			return false
		}
		if model.ParseSegment(contacts.Get(i, opts.SegmentColumn)) != opts.Target {
			res.RemovedSegment++
			return false
		}
		return true
	})
	return res, nil
}
