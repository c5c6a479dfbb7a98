// Package join projects the owner and segment decided on the account table
// onto the contact table through the normalized contract key.
package join

import (
	"github.com/sells-group/leadsplit/internal/keys"
	"github.com/sells-group/leadsplit/internal/model"
)

// DefaultMatchRateThreshold is the match rate below which key formats are
// assumed to disagree between the two tables.
const DefaultMatchRateThreshold = 0.95

// Options binds the columns used by Sync.
type Options struct {
	AccountKey     string
	AccountOwner   string
	AccountSegment string
	ContactKey     string

	// ContactOwner is an optional owner column on the contact table, used for
	// rows with no matching account.
	ContactOwner string

	// MatchRateThreshold below which a LowMatchRate warning is raised.
	MatchRateThreshold float64
}

// Result is the synchronized contact table plus match statistics.
type Result struct {
	Table               *model.Table
	Matched             int
	Unmatched           int
	DistinctAccountKeys int
	MatchedAccountKeys  int
	MatchRate           float64
	Warning             *model.Warning
}

type projection struct {
	owner   string
	segment string
}

// Sync returns a copy of contacts with model.ColOwnerFinal and
// model.ColSegment filled from the matching account. Unmatched rows get
// model.Unmatched (or the contact's own owner when configured) and the
// INDEPENDENT segment.
func Sync(accounts, contacts *model.Table, opts Options) (*Result, error) {
	if err := accounts.Require("accounts", opts.AccountKey, opts.AccountOwner, opts.AccountSegment); err != nil {
		return nil, err
	}
	if err := contacts.Require("contacts", opts.ContactKey, opts.ContactOwner); err != nil {
		return nil, err
	}
	threshold := opts.MatchRateThreshold
	if threshold <= 0 {
		threshold = DefaultMatchRateThreshold
	}

	lookup := make(map[string]projection, accounts.Len())
	for i := range accounts.Rows {
		k := keys.Normalize(accounts.Get(i, opts.AccountKey))
		if k == "" {
			continue
		}
		if _, dup := lookup[k]; dup {
			continue
		}
		lookup[k] = projection{
			owner:   accounts.Get(i, opts.AccountOwner),
			segment: accounts.Get(i, opts.AccountSegment),
		}
	}

	out := contacts.Clone()
	ownerCol := out.AddColumn(model.ColOwnerFinal)
	segCol := out.AddColumn(model.ColSegment)

	res := &Result{Table: out, DistinctAccountKeys: len(lookup)}
	found := make(map[string]struct{})
	for i, row := range out.Rows {
		k := keys.Normalize(out.Get(i, opts.ContactKey))
		p, ok := lookup[k]
		if ok {
			row[ownerCol] = p.owner
			row[segCol] = string(model.ParseSegment(p.segment))
			found[k] = struct{}{}
			res.Matched++
			continue
		}
		row[ownerCol] = model.Unmatched
		if opts.ContactOwner != "" {
			if own := out.Get(i, opts.ContactOwner); own != "" {
				row[ownerCol] = own
			}
		}
		row[segCol] = string(model.SegmentIndependent)
		res.Unmatched++
	}

	res.MatchedAccountKeys = len(found)
	if res.DistinctAccountKeys > 0 {
		res.MatchRate = float64(res.MatchedAccountKeys) / float64(res.DistinctAccountKeys)
	}
	if res.MatchRate < threshold {
		w := model.NewWarning(model.WarnLowMatchRate,
			"only %.1f%% of account keys were found in the contact table (threshold %.0f%%); check that %q and %q use the same key format",
			res.MatchRate*100, threshold*100, opts.AccountKey, opts.ContactKey)
		res.Warning = &w
	}
	return res, nil
}
