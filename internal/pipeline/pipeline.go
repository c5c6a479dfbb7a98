// Package pipeline composes the classifier, balancer, synchronizer, and
// verticalizer into the morning and afternoon flows.
package pipeline

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsplit/internal/audit"
	"github.com/sells-group/leadsplit/internal/balance"
	"github.com/sells-group/leadsplit/internal/followup"
	"github.com/sells-group/leadsplit/internal/join"
	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/profile"
	"github.com/sells-group/leadsplit/internal/store"
	"github.com/sells-group/leadsplit/internal/vertical"
)

// Columns binds table columns to their meaning. Priority, ContactOwner,
// Retain, and LogKey are optional except that LogKey is required by the
// afternoon flow.
type Columns struct {
	AccountKey   string
	TaxID        string
	Owner        string
	Priority     string
	ContactKey   string
	ContactOwner string
	Phones       []string
	Retain       []string
	LogKey       string
}

// Settings configures one Pipeline.
type Settings struct {
	Columns            Columns
	ReservedTokens     []string
	MaxAgents          int
	Relevel            bool
	RelevelFactor      int
	MatchRateThreshold float64
	Rand               *rand.Rand
}

// Input is the set of tables already parsed by the I/O layer.
type Input struct {
	Accounts *model.Table
	Contacts *model.Table
	CallLog  *model.Table
}

// Result is the caller-owned outcome of one flow.
type Result struct {
	RunID string
	Flow  model.Flow
	// Accounts is the balanced mailing table with segment and score columns.
	Accounts *model.Table
	// Contacts is the synchronized dialer table; pending rows only in the
	// afternoon flow.
	Contacts *model.Table
	Phones   *vertical.Result
	Report   model.Report
}

// Pipeline runs flows and, when a store is attached, records them.
type Pipeline struct {
	settings Settings
	balancer *balance.Balancer
	store    store.Store
}

// New creates a Pipeline. st may be nil to skip run history.
func New(s Settings, st store.Store) *Pipeline {
	return &Pipeline{
		settings: s,
		balancer: balance.New(balance.Options{
			OwnerColumn:    s.Columns.Owner,
			PriorityColumn: s.Columns.Priority,
			ReservedTokens: s.ReservedTokens,
			MaxAgents:      s.MaxAgents,
			Relevel:        s.Relevel,
			RelevelFactor:  s.RelevelFactor,
			Rand:           s.Rand,
		}),
		store: st,
	}
}

// Execute runs flow on in and records the run under source. Store failures
// are logged and never fail the flow.
func (p *Pipeline) Execute(ctx context.Context, flow model.Flow, in Input, source string) (*Result, error) {
	log := zap.L().With(zap.String("flow", string(flow)), zap.String("source", source))

	var run *model.Run
	if p.store != nil {
		r, err := p.store.CreateRun(ctx, flow, source)
		if err != nil {
			log.Warn("pipeline: failed to record run", zap.Error(err))
		} else {
			run = r
			log = log.With(zap.String("run_id", run.ID))
		}
	}

	var (
		res *Result
		err error
	)
	switch flow {
	case model.FlowMorning:
		res, err = p.Morning(in)
	case model.FlowAfternoon:
		res, err = p.Afternoon(in)
	default:
		err = eris.Errorf("pipeline: unknown flow %q", flow)
	}

	if err != nil {
		log.Error("pipeline: run failed", zap.Error(err))
		if run != nil {
			if ferr := p.store.FailRun(ctx, run.ID, err); ferr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(ferr))
			}
		}
		return nil, err
	}

	if run != nil {
		res.RunID = run.ID
		if cerr := p.store.CompleteRun(ctx, run.ID, &res.Report); cerr != nil {
			log.Warn("pipeline: failed to record run result", zap.Error(cerr))
		}
	}
	log.Info("pipeline: run complete",
		zap.Int("accounts", res.Report.Accounts),
		zap.Int("phone_records", res.Report.PhoneRecords),
		zap.Int("warnings", len(res.Report.Warnings)),
	)
	return res, nil
}

// Morning classifies and balances the accounts, projects owner and segment
// onto the contacts, and verticalizes their phones.
func (p *Pipeline) Morning(in Input) (*Result, error) {
	res, synced, err := p.prepare(in, model.FlowMorning)
	if err != nil {
		return nil, err
	}
	res.Contacts = synced
	if err := p.verticalize(res, synced); err != nil {
		return nil, err
	}
	return res, nil
}

// Afternoon runs the morning preparation, removes contacts already worked
// according to the call log, keeps fleet owners, and verticalizes the rest.
func (p *Pipeline) Afternoon(in Input) (*Result, error) {
	if in.CallLog == nil {
		return nil, model.NewCondition(model.CodeLogParseError, "afternoon flow requires a call log")
	}
	if p.settings.Columns.LogKey == "" {
		return nil, model.NewCondition(model.CodeMissingColumn, "no call log key column selected")
	}

	res, synced, err := p.prepare(in, model.FlowAfternoon)
	if err != nil {
		return nil, err
	}

	fu, err := followup.Reconcile(synced, in.CallLog, followup.Options{
		ContactKey: p.settings.Columns.ContactKey,
		LogKey:     p.settings.Columns.LogKey,
		Target:     model.SegmentFleetOwner,
	})
	if err != nil {
		return nil, err
	}
	res.Report.WorkedKeys = fu.WorkedKeys
	res.Report.RemovedWorked = fu.RemovedWorked
	res.Report.RemovedSegment = fu.RemovedSegment
	zap.L().Info("pipeline: afternoon reconciliation",
		zap.Int("worked_keys", fu.WorkedKeys),
		zap.Int("removed_worked", fu.RemovedWorked),
		zap.Int("removed_segment", fu.RemovedSegment),
		zap.Int("pending", fu.Table.Len()),
	)

	res.Contacts = fu.Table
	if err := p.verticalize(res, fu.Table); err != nil {
		return nil, err
	}
	return res, nil
}

// prepare validates bindings, then classifies, balances, and synchronizes.
func (p *Pipeline) prepare(in Input, flow model.Flow) (*Result, *model.Table, error) {
	cols := p.settings.Columns
	if in.Accounts == nil || in.Contacts == nil {
		return nil, nil, eris.New("pipeline: accounts and contacts tables are required")
	}
	if err := in.Accounts.Require("accounts", cols.AccountKey, cols.TaxID, cols.Owner, cols.Priority); err != nil {
		return nil, nil, err
	}
	if len(cols.Phones) == 0 {
		return nil, nil, model.NewCondition(model.CodeMissingColumn, "no phone columns selected")
	}
	contactCols := append([]string{cols.ContactKey, cols.ContactOwner}, cols.Phones...)
	contactCols = append(contactCols, cols.Retain...)
	if err := in.Contacts.Require("contacts", contactCols...); err != nil {
		return nil, nil, err
	}

	res := &Result{Flow: flow}
	res.Report.Flow = flow
	res.Report.Accounts = in.Accounts.Len()
	res.Report.Contacts = in.Contacts.Len()

	classified := in.Accounts.Clone()
	if blank := profile.Annotate(classified, cols.TaxID, model.ColSegment); blank > 0 {
		res.Report.Warnings = append(res.Report.Warnings, model.NewWarning(model.WarnMissingTaxID,
			"%d account(s) have no tax ID in %q and were classified %s", blank, cols.TaxID, model.SegmentIndependent))
	}

	bal, err := p.balancer.Balance(classified)
	if err != nil {
		return nil, nil, err
	}
	if cols.Priority != "" {
		for i, s := range bal.Scores {
			bal.Table.Set(i, model.ColPriorityScore, strconv.Itoa(s))
		}
	}
	res.Accounts = bal.Table
	res.Report.Agents = bal.Agents
	res.Report.OrphansFilled = bal.Orphans
	res.Report.Relevelled = bal.Moves
	res.Report.InitialLoads = audit.Loads(bal.InitialLoads)
	res.Report.FinalLoads = audit.Loads(bal.FinalLoads)
	res.Report.AgentSegment = audit.CrossTabulate(bal.Table, cols.Owner, model.ColSegment)
	if cols.Priority != "" {
		ct := audit.CrossTabulate(bal.Table, cols.Owner, cols.Priority)
		res.Report.AgentPriority = &ct
	}
	if bal.Orphans == 0 {
		zap.L().Info("pipeline: complete base, no orphans", zap.Int("agents", len(bal.Agents)))
	} else {
		zap.L().Info("pipeline: orphans redistributed",
			zap.Int("orphans", bal.Orphans),
			zap.Int("agents", len(bal.Agents)),
			zap.Int("moves", bal.Moves),
		)
	}

	sy, err := join.Sync(bal.Table, in.Contacts, join.Options{
		AccountKey:         cols.AccountKey,
		AccountOwner:       cols.Owner,
		AccountSegment:     model.ColSegment,
		ContactKey:         cols.ContactKey,
		ContactOwner:       cols.ContactOwner,
		MatchRateThreshold: p.settings.MatchRateThreshold,
	})
	if err != nil {
		return nil, nil, err
	}
	res.Report.MatchRate = sy.MatchRate
	res.Report.UnmatchedRows = sy.Unmatched
	if sy.Warning != nil {
		zap.L().Warn("pipeline: low match rate", zap.Float64("match_rate", sy.MatchRate))
		res.Report.Warnings = append(res.Report.Warnings, *sy.Warning)
	}
	return res, sy.Table, nil
}

func (p *Pipeline) verticalize(res *Result, contacts *model.Table) error {
	cols := p.settings.Columns
	retain := append([]string(nil), cols.Retain...)
	if cols.Priority != "" && contacts.Has(cols.Priority) {
		retain = append(retain, cols.Priority)
	}

	vr, err := vertical.Verticalize(contacts, vertical.Options{
		KeyColumn:     cols.ContactKey,
		RetainColumns: retain,
		PhoneColumns:  cols.Phones,
	})
	if err != nil {
		return err
	}
	res.Phones = vr
	res.Report.PhoneRecords = len(vr.Records)
	res.Report.InvalidPhones = vr.Invalid
	res.Report.EmptyPhones = vr.Empty
	res.Report.DuplicatePhones = vr.Duplicates
	res.Report.PhoneKinds = make(map[string]int, len(vr.Kinds))
	for k, n := range vr.Kinds {
		res.Report.PhoneKinds[string(k)] = n
	}
	if vr.Invalid > 0 {
		res.Report.Warnings = append(res.Report.Warnings, model.NewWarning(model.WarnInvalidPhones,
			"%d phone value(s) could not be normalized and were dropped", vr.Invalid))
	}
	zap.L().Info("pipeline: phones verticalized",
		zap.Int("records", len(vr.Records)),
		zap.Int("invalid", vr.Invalid),
		zap.Int("empty", vr.Empty),
		zap.Int("duplicates", vr.Duplicates),
	)
	return nil
}
