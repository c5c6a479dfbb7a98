package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsplit/internal/config"
	"github.com/sells-group/leadsplit/internal/export"
	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/pipeline"
	"github.com/sells-group/leadsplit/internal/store"
	"github.com/sells-group/leadsplit/internal/workbook"
)

// flowEnv holds the dependencies shared by every run of a flow.
type flowEnv struct {
	cfg   *config.Config
	store store.Store
}

// initFlow opens the run store and migrates it. A "none" driver yields an
// environment without history.
func initFlow(ctx context.Context, c *config.Config) (*flowEnv, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "migrate store")
		}
	}
	return &flowEnv{cfg: c, store: st}, nil
}

// Close releases the store, if any.
func (e *flowEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initStore creates the run store selected by config.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, c.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		return st, nil
	case "none", "":
		return nil, nil
	default:
		st, err := store.NewSQLite(c.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		return st, nil
	}
}

// pipelineSettings builds per-run engine settings. Each run gets its own
// random source since *rand.Rand is not safe for concurrent use.
func pipelineSettings(c *config.Config) pipeline.Settings {
	seed := c.Balance.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return pipeline.Settings{
		Columns: pipeline.Columns{
			AccountKey:   c.Columns.AccountKey,
			TaxID:        c.Columns.TaxID,
			Owner:        c.Columns.Owner,
			Priority:     c.Columns.Priority,
			ContactKey:   c.Columns.ContactKey,
			ContactOwner: c.Columns.ContactOwner,
			Phones:       c.Columns.Phones,
			Retain:       c.Columns.Retain,
			LogKey:       c.Columns.LogKey,
		},
		ReservedTokens:     c.Balance.ReservedTokens,
		MaxAgents:          c.Balance.MaxAgents,
		Relevel:            c.Balance.Relevel,
		RelevelFactor:      c.Balance.RelevelFactor,
		MatchRateThreshold: c.Sync.MatchRateThreshold,
		Rand:               rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// readWorkbook loads the mailing and dialer sheets of one workbook.
func (e *flowEnv) readWorkbook(name string, data []byte) (pipeline.Input, error) {
	accounts, err := workbook.Read(name, data, workbook.Options{Sheet: e.cfg.Input.MailingSheet})
	if err != nil {
		return pipeline.Input{}, eris.Wrapf(err, "read %s sheet", e.cfg.Input.MailingSheet)
	}
	contacts, err := workbook.Read(name, data, workbook.Options{Sheet: e.cfg.Input.DialerSheet})
	if err != nil {
		return pipeline.Input{}, eris.Wrapf(err, "read %s sheet", e.cfg.Input.DialerSheet)
	}
	return pipeline.Input{Accounts: accounts, Contacts: contacts}, nil
}

// readCallLog loads the call log into in.
func (e *flowEnv) readCallLog(in *pipeline.Input, name string, data []byte) error {
	log, err := workbook.ReadCallLog(name, data, workbook.Options{
		Sheet:   e.cfg.Input.LogSheet,
		Charset: e.cfg.Input.LogCharset,
	})
	if err != nil {
		return err
	}
	in.CallLog = log
	return nil
}

// run executes flow and packages its output bundle in memory.
func (e *flowEnv) run(ctx context.Context, flow model.Flow, in pipeline.Input, source string) (*pipeline.Result, *export.Bundle, error) {
	p := pipeline.New(pipelineSettings(e.cfg), e.store)
	res, err := p.Execute(ctx, flow, in, source)
	if err != nil {
		return nil, nil, err
	}
	b, err := export.Build(ctx, res, export.Options{
		OwnerColumn:    e.cfg.Columns.Owner,
		IncludeMailing: e.cfg.Export.IncludeMailing,
		Concurrency:    e.cfg.Export.Concurrency,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "build export")
	}
	return res, b, nil
}

// outputPath returns the archive path for a run when none was given.
func outputPath(dir string, flow model.Flow, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("leadsplit_%s_%s.zip", flow, at.Format("20060102_150405")))
}

// writeRun writes the bundle to path and prints the run summary.
func writeRun(out io.Writer, res *pipeline.Result, b *export.Bundle, path string) error {
	if err := b.WriteZip(path); err != nil {
		return err
	}
	zap.L().Info("archive written",
		zap.String("path", path),
		zap.Int("files", len(b.Files)),
		zap.String("run_id", res.RunID),
	)
	formatReport(out, &res.Report)
	_, _ = fmt.Fprintf(out, "\nWrote %d files to %s\n", len(b.Files), path)
	return nil
}

// formatReport writes a human-readable run summary to w.
func formatReport(out io.Writer, r *model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Flow:\t%s\n", r.Flow)
	_, _ = fmt.Fprintf(w, "Accounts:\t%d\n", r.Accounts)
	_, _ = fmt.Fprintf(w, "Agents:\t%d\n", len(r.Agents))
	if r.OrphansFilled == 0 {
		_, _ = fmt.Fprintln(w, "Orphans:\tcomplete base")
	} else {
		_, _ = fmt.Fprintf(w, "Orphans:\t%d redistributed\n", r.OrphansFilled)
	}
	if r.Relevelled > 0 {
		_, _ = fmt.Fprintf(w, "Relevelled:\t%d\n", r.Relevelled)
	}
	_, _ = fmt.Fprintf(w, "Match rate:\t%.1f%%\n", r.MatchRate*100)
	_, _ = fmt.Fprintf(w, "Phone records:\t%d\n", r.PhoneRecords)
	_, _ = fmt.Fprintf(w, "Dropped phones:\t%d (%d invalid, %d empty)\n", r.DroppedPhones(), r.InvalidPhones, r.EmptyPhones)
	if r.Flow == model.FlowAfternoon {
		_, _ = fmt.Fprintf(w, "Worked keys:\t%d\n", r.WorkedKeys)
		_, _ = fmt.Fprintf(w, "Removed (worked):\t%d\n", r.RemovedWorked)
		_, _ = fmt.Fprintf(w, "Removed (segment):\t%d\n", r.RemovedSegment)
	}
	_ = w.Flush()

	if len(r.FinalLoads) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "AGENT\tINITIAL\tFINAL")
		_, _ = fmt.Fprintln(w, "-----\t-------\t-----")
		initial := make(map[string]int, len(r.InitialLoads))
		for _, l := range r.InitialLoads {
			initial[l.Agent] = l.Count
		}
		for _, l := range r.FinalLoads {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", l.Agent, initial[l.Agent], l.Count)
		}
		_ = w.Flush()
	}

	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintf(out, "WARNING %s: %s\n", warn.Code, warn.Message)
	}
}

// readInput reads a file from disk for a CLI flow.
func readInput(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, eris.Wrapf(err, "read %s", path)
	}
	return filepath.Base(path), data, nil
}
