// Package export renders a flow result into per-agent workbooks plus an
// audit summary, packaged as a single ZIP archive.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/pipeline"
	"github.com/sells-group/leadsplit/internal/vertical"
	"github.com/sells-group/leadsplit/internal/workbook"
)

const (
	// AuditFile is the name of the audit summary inside every archive.
	AuditFile = "AUDITORIA.yaml"

	// NoOwnerToken replaces an agent name that normalizes to nothing.
	NoOwnerToken = "SEM_CARTEIRA"

	// AfternoonSuffix names the afternoon re-attempt files.
	AfternoonSuffix = "REFORCO_TARDE"

	dialerPrefix  = "DISCADOR"
	mailingPrefix = "MAILING"

	defaultConcurrency = 4
)

// Options configures Build.
type Options struct {
	// OwnerColumn is the owner column of the balanced account table.
	OwnerColumn    string
	IncludeMailing bool
	Concurrency    int
}

// File is one rendered member of the archive.
type File struct {
	Name string
	Rows int
	Data []byte
}

// Bundle is the complete, ordered set of output files of one run.
type Bundle struct {
	Files []File
}

// Names lists the file names in archive order.
func (b *Bundle) Names() []string {
	out := make([]string, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.Name
	}
	return out
}

// Get returns the file called name.
func (b *Bundle) Get(name string) (File, bool) {
	for _, f := range b.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

type job struct {
	name  string
	sheet string
	table *model.Table
}

// Build renders res into workbooks. Nothing is written to disk; a failure
// in any file fails the whole bundle.
func Build(ctx context.Context, res *pipeline.Result, opts Options) (*Bundle, error) {
	if res == nil || res.Phones == nil {
		return nil, eris.New("export: result has no phone records")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	var jobs []job
	switch res.Flow {
	case model.FlowAfternoon:
		jobs = afternoonJobs(res.Phones)
	default:
		jobs = dialerJobs(res.Phones)
		if opts.IncludeMailing && res.Accounts != nil {
			jobs = append(jobs, mailingJobs(res.Accounts, opts.OwnerColumn)...)
		}
	}
	dedupeNames(jobs)

	files := make([]File, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "export: cancelled")
			}
			data, err := workbook.WriteXLSX(j.table, j.sheet)
			if err != nil {
				return eris.Wrapf(err, "export: render %s", j.name)
			}
			files[i] = File{Name: j.name, Rows: j.table.Len(), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	audit, err := yaml.Marshal(res.Report)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal audit")
	}
	files = append(files, File{Name: AuditFile, Data: audit})

	sort.Slice(files, func(i, k int) bool { return files[i].Name < files[k].Name })
	zap.L().Info("export: bundle built",
		zap.String("flow", string(res.Flow)),
		zap.Int("files", len(files)),
	)
	return &Bundle{Files: files}, nil
}

func dialerJobs(phones *vertical.Result) []job {
	var jobs []job
	for _, owner := range owners(phones) {
		for _, seg := range model.Segments {
			recs := phones.ForOwner(owner, seg)
			if len(recs) == 0 {
				continue
			}
			jobs = append(jobs, job{
				name:  fileName(dialerPrefix, owner, FileToken(seg.Label())),
				sheet: "Discador",
				table: labelSegments(phones.Subset(recs).Table()),
			})
		}
	}
	return jobs
}

func afternoonJobs(phones *vertical.Result) []job {
	var jobs []job
	for _, owner := range owners(phones) {
		var recs []vertical.Record
		for _, rec := range phones.Records {
			if rec.Owner == owner {
				recs = append(recs, rec)
			}
		}
		jobs = append(jobs, job{
			name:  fileName(dialerPrefix, owner, AfternoonSuffix),
			sheet: "Discador",
			table: labelSegments(phones.Subset(recs).Table()),
		})
	}
	return jobs
}

func mailingJobs(accounts *model.Table, ownerCol string) []job {
	if !accounts.Has(ownerCol) || !accounts.Has(model.ColSegment) {
		return nil
	}
	var (
		jobs []job
		seen = make(map[string]struct{})
	)
	for _, owner := range accounts.Column(ownerCol) {
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		for _, seg := range model.Segments {
			t := accounts.Filter(func(i int) bool {
				return accounts.Get(i, ownerCol) == owner &&
					model.ParseSegment(accounts.Get(i, model.ColSegment)) == seg
			})
			if t.Len() == 0 {
				continue
			}
			jobs = append(jobs, job{
				name:  fileName(mailingPrefix, owner, FileToken(seg.Label())),
				sheet: "Mailing",
				table: labelSegments(t),
			})
		}
	}
	return jobs
}

// owners returns the distinct record owners in first-appearance order.
func owners(phones *vertical.Result) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range phones.Records {
		if _, ok := seen[rec.Owner]; ok {
			continue
		}
		seen[rec.Owner] = struct{}{}
		out = append(out, rec.Owner)
	}
	return out
}

// labelSegments rewrites segment codes as operations-facing labels.
func labelSegments(t *model.Table) *model.Table {
	col := t.Index(model.ColSegment)
	if col < 0 {
		return t
	}
	for _, row := range t.Rows {
		row[col] = model.ParseSegment(row[col]).Label()
	}
	return t
}

func fileName(prefix, owner, suffix string) string {
	return prefix + "_" + FileToken(owner) + "_" + suffix + ".xlsx"
}

// dedupeNames suffixes _2, _3, ... onto names that collide after
// normalization, e.g. "João" and "JOAO".
func dedupeNames(jobs []job) {
	seen := make(map[string]int, len(jobs))
	for i := range jobs {
		n := seen[jobs[i].name]
		seen[jobs[i].name] = n + 1
		if n > 0 {
			base := strings.TrimSuffix(jobs[i].name, ".xlsx")
			jobs[i].name = base + "_" + strconv.Itoa(n+1) + ".xlsx"
		}
	}
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FileToken turns a free-text name into an upper-case file-name token:
// accents removed, every run of other characters collapsed to "_".
func FileToken(name string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToUpper(plain) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return NoOwnerToken
	}
	return b.String()
}

// Zip packages the bundle in archive order.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range b.Files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "export: zip entry %s", f.Name)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, eris.Wrapf(err, "export: zip write %s", f.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, eris.Wrap(err, "export: zip close")
	}
	return buf.Bytes(), nil
}

// WriteZip writes the archive to path through a temporary file in the same
// directory, so path either holds the complete archive or is untouched.
func (b *Bundle) WriteZip(path string) error {
	data, err := b.Zip()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".leadsplit-*.zip")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "export: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "export: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "export: rename to %s", path)
	}
	return nil
}
