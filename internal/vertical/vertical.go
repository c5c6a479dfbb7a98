// Package vertical expands the phone columns of each contact row into one
// record per dialable phone.
package vertical

import (
	"github.com/sells-group/leadsplit/internal/keys"
	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/phone"
)

// Options binds the columns used by Verticalize.
type Options struct {
	KeyColumn     string
	OwnerColumn   string // default model.ColOwnerFinal
	SegmentColumn string // default model.ColSegment
	RetainColumns []string
	PhoneColumns  []string
}

// Record is one dialable phone of one contact.
type Record struct {
	Key          string
	Retained     []string
	Owner        string
	Segment      model.Segment
	SourceColumn string
	RawPhone     string
	Phone        string
	Kind         phone.Kind
}

// Result holds the deduplicated records plus per-kind counts of every phone
// cell examined.
type Result struct {
	// Columns names the values in Record.Retained.
	Columns    []string
	Records    []Record
	Kinds      map[phone.Kind]int
	Invalid    int
	Empty      int
	Duplicates int
}

// Verticalize emits one record per (contact, phone column), normalizes the
// phone, drops non-dialable values, and keeps the first record of each
// (key, canonical phone) pair.
func Verticalize(contacts *model.Table, opts Options) (*Result, error) {
	if opts.OwnerColumn == "" {
		opts.OwnerColumn = model.ColOwnerFinal
	}
	if opts.SegmentColumn == "" {
		opts.SegmentColumn = model.ColSegment
	}
	if len(opts.PhoneColumns) == 0 {
		return nil, model.NewCondition(model.CodeMissingColumn, "no phone columns selected")
	}
	cols := retainedColumns(opts)
	required := append(append([]string(nil), cols...), opts.PhoneColumns...)
	if err := contacts.Require("contacts", required...); err != nil {
		return nil, err
	}

	res := &Result{Columns: cols, Kinds: make(map[phone.Kind]int, len(phone.Kinds))}
	seen := make(map[[2]string]struct{})

	for i := range contacts.Rows {
		key := keys.Normalize(contacts.Get(i, opts.KeyColumn))
		var retained []string
		for _, pc := range opts.PhoneColumns {
			raw := contacts.Get(i, pc)
			canonical, kind := phone.Normalize(raw)
			res.Kinds[kind]++
			switch kind {
			case phone.KindEmpty:
				res.Empty++
				continue
			case phone.KindInvalid:
				res.Invalid++
				continue
			}

			dk := [2]string{key, canonical}
			if _, dup := seen[dk]; dup {
				res.Duplicates++
				continue
			}
			seen[dk] = struct{}{}

			if retained == nil {
				retained = make([]string, len(cols))
				for c, name := range cols {
					retained[c] = contacts.Get(i, name)
				}
			}
			res.Records = append(res.Records, Record{
				Key:          key,
				Retained:     retained,
				Owner:        contacts.Get(i, opts.OwnerColumn),
				Segment:      model.ParseSegment(contacts.Get(i, opts.SegmentColumn)),
				SourceColumn: pc,
				RawPhone:     raw,
				Phone:        canonical,
				Kind:         kind,
			})
		}
	}
	return res, nil
}

func retainedColumns(opts Options) []string {
	cols := []string{opts.KeyColumn}
	seen := map[string]struct{}{opts.KeyColumn: {}}
	for _, c := range append(append([]string(nil), opts.RetainColumns...), opts.OwnerColumn, opts.SegmentColumn) {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	return cols
}

// Table renders the records as a long-format sheet: the retained columns,
// then source column, raw phone, canonical phone, and kind label.
func (r *Result) Table() *model.Table {
	header := append(append([]string(nil), r.Columns...),
		model.ColSourceColumn, model.ColRawPhone, model.ColPhone, model.ColPhoneKind)
	t := model.NewTable(header...)
	for _, rec := range r.Records {
		row := append(append([]string(nil), rec.Retained...),
			rec.SourceColumn, rec.RawPhone, rec.Phone, rec.Kind.Label())
		t.Append(row...)
	}
	return t
}

// ForOwner returns the records owned by agent in the given segment.
func (r *Result) ForOwner(agent string, seg model.Segment) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Owner == agent && rec.Segment == seg {
			out = append(out, rec)
		}
	}
	return out
}

// Subset returns a Result view over recs sharing r's columns.
func (r *Result) Subset(recs []Record) *Result {
	return &Result{Columns: r.Columns, Records: recs}
}
