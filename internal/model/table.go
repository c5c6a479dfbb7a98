package model

import "strings"

// Table is an in-memory sheet: a header and rows of string cells aligned to it.
// Every row has exactly len(Columns) cells; a blank cell is the empty string.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

// TableFromRows builds a table from raw sheet rows where the first row is the
// header. Short rows are padded and long rows truncated to the header width.
// Header cells are trimmed; fully blank rows are skipped.
func TableFromRows(rows [][]string) *Table {
	if len(rows) == 0 {
		return NewTable()
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := NewTable(header...)
	for _, r := range rows[1:] {
		if blankRow(r) {
			continue
		}
		t.Append(r...)
	}
	return t
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column name, or -1 if absent.
func (t *Table) Index(name string) int {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	if !ok {
		return -1
	}
	return i
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Get returns the cell at row i for column name, or "" if the column is absent.
func (t *Table) Get(i int, name string) string {
	c := t.Index(name)
	if c < 0 {
		return ""
	}
	return t.Rows[i][c]
}

// Set writes the cell at row i for column name, adding the column if needed.
func (t *Table) Set(i int, name, value string) {
	c := t.AddColumn(name)
	t.Rows[i][c] = value
}

// AddColumn appends a blank column and returns its index. An existing column
// is left untouched and its index returned.
func (t *Table) AddColumn(name string) int {
	if c := t.Index(name); c >= 0 {
		return c
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) []string {
	c := t.Index(name)
	if c < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[c]
	}
	return out
}

// Clone returns a deep copy that can be mutated without touching t.
func (t *Table) Clone() *Table {
	c := NewTable(t.Columns...)
	c.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// Filter returns a new table holding copies of the rows for which keep is true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := NewTable(t.Columns...)
	for i, r := range t.Rows {
		if keep(i) {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out
}

// Require returns a MissingColumn condition naming every absent column.
// Empty names are ignored so optional bindings can be passed through.
func (t *Table) Require(table string, names ...string) error {
	var missing []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return NewCondition(CodeMissingColumn,
		"%s table is missing column(s) %s", table, strings.Join(quoteAll(missing), ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = `"` + s + `"`
	}
	return out
}
