// Package audit computes the load snapshots and cross-tabulations reported
// with every run.
package audit

import (
	"sort"
	"strings"

	"github.com/sells-group/leadsplit/internal/model"
)

// Blank labels an empty cell in cross-tabulations.
const Blank = "(vazio)"

// Loads converts a load map into a slice sorted by agent.
func Loads(m map[string]int) []model.AgentLoad {
	out := make([]model.AgentLoad, 0, len(m))
	for a, n := range m {
		out = append(out, model.AgentLoad{Agent: a, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// LoadsOf counts rows per value of column col.
func LoadsOf(t *model.Table, col string) []model.AgentLoad {
	m := make(map[string]int)
	for _, v := range t.Column(col) {
		m[label(v)]++
	}
	return Loads(m)
}

// CrossTabulate counts rows of t per (rowCol, colCol) value pair. Row and
// column values are sorted; blank cells are counted under Blank.
func CrossTabulate(t *model.Table, rowCol, colCol string) model.CrossTab {
	ct := model.CrossTab{
		RowLabel: rowCol,
		ColLabel: colCol,
		Counts:   make(map[string]map[string]int),
	}
	cols := make(map[string]struct{})
	for i := range t.Rows {
		r := label(t.Get(i, rowCol))
		c := label(t.Get(i, colCol))
		if ct.Counts[r] == nil {
			ct.Counts[r] = make(map[string]int)
		}
		ct.Counts[r][c]++
		cols[c] = struct{}{}
	}
	for r := range ct.Counts {
		ct.Rows = append(ct.Rows, r)
	}
	for c := range cols {
		ct.Cols = append(ct.Cols, c)
	}
	sort.Strings(ct.Rows)
	sort.Strings(ct.Cols)
	return ct
}

func label(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return Blank
	}
	return v
}
