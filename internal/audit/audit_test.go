package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadsplit/internal/model"
)

func TestLoads_Sorted(t *testing.T) {
	got := Loads(map[string]int{"B": 2, "A": 5})
	assert.Equal(t, []model.AgentLoad{{Agent: "A", Count: 5}, {Agent: "B", Count: 2}}, got)
	assert.Empty(t, Loads(nil))
}

func TestLoadsOf(t *testing.T) {
	tbl := model.NewTable("RESP")
	tbl.Append("A")
	tbl.Append("")
	tbl.Append("A")

	got := LoadsOf(tbl, "RESP")
	assert.Equal(t, []model.AgentLoad{{Agent: Blank, Count: 1}, {Agent: "A", Count: 2}}, got)
}

func TestCrossTabulate(t *testing.T) {
	tbl := model.NewTable("RESP", "SEG")
	tbl.Append("A", "FLEET_OWNER")
	tbl.Append("A", "INDEPENDENT")
	tbl.Append("A", "FLEET_OWNER")
	tbl.Append("B", "")

	ct := CrossTabulate(tbl, "RESP", "SEG")
	assert.Equal(t, []string{"A", "B"}, ct.Rows)
	assert.Equal(t, []string{Blank, "FLEET_OWNER", "INDEPENDENT"}, ct.Cols)
	assert.Equal(t, 2, ct.Count("A", "FLEET_OWNER"))
	assert.Equal(t, 1, ct.Count("A", "INDEPENDENT"))
	assert.Equal(t, 1, ct.Count("B", Blank))
	assert.Equal(t, 0, ct.Count("B", "FLEET_OWNER"))
	assert.Equal(t, 0, ct.Count("Z", "FLEET_OWNER"))
}
