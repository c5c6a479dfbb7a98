// Package balance assigns unowned accounts to human agents and optionally
// re-levels per-agent load, moving the least urgent accounts first.
package balance

import (
	"math/rand/v2"
	"strings"

	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/priority"
)

// DefaultReservedTokens are owner values that mean "no human owner":
// generic queue names and null spellings left by spreadsheet exports.
var DefaultReservedTokens = []string{
	"NULL", "NAN", "NONE", "BACKLOG", "SEM DONO", "SEM RESPONSAVEL",
	"CANAL TELEVENDAS", "TELEVENDAS", "TIME", "EQUIPE",
}

const (
	// DefaultMaxAgents is the agent count above which the owner column is
	// assumed to be mis-selected.
	DefaultMaxAgents = 25

	// DefaultRelevelFactor bounds re-leveling to factor x agents moves.
	DefaultRelevelFactor = 50
)

// Options configures a Balancer.
type Options struct {
	OwnerColumn    string
	PriorityColumn string // optional
	ReservedTokens []string
	MaxAgents      int
	Relevel        bool
	RelevelFactor  int
	Rand           *rand.Rand // nil disables shuffling
}

// Result is the outcome of one balancing pass.
type Result struct {
	// Table is a copy of the input with the owner column rewritten.
	Table        *model.Table
	Agents       []string
	Orphans      int
	Moves        int
	InitialLoads map[string]int
	FinalLoads   map[string]int

	// Scores holds the priority score of each row, in row order.
	Scores []int
}

// Spread is the difference between the largest and smallest final load.
func (r *Result) Spread() int {
	return spread(r.FinalLoads, r.Agents)
}

// Balancer runs the orphan fill and re-leveling phases.
type Balancer struct {
	opts     Options
	reserved map[string]struct{}
}

// New creates a Balancer, applying defaults for unset limits and tokens.
func New(opts Options) *Balancer {
	if opts.ReservedTokens == nil {
		opts.ReservedTokens = DefaultReservedTokens
	}
	if opts.MaxAgents <= 0 {
		opts.MaxAgents = DefaultMaxAgents
	}
	if opts.RelevelFactor <= 0 {
		opts.RelevelFactor = DefaultRelevelFactor
	}
	reserved := map[string]struct{}{"": {}}
	for _, tok := range opts.ReservedTokens {
		reserved[canonicalOwner(tok)] = struct{}{}
	}
	return &Balancer{opts: opts, reserved: reserved}
}

func canonicalOwner(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// IsReserved reports whether an owner value means the account is unassigned.
func (b *Balancer) IsReserved(owner string) bool {
	_, ok := b.reserved[canonicalOwner(owner)]
	return ok
}

// Agents returns the distinct human owners of t in first-appearance order.
func (b *Balancer) Agents(t *model.Table) []string {
	seen := make(map[string]struct{})
	var agents []string
	for _, owner := range t.Column(b.opts.OwnerColumn) {
		if b.IsReserved(owner) {
			continue
		}
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		agents = append(agents, owner)
	}
	return agents
}

// Balance assigns every orphan account to the currently least-loaded agent
// and, when enabled, re-levels loads. The input table is not modified.
func (b *Balancer) Balance(accounts *model.Table) (*Result, error) {
	if err := accounts.Require("accounts", b.opts.OwnerColumn, b.opts.PriorityColumn); err != nil {
		return nil, err
	}

	agents := b.Agents(accounts)
	if len(agents) == 0 {
		return nil, model.NewCondition(model.CodeNoAgentsFound,
			"column %q has no human owner values; every row is blank or a reserved queue name", b.opts.OwnerColumn)
	}
	if len(agents) > b.opts.MaxAgents {
		return nil, model.NewCondition(model.CodeSuspiciousAgentCardinality,
			"column %q has %d distinct owners (limit %d); it is probably not the owner column",
			b.opts.OwnerColumn, len(agents), b.opts.MaxAgents)
	}

	out := accounts.Clone()
	col := out.Index(b.opts.OwnerColumn)

	res := &Result{
		Table:  out,
		Agents: agents,
		Scores: b.scores(out),
	}

	rotation := append([]string(nil), agents...)
	if b.opts.Rand != nil {
		b.opts.Rand.Shuffle(len(rotation), func(i, j int) { rotation[i], rotation[j] = rotation[j], rotation[i] })
	}

	loads := make(map[string]int, len(agents))
	for _, a := range agents {
		loads[a] = 0
	}
	var orphans []int
	for i, row := range out.Rows {
		if b.IsReserved(row[col]) {
			orphans = append(orphans, i)
			continue
		}
		loads[row[col]]++
	}
	res.InitialLoads = copyLoads(loads)

	if b.opts.Rand != nil {
		b.opts.Rand.Shuffle(len(orphans), func(i, j int) { orphans[i], orphans[j] = orphans[j], orphans[i] })
	}
	for _, i := range orphans {
		agent := minLoaded(loads, rotation)
		out.Rows[i][col] = agent
		loads[agent]++
	}
	res.Orphans = len(orphans)

	if b.opts.Relevel {
		res.Moves = b.relevel(out, col, res.Scores, loads, rotation)
	}

	res.FinalLoads = copyLoads(loads)
	return res, nil
}

func (b *Balancer) scores(t *model.Table) []int {
	if b.opts.PriorityColumn == "" {
		out := make([]int, t.Len())
		for i := range out {
			out[i] = priority.Default
		}
		return out
	}
	return priority.Scores(t.Column(b.opts.PriorityColumn))
}

// relevel moves the least urgent account from the heaviest agent to the
// lightest until loads differ by at most one or the iteration cap is hit.
func (b *Balancer) relevel(t *model.Table, col int, scores []int, loads map[string]int, rotation []string) int {
	owned := make(map[string][]int, len(rotation))
	for i, row := range t.Rows {
		owned[row[col]] = append(owned[row[col]], i)
	}

	limit := b.opts.RelevelFactor * len(rotation)
	moves := 0
	for moves < limit {
		heavy := maxLoaded(loads, rotation)
		light := minLoaded(loads, rotation)
		if loads[heavy]-loads[light] <= 1 {
			break
		}

		rows := owned[heavy]
		pick := 0
		for k, i := range rows {
			if scores[i] > scores[rows[pick]] {
				pick = k
			}
		}
		i := rows[pick]
		owned[heavy] = append(rows[:pick], rows[pick+1:]...)
		owned[light] = append(owned[light], i)

		t.Rows[i][col] = light
		loads[heavy]--
		loads[light]++
		moves++
	}
	return moves
}

// minLoaded returns the agent with the fewest accounts; ties go to the
// earliest agent in rotation.
func minLoaded(loads map[string]int, rotation []string) string {
	best := rotation[0]
	for _, a := range rotation[1:] {
		if loads[a] < loads[best] {
			best = a
		}
	}
	return best
}

func maxLoaded(loads map[string]int, rotation []string) string {
	best := rotation[0]
	for _, a := range rotation[1:] {
		if loads[a] > loads[best] {
			best = a
		}
	}
	return best
}

func spread(loads map[string]int, agents []string) int {
	if len(agents) == 0 {
		return 0
	}
	return loads[maxLoaded(loads, agents)] - loads[minLoaded(loads, agents)]
}

func copyLoads(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
