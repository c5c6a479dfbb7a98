package model

// AgentLoad is the number of rows owned by one agent.
type AgentLoad struct {
	Agent string `json:"agent" yaml:"agent"`
	Count int    `json:"count" yaml:"count"`
}

// CrossTab counts rows per (row value, column value) pair.
type CrossTab struct {
	RowLabel string                    `json:"row_label" yaml:"row_label"`
	ColLabel string                    `json:"col_label" yaml:"col_label"`
	Rows     []string                  `json:"rows" yaml:"rows"`
	Cols     []string                  `json:"cols" yaml:"cols"`
	Counts   map[string]map[string]int `json:"counts" yaml:"counts"`
}

// Count returns the cell for (row, col), zero if absent.
func (c CrossTab) Count(row, col string) int {
	return c.Counts[row][col]
}

// Flow names the operational cycle a run belongs to.
type Flow string

const (
	FlowMorning   Flow = "morning"
	FlowAfternoon Flow = "afternoon"
)

// Report holds the audit figures of one run.
type Report struct {
	Flow            Flow           `json:"flow" yaml:"flow"`
	Accounts        int            `json:"accounts" yaml:"accounts"`
	Contacts        int            `json:"contacts" yaml:"contacts"`
	Agents          []string       `json:"agents" yaml:"agents"`
	OrphansFilled   int            `json:"orphans_filled" yaml:"orphans_filled"`
	Relevelled      int            `json:"relevelled" yaml:"relevelled"`
	InitialLoads    []AgentLoad    `json:"initial_loads" yaml:"initial_loads"`
	FinalLoads      []AgentLoad    `json:"final_loads" yaml:"final_loads"`
	AgentSegment    CrossTab       `json:"agent_segment" yaml:"agent_segment"`
	AgentPriority   *CrossTab      `json:"agent_priority,omitempty" yaml:"agent_priority,omitempty"`
	MatchRate       float64        `json:"match_rate" yaml:"match_rate"`
	UnmatchedRows   int            `json:"unmatched_rows" yaml:"unmatched_rows"`
	PhoneKinds      map[string]int `json:"phone_kinds" yaml:"phone_kinds"`
	PhoneRecords    int            `json:"phone_records" yaml:"phone_records"`
	InvalidPhones   int            `json:"invalid_phones" yaml:"invalid_phones"`
	EmptyPhones     int            `json:"empty_phones" yaml:"empty_phones"`
	DuplicatePhones int            `json:"duplicate_phones" yaml:"duplicate_phones"`
	WorkedKeys      int            `json:"worked_keys,omitempty" yaml:"worked_keys,omitempty"`
	RemovedWorked   int            `json:"removed_worked,omitempty" yaml:"removed_worked,omitempty"`
	RemovedSegment  int            `json:"removed_segment,omitempty" yaml:"removed_segment,omitempty"`
	Warnings        []Warning      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// DroppedPhones is the number of phone cells that produced no record.
func (r *Report) DroppedPhones() int {
	return r.InvalidPhones + r.EmptyPhones
}
