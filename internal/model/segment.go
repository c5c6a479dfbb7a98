package model

import "strings"

// Segment is the operational customer segment derived from the tax ID.
type Segment string

const (
	SegmentFleetOwner  Segment = "FLEET_OWNER"
	SegmentIndependent Segment = "INDEPENDENT"
)

// Labels written into output sheets; these are what the dialing team reads.
const (
	LabelFleetOwner  = "PEQUENO FROTISTA"
	LabelIndependent = "FRETEIRO"
)

// Segments lists every segment in output order.
var Segments = []Segment{SegmentFleetOwner, SegmentIndependent}

// Label returns the operations-facing label.
func (s Segment) Label() string {
	if s == SegmentFleetOwner {
		return LabelFleetOwner
	}
	return LabelIndependent
}

// ParseSegment accepts either the code or the label, case-insensitively.
// Anything unrecognized is INDEPENDENT, the default segment.
func ParseSegment(v string) Segment {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(SegmentFleetOwner), LabelFleetOwner, "FROTISTA":
		return SegmentFleetOwner
	default:
		return SegmentIndependent
	}
}

// Output columns added by the engine.
const (
	ColSegment       = "ESTRATEGIA_PERFIL"
	ColPriorityScore = "PRIORITY_SCORE"
	ColOwnerFinal    = "RESPONSAVEL_FINAL"
	ColSourceColumn  = "ORIGEM"
	ColRawPhone      = "TELEFONE_BRUTO"
	ColPhone         = "TELEFONE_TRATADO"
	ColPhoneKind     = "TIPO"
)

// Unmatched is the owner written on contact rows with no matching account.
const Unmatched = "SEM_MATCH"
