package model

import (
	"errors"
	"fmt"
)

// ConditionCode identifies a configuration or input failure reported to the caller.
type ConditionCode string

const (
	CodeNoAgentsFound              ConditionCode = "NO_AGENTS_FOUND"
	CodeSuspiciousAgentCardinality ConditionCode = "SUSPICIOUS_AGENT_CARDINALITY"
	CodeMissingColumn              ConditionCode = "MISSING_COLUMN"
	CodeLogParseError              ConditionCode = "LOG_PARSE_ERROR"
)

// Sentinel conditions for use with errors.Is.
var (
	ErrNoAgentsFound              = &ConditionError{Code: CodeNoAgentsFound}
	ErrSuspiciousAgentCardinality = &ConditionError{Code: CodeSuspiciousAgentCardinality}
	ErrMissingColumn              = &ConditionError{Code: CodeMissingColumn}
	ErrLogParse                   = &ConditionError{Code: CodeLogParseError}
)

// ConditionError is a structured, human-readable failure that halts a run
// without producing output.
type ConditionError struct {
	Code    ConditionCode `json:"code"`
	Message string        `json:"message"`
	Err     error         `json:"-"`
}

// NewCondition builds a ConditionError with a formatted message.
func NewCondition(code ConditionCode, format string, args ...any) *ConditionError {
	return &ConditionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ConditionError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// Is matches any ConditionError carrying the same code.
func (e *ConditionError) Is(target error) bool {
	var t *ConditionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// AsCondition extracts the first ConditionError in err's chain.
func AsCondition(err error) (*ConditionError, bool) {
	var ce *ConditionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// WarningCode identifies a non-fatal data-quality signal.
type WarningCode string

const (
	WarnLowMatchRate  WarningCode = "LOW_MATCH_RATE"
	WarnInvalidPhones WarningCode = "INVALID_PHONES"
	WarnMissingTaxID  WarningCode = "MISSING_TAX_ID"
)

// Warning is a data-quality signal attached to a completed run.
type Warning struct {
	Code    WarningCode `json:"code" yaml:"code"`
	Message string      `json:"message" yaml:"message"`
}

// NewWarning builds a Warning with a formatted message.
func NewWarning(code WarningCode, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
