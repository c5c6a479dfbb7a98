package model

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionError_Error(t *testing.T) {
	assert.Equal(t, "NO_AGENTS_FOUND", ErrNoAgentsFound.Error())

	ce := NewCondition(CodeSuspiciousAgentCardinality, "%d distinct owners", 40)
	assert.Equal(t, "SUSPICIOUS_AGENT_CARDINALITY: 40 distinct owners", ce.Error())
}

func TestConditionError_IsMatchesCode(t *testing.T) {
	ce := NewCondition(CodeMissingColumn, "no CONTRATO")
	wrapped := eris.Wrap(ce, "pipeline: prepare")

	assert.True(t, errors.Is(wrapped, ErrMissingColumn))
	assert.False(t, errors.Is(wrapped, ErrLogParse))
	assert.False(t, errors.Is(errors.New("plain"), ErrMissingColumn))
}

func TestConditionError_Unwrap(t *testing.T) {
	cause := errors.New("bad zip")
	ce := &ConditionError{Code: CodeLogParseError, Message: "calls.xlsx", Err: cause}
	assert.True(t, errors.Is(ce, cause))
}

func TestAsCondition(t *testing.T) {
	ce, ok := AsCondition(eris.Wrap(NewCondition(CodeNoAgentsFound, "empty"), "balance"))
	require.True(t, ok)
	assert.Equal(t, CodeNoAgentsFound, ce.Code)
	assert.Equal(t, "empty", ce.Message)

	_, ok = AsCondition(errors.New("plain"))
	assert.False(t, ok)
}

func TestNewWarning(t *testing.T) {
	w := NewWarning(WarnInvalidPhones, "%d invalid", 3)
	assert.Equal(t, WarnInvalidPhones, w.Code)
	assert.Equal(t, "3 invalid", w.Message)
}
