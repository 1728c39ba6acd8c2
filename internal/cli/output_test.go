package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"exhausted", NewExitError(ExitExhausted, "no combination worked"), ExitExhausted},
		{"aborted", NewExitError(ExitAborted, "interrupted"), ExitAborted},
		{"wrapped exit error", fmt.Errorf("context: %w", NewExitError(ExitAborted, "interrupted")), ExitAborted},
		{"plain error defaults to command error", errors.New("boom"), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	e := WrapExitError(ExitCommandError, "load wordlist", errors.New("no such file"))
	assert.Equal(t, "load wordlist: no such file", e.Error())
	assert.EqualError(t, errors.Unwrap(e), "no such file")

	assert.Equal(t, "interrupted", NewExitError(ExitAborted, "interrupted").Error())
}
