package dberr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackendErr struct{}

func (fakeBackendErr) Error() string          { return "driver: Table 'x' doesn't exist" }
func (fakeBackendErr) BackendMessage() string { return "Table 'x' doesn't exist" }
func (fakeBackendErr) BackendCode() string    { return "1146" }

func TestIsHandlesWrapping(t *testing.T) {
	err := fmt.Errorf("get users: %w", InvalidType(struct{}{}))

	assert.True(t, Is(err, CodeInvalidType))
	assert.False(t, Is(err, CodeInvalidData))
	assert.Equal(t, CodeInvalidType, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestBackendFailedCopiesDetails(t *testing.T) {
	err := BackendFailed("SELECT * FROM `x`", fakeBackendErr{})

	assert.Equal(t, CodeBackendQueryFailed, err.Code)
	assert.Equal(t, "Table 'x' doesn't exist", err.BackendMessage)
	assert.Equal(t, "1146", err.BackendCode)
	assert.Equal(t, "SELECT * FROM `x`", err.Query)
	assert.ErrorIs(t, err, err.Err)
	assert.Contains(t, err.Error(), "backend 1146")
	assert.Contains(t, err.Error(), "[query: SELECT * FROM `x`]")
}

func TestBackendFailedPlainError(t *testing.T) {
	cause := errors.New("connection reset")
	err := BackendFailed("DELETE FROM `t`", cause)

	assert.Equal(t, "connection reset", err.BackendMessage)
	assert.Empty(t, err.BackendCode)
	assert.True(t, errors.Is(err, cause))
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"kind", InvalidConditionKind("bogus"), `INVALID_CONDITION_KIND: unknown condition kind "bogus"`},
		{"type", InvalidType([]int{1}), "INVALID_TYPE: cannot prepare value of type []int"},
		{"data", InvalidData("payload must be a mapping"), "INVALID_DATA: payload must be a mapping"},
		{"not implemented", NotImplemented("document", "joins"), "NOT_IMPLEMENTED: document backend does not support joins"},
		{"link", InvalidLink(3), "INVALID_LINK: no connection registered for link 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewLogReporter(logger)
	r.Report(context.Background(), BackendFailed("SELECT 1", fakeBackendErr{}))

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "code=BACKEND_QUERY_FAILED")
	assert.Contains(t, out, `query="SELECT 1"`)
	assert.Contains(t, out, "backend_code=1146")
}

func TestReporterFunc(t *testing.T) {
	var got []*Error
	r := ReporterFunc(func(_ context.Context, err *Error) {
		got = append(got, err)
	})

	r.Report(context.Background(), InvalidData("x"))
	require.Len(t, got, 1)
	assert.Equal(t, CodeInvalidData, got[0].Code)
}
