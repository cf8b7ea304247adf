package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct {
	code int
	msg  string
}

func (e codedErr) Error() string  { return e.msg }
func (e codedErr) ErrorCode() int { return e.code }

type revertErr struct{ reason string }

func (e revertErr) Error() string        { return "execution reverted" }
func (e revertErr) RevertReason() string { return e.reason }

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

func TestErrorString(t *testing.T) {
	err := &Error{Kind: RemoteWrite, Op: "copyAgent", Err: errors.New("nonce too low")}
	assert.Equal(t, "copyAgent: remote write failed: nonce too low", err.Error())
}

func TestErrorStringNoOp(t *testing.T) {
	assert.Equal(t, "contracts not initialized", New(NotInitialized, "").Error())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Wrap(UserRejected, "connect", errors.New("no")))
	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.False(t, errors.Is(err, ErrRemoteRead))
}

func TestErrorsIsNarrowsByOp(t *testing.T) {
	err := Wrap(UserRejected, "connect", errors.New("no"))
	assert.True(t, errors.Is(err, &Error{Kind: UserRejected, Op: "connect"}))
	assert.False(t, errors.Is(err, &Error{Kind: UserRejected, Op: "copyAgent"}))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(RemoteRead, "x", nil))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
}

func TestMessageOverride(t *testing.T) {
	err := New(UserRejected, "registerAgent")
	assert.Equal(t, "custom", Message(err, map[Kind]string{UserRejected: "custom"}))
	assert.Contains(t, Message(err, nil), "Request rejected")
	assert.Empty(t, Message(nil, nil))
}

// ---------------------------------------------------------------------------
// Classify
// ---------------------------------------------------------------------------

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify("op", nil, RemoteWrite))
}

func TestClassifyByCode(t *testing.T) {
	cases := []struct {
		code int
		want Kind
	}{
		{4001, UserRejected},
		{4100, ClientNotFound},
		{-32002, AlreadyProcessing},
		{-32603, RemoteWrite},
	}
	for _, tc := range cases {
		err := Classify("connect", codedErr{code: tc.code, msg: "wallet error"}, RemoteWrite)
		assert.Equal(t, tc.want, KindOf(err), "code %d", tc.code)
	}
}

func TestClassifyByRevertReason(t *testing.T) {
	err := Classify("copyAgent", revertErr{reason: "Agent does not exist"}, RemoteWrite)
	assert.Equal(t, NonexistentAgent, KindOf(err))
}

func TestClassifyByMessage(t *testing.T) {
	cases := map[string]Kind{
		"insufficient funds for gas * price + value": InsufficientFunds,
		"User rejected the request":                  UserRejected,
		"code=ACTION_REJECTED":                        UserRejected,
		"Request already processing":                  AlreadyProcessing,
		"something else":                              RemoteRead,
	}
	for msg, want := range cases {
		assert.Equal(t, want, KindOf(Classify("read", errors.New(msg), RemoteRead)), msg)
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := New(NotInitialized, "registerAgent")
	got := Classify("registerAgent", orig, RemoteWrite)
	require.Same(t, orig, got)
}

func TestClassifyPassesCancellation(t *testing.T) {
	err := Classify("getAllAgents", context.Canceled, RemoteRead)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Unknown, KindOf(err))
}
