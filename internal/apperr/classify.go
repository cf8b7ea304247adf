package apperr

import (
	"errors"
	"strings"
)

// Provider and node error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeAlreadyProcessing = -32002
)

// Coder is implemented by errors that carry a wallet or JSON-RPC error code.
type Coder interface {
	ErrorCode() int
}

// Reasoner is implemented by errors that carry a decoded revert reason.
type Reasoner interface {
	RevertReason() string
}

var codeKinds = map[int]Kind{
	CodeUserRejected:      UserRejected,
	CodeUnauthorized:      ClientNotFound,
	CodeAlreadyProcessing: AlreadyProcessing,
}

// Substrings are matched case-insensitively against revert reasons first and
// the full error text second. Order matters: the first hit wins.
var textKinds = []struct {
	needle string
	kind   Kind
}{
	{"action_rejected", UserRejected},
	{"user rejected", UserRejected},
	{"user denied", UserRejected},
	{"already processing", AlreadyProcessing},
	{"insufficient funds", InsufficientFunds},
	{"agent does not exist", NonexistentAgent},
}

// Classify maps a raw failure from op into a typed *Error. Errors that are
// already classified pass through unchanged, as do context cancellations.
// Anything unmatched is tagged with fallback.
func Classify(op string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	if Canceled(err) {
		return err
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != Unknown {
		return err
	}
	return &Error{Kind: classifyKind(err, fallback), Op: op, Err: err}
}

func classifyKind(err error, fallback Kind) Kind {
	var c Coder
	if errors.As(err, &c) {
		if k, ok := codeKinds[c.ErrorCode()]; ok {
			return k
		}
	}
	var r Reasoner
	if errors.As(err, &r) {
		if k, ok := matchText(r.RevertReason()); ok {
			return k
		}
	}
	if k, ok := matchText(err.Error()); ok {
		return k
	}
	return fallback
}

func matchText(s string) (Kind, bool) {
	if s == "" {
		return Unknown, false
	}
	s = strings.ToLower(s)
	for _, tk := range textKinds {
		if strings.Contains(s, tk.needle) {
			return tk.kind, true
		}
	}
	return Unknown, false
}
