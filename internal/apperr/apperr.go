// Package apperr defines the failure kinds surfaced to users and the
// classification of raw wallet and node errors into those kinds.
package apperr

import (
	"context"
	"errors"
	"strings"
)

// Kind tags an error with the user-facing failure category.
type Kind int

const (
	Unknown Kind = iota
	ClientNotFound
	UserRejected
	AlreadyProcessing
	InsufficientFunds
	NotInitialized
	NonexistentAgent
	RemoteRead
	RemoteWrite
)

var kindNames = map[Kind]string{
	Unknown:           "unknown error",
	ClientNotFound:    "wallet client not found",
	UserRejected:      "request rejected by user",
	AlreadyProcessing: "wallet already processing a request",
	InsufficientFunds: "insufficient funds",
	NotInitialized:    "contracts not initialized",
	NonexistentAgent:  "agent does not exist",
	RemoteRead:        "remote read failed",
	RemoteWrite:       "remote write failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Unknown]
}

// Error is a classified failure. Op names the operation that failed
// ("connect", "registerAgent", ...) and Err keeps the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. An Op on the
// target narrows the match to that operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Sentinels for errors.Is checks.
var (
	ErrClientNotFound    = &Error{Kind: ClientNotFound}
	ErrUserRejected      = &Error{Kind: UserRejected}
	ErrAlreadyProcessing = &Error{Kind: AlreadyProcessing}
	ErrInsufficientFunds = &Error{Kind: InsufficientFunds}
	ErrNotInitialized    = &Error{Kind: NotInitialized}
	ErrNonexistentAgent  = &Error{Kind: NonexistentAgent}
	ErrRemoteRead        = &Error{Kind: RemoteRead}
	ErrRemoteWrite       = &Error{Kind: RemoteWrite}
)

// New returns a classified error with no underlying cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Canceled reports whether err stems from a cancelled or expired context.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var defaultMessages = map[Kind]string{
	Unknown:           "Something went wrong. Please try again.",
	ClientNotFound:    "No wallet found. Add one with `copytrader wallet add` to continue.",
	UserRejected:      "Request rejected. Please approve the request in your wallet to continue.",
	AlreadyProcessing: "Your wallet is already processing a request. Please check your wallet.",
	InsufficientFunds: "Insufficient funds for gas fees. Please add more ETH to your wallet.",
	NotInitialized:    "Smart contracts not loaded. Please connect your wallet and try again.",
	NonexistentAgent:  "This agent no longer exists. Please refresh and try again.",
	RemoteRead:        "Failed to load data. Please refresh and try again.",
	RemoteWrite:       "Transaction failed. Please try again.",
}

// Message returns the user-facing text for err. Entries in overrides take
// precedence over the defaults for their kind.
func Message(err error, overrides map[Kind]string) string {
	if err == nil {
		return ""
	}
	k := KindOf(err)
	if m, ok := overrides[k]; ok {
		return m
	}
	return defaultMessages[k]
}
