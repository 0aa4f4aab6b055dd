// Package agerrors defines the stable, wire-visible error taxonomy shared
// by the guardrail engine and the executor. Callers that need to
// branch on failure kind should use errors.As against *Error and switch on
// Kind rather than string-matching messages.
package agerrors

import "fmt"

// Kind is a stable error classification. Values never change meaning once
// shipped (new kinds may be added, existing ones are never repurposed).
type Kind string

const (
	InvalidSpec             Kind = "InvalidSpec"
	PermissionDenied        Kind = "PermissionDenied"
	GuardrailBlock          Kind = "GuardrailBlock"
	ApprovalDenied          Kind = "ApprovalDenied"
	ApprovalTimeout         Kind = "ApprovalTimeout"
	OutputContractViolation Kind = "OutputContractViolation"
	NodeVisitLimitReached   Kind = "NodeVisitLimitReached"
	NoEligibleEdge          Kind = "NoEligibleEdge"
	LoopBoundExceeded       Kind = "LoopBoundExceeded"
	LLMError                Kind = "LLMError"
	ToolError               Kind = "ToolError"
	Timeout                 Kind = "Timeout"
	MemoryWriteError        Kind = "MemoryWriteError"
	StorageError            Kind = "StorageError"
	Cancelled               Kind = "Cancelled"
)

// Error is the concrete type carried by every taxonomy-classified failure.
type Error struct {
	Kind    Kind
	Message string
	NodeID  string
	Cause   error
}

func (e *Error) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Kind, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a kind-tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kind-tagged error around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithNode returns a copy of e annotated with the node it occurred in.
func (e *Error) WithNode(nodeID string) *Error {
	out := *e
	out.NodeID = nodeID
	return &out
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
