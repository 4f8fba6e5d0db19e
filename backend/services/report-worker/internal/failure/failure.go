// Package failure classifies errors crossing component boundaries so the daily
// task can decide whether to continue or skip.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the failure category.
type Kind string

const (
	KindFetch         Kind = "fetch"
	KindFormat        Kind = "format"
	KindSend          Kind = "send"
	KindOrchestration Kind = "orchestration"
)

// Stage narrows a send failure.
type Stage string

const (
	StageConnect  Stage = "connect"
	StageAuth     Stage = "auth"
	StageTransmit Stage = "transmit"
)

// Error is a classified failure.
type Error struct {
	Kind  Kind
	Stage Stage
	Op    string
	Err   error
}

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Send wraps a mail failure at the given stage.
func Send(stage Stage, err error) *Error {
	return &Error{Kind: KindSend, Stage: stage, Op: "send mail", Err: err}
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Op, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in the chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// StageOf returns the send stage of the first classified error in the chain, or "".
func StageOf(err error) Stage {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return ""
}
