package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUsage    Kind = "usage"
	KindPolicy   Kind = "policy"
	KindIO       Kind = "io"
	KindUpstream Kind = "upstream"
	KindNotFound Kind = "not_found"
	KindInternal Kind = "internal"
)

// AppError is the error shape shared by every layer. Stage names the
// pipeline step that failed (transcribe, complete, synthesize) when known.
type AppError struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix += "(" + e.Stage + ")"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func New(kind Kind, message string, cause error) error {
	return &AppError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

func NewUsage(message string) error {
	return New(KindUsage, message, nil)
}

func NewPolicy(message string) error {
	return New(KindPolicy, message, nil)
}

func NewNotFound(message string) error {
	return New(KindNotFound, message, nil)
}

func NewInternal(message string, cause error) error {
	return New(KindInternal, message, cause)
}

// NewUpstream wraps a hosted-service failure for one pipeline stage.
func NewUpstream(stage string, cause error) error {
	return &AppError{
		Kind:    KindUpstream,
		Stage:   stage,
		Message: stage + " call failed",
		Cause:   cause,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StageOf returns the failed stage recorded on err, if any.
func StageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

func IsUsage(err error) bool {
	return err != nil && KindOf(err) == KindUsage
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
