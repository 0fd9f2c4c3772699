package query

import (
	"errors"
	"fmt"
)

// Compile errors. They describe a malformed filter, so callers should surface
// them as is and never retry.
var (
	ErrUnknownOperator                 = errors.New("unknown operator")
	ErrUnsupportedValueKind            = errors.New("unsupported value kind")
	ErrMalformedRelationshipDescriptor = errors.New("malformed relationship descriptor")
	ErrMissingIdentity                 = errors.New("entity has no id")
)

// CompileError carries the context of a compile failure. Kind is one of the
// sentinel errors above and is what errors.Is matches against.
type CompileError struct {
	Kind     error
	Field    string
	Operator string
	Value    any
	Detail   string
}

func (e *CompileError) Error() string {
	msg := e.Kind.Error()
	if e.Operator != "" {
		msg += fmt.Sprintf(" %q", e.Operator)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" on field %q", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

func unknownOperator(field, operator string) error {
	return &CompileError{Kind: ErrUnknownOperator, Field: field, Operator: operator}
}

func unsupportedValue(field, operator string, value any, detail string) error {
	return &CompileError{Kind: ErrUnsupportedValueKind, Field: field, Operator: operator, Value: value, Detail: detail}
}

func malformed(detail string) error {
	return &CompileError{Kind: ErrMalformedRelationshipDescriptor, Detail: detail}
}

func missingIdentity(field, label string) error {
	return &CompileError{Kind: ErrMissingIdentity, Field: field, Detail: "cannot update " + label + " without an id"}
}
