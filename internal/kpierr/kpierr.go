// Package kpierr defines the error taxonomy shared by the KPI engine.
// Errors are captured per KPI and stored as that KPI's status; they never
// abort processing of other KPIs.
package kpierr

import (
	"fmt"
	"strings"
)

// Kind classifies a KPI failure.
type Kind string

const (
	NotFound          Kind = "not_found"
	Configuration     Kind = "configuration_error"
	NoFormula         Kind = "no_formula"
	MissingColumns    Kind = "missing_columns"
	Calculation       Kind = "calculation_error"
	NoData            Kind = "no_data"
	MappingIncomplete Kind = "mapping_incomplete"
	EmbeddingService  Kind = "embedding_service_error"
	Persistence       Kind = "persistence_error"
	Advisory          Kind = "advisory_error"
)

// Error implements error so a Kind can be used as an errors.Is target.
func (k Kind) Error() string {
	return string(k)
}

// Error is the structured failure attached to a KPI.
type Error struct {
	Kind   Kind     `json:"kind"`
	KPI    string   `json:"kpi,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Detail string   `json:"detail,omitempty"`
	Err    error    `json:"-"`
}

// New creates an Error of the given kind.
func New(kind Kind, kpi, detail string) *Error {
	return &Error{Kind: kind, KPI: kpi, Detail: detail}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, kpi string, err error) *Error {
	e := &Error{Kind: kind, KPI: kpi, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// Missing reports the required fields absent from a table.
func Missing(kpi string, fields []string) *Error {
	return &Error{
		Kind:   MissingColumns,
		KPI:    kpi,
		Fields: fields,
		Detail: "Missing columns: " + strings.Join(fields, ", "),
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.KPI != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", e.KPI))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not a KPI error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
