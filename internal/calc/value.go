package calc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags a Value.
type Kind string

const (
	KindPending   Kind = "pending"
	KindNumeric   Kind = "numeric"
	KindNarrative Kind = "narrative"
)

// Value is a KPI result: a number, a narrative text, or nothing yet.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
}

// Pending is the zero result.
func Pending() Value { return Value{Kind: KindPending} }

// Numeric wraps a calculated number.
func Numeric(v float64) Value { return Value{Kind: KindNumeric, Number: v} }

// Narrative wraps a qualitative answer.
func Narrative(s string) Value { return Value{Kind: KindNarrative, Text: s} }

// IsPending is true for the zero Value as well as an explicit Pending.
func (v Value) IsPending() bool {
	return v.Kind == "" || v.Kind == KindPending
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindNarrative:
		return v.Text
	}
	return ""
}

type valueJSON struct {
	Kind  Kind `json:"kind"`
	Value any  `json:"value,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.Kind}
	switch v.Kind {
	case KindNumeric:
		out.Value = v.Number
	case KindNarrative:
		out.Value = v.Text
	default:
		out.Kind = KindPending
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  Kind            `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case KindNumeric:
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("numeric value: %w", err)
		}
		*v = Numeric(f)
	case KindNarrative:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("narrative value: %w", err)
		}
		*v = Narrative(s)
	case KindPending, "":
		*v = Pending()
	default:
		return fmt.Errorf("unknown value kind %q", raw.Kind)
	}
	return nil
}
