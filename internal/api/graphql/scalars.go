package graphql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decimal is the Decimal scalar. It is written as a JSON number and read from
// numbers or numeric strings.
type Decimal struct {
	Value decimal.Decimal
}

func (Decimal) ImplementsGraphQLType(name string) bool { return name == "Decimal" }

func (d *Decimal) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		d.Value = decimal.NewFromInt32(v)
	case int:
		d.Value = decimal.NewFromInt(int64(v))
	case int64:
		d.Value = decimal.NewFromInt(v)
	case float64:
		d.Value = decimal.NewFromFloat(v)
	case json.Number:
		return d.parse(v.String())
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("Decimal must be a number, got %T", input)
	}
	return nil
}

func (d *Decimal) parse(s string) error {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("Decimal must be a number, got %q", s)
	}
	d.Value = v
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Value.String()), nil
}

// DateTime is the DateTime scalar, an RFC 3339 timestamp.
type DateTime struct {
	time.Time
}

func (DateTime) ImplementsGraphQLType(name string) bool { return name == "DateTime" }

func (t *DateTime) UnmarshalGraphQL(input interface{}) error {
	s, ok := input.(string)
	if !ok {
		return fmt.Errorf("DateTime must be a string, got %T", input)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("DateTime must be RFC 3339: %w", err)
	}
	t.Time = parsed
	return nil
}

func (t DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
