package types

import (
	"database/sql/driver"
	"fmt"
)

// StringSlice is stored as a jsonb array - used for the small, variable-
// length lists (subscribed event types) that don't warrant their own
// join table.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := jsonAPI.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("types.StringSlice: unsupported scan source %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := jsonAPI.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}
