package types

import (
	"database/sql/driver"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONMap is a free-form JSON object stored in a single jsonb column. It
// implements sql.Scanner/driver.Valuer so sqlx can read and write it
// directly against Postgres jsonb columns.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := jsonAPI.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("types.JSONMap: unsupported scan source %T", src)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}

	var out map[string]any
	if err := jsonAPI.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
