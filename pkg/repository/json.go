package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSet is a canonical sorted-unique string list persisted as a JSONB
// array. It implements sql.Scanner and driver.Valuer so domain scan
// functions can bind eligibility-set columns directly.
type StringSet []string

// Scan implements sql.Scanner for JSONB array columns.
func (s *StringSet) Scan(src any) error {
	if src == nil {
		*s = StringSet{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan StringSet: unsupported type %T", src)
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("scan StringSet: %w", err)
	}

	*s = values
	return nil
}

// Value implements driver.Valuer, serializing to a JSONB array.
// A nil set is stored as an empty array, never NULL.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// Contains reports whether v is a member of the set.
func (s StringSet) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
