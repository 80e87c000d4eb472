// Package realtime turns database change events into cache invalidations.
//
// Changes arrive from a feed (see Handler for the Kafka binding), are queued
// on an unbounded channel and applied on a single goroutine, so the feed
// consumer never waits on cache work. Rules map a changed table to the keys
// whose cached data it affects.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is the kind of row change.
type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

// Change is one row change. The JSON form follows the postgres_changes
// payload: {"table", "eventType", "new", "old"}.
type Change struct {
	Table  string         `json:"table"`
	Event  Event          `json:"eventType"`
	Record map[string]any `json:"new"`
	Old    map[string]any `json:"old"`
}

// Decode parses a JSON change.
func Decode(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, ErrDecode(err)
	}
	c.Event = Event(strings.ToUpper(string(c.Event)))
	if c.Table == "" {
		return Change{}, ErrDecode(ErrMissingTable)
	}
	return c, nil
}

// Value returns column from the new row, falling back to the old row for
// deletes. ok is false when neither row carries a non-empty value.
func (c Change) Value(column string) (string, bool) {
	for _, row := range []map[string]any{c.Record, c.Old} {
		v, found := row[column]
		if !found || v == nil {
			continue
		}
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case float64:
			// JSON numbers; ids are integral.
			s = fmt.Sprintf("%.0f", x)
		default:
			s = fmt.Sprint(x)
		}
		if s != "" {
			return s, true
		}
	}
	return "", false
}
