package core

// convert.go provides type coercion from loosely-typed source values to
// PostgreSQL types.
//
// ClickHouse's JSON output is a weakly-typed encoding of an already weakly
// modeled schema: UInt64 columns arrive as strings, smaller integers as
// json.Number, booleans as 0/1 integers, timestamps as epoch seconds, and
// JSON arrays sometimes as structured lists, sometimes as strings.
//
// Every function here is total: bad input degrades to an unset pgtype value
// or a caller-supplied default, never to an error. Row-level validation is
// the transforms' job.

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToString returns the value as a string, or def when it is missing.
// An empty string that is actually present passes through unchanged.
func ToString(v any, def string) string {
	switch s := v.(type) {
	case nil:
		return def
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return def
	}
}

// ToInt64 parses the value as an integer, returning def when it is
// missing or unparsable.
func ToInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case nil:
		return def
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			// Tolerate "3.0" style numbers
			if f, ferr := n.Float64(); ferr == nil {
				return int64(f)
			}
			return def
		}
		return i
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return def
		}
		return i
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return def
	}
}

// ToFloat64 parses the value as a float, returning def when it is
// missing or unparsable.
func ToFloat64(v any, def float64) float64 {
	switch n := v.(type) {
	case nil:
		return def
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return f
	case float64:
		return n
	default:
		return def
	}
}

// ToPgTimestamp converts an epoch-seconds value to a UTC timestamp.
// Zero, empty, and unparsable input all mean "unset" (Valid: false);
// ClickHouse stores absent DateTime columns as 0.
func ToPgTimestamp(v any) pgtype.Timestamptz {
	secs := ToInt64(v, 0)
	if secs == 0 {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: time.Unix(secs, 0).UTC(), Valid: true}
}

// ToPgTimestampOrNow converts an epoch-seconds value to a UTC timestamp,
// falling back to now for unset input. Audit columns (created_at,
// updated_at) must never be written as NULL.
func ToPgTimestampOrNow(v any, now time.Time) pgtype.Timestamptz {
	ts := ToPgTimestamp(v)
	if !ts.Valid {
		return pgtype.Timestamptz{Time: now.UTC(), Valid: true}
	}
	return ts
}

// ToPgUUID validates an RFC-4122 UUID and returns it in canonical form.
// Empty, missing, or malformed input yields Valid: false.
func ToPgUUID(v any) pgtype.UUID {
	s := strings.TrimSpace(ToString(v, ""))
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDString returns the canonical lowercase-hyphenated form of a
// pgtype.UUID, or the empty string when it is unset.
func PgUUIDString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// NormalizeJSONArray returns the value as a structured list.
// Lists pass through; strings are parsed as JSON and must decode to an
// array; anything else, including parse failures, degrades to an empty
// list. Never returns nil.
func NormalizeJSONArray(v any) []any {
	switch a := v.(type) {
	case []any:
		return a
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(a), &parsed); err != nil {
			return []any{}
		}
		arr, ok := parsed.([]any)
		if !ok {
			return []any{}
		}
		return arr
	default:
		return []any{}
	}
}

// JSONArrayText normalizes the value via NormalizeJSONArray and re-marshals
// it, so a jsonb destination column always receives a well-formed array.
func JSONArrayText(v any) string {
	b, err := json.Marshal(NormalizeJSONArray(v))
	if err != nil {
		return "[]"
	}
	return string(b)
}

// IntFlagToBool converts a 0/1 integer flag to a boolean: any non-zero
// integer is true. Missing or unparsable input returns def.
func IntFlagToBool(v any, def bool) bool {
	switch n := v.(type) {
	case nil:
		return def
	case bool:
		return n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return i != 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return def
		}
		return i != 0
	case float64:
		return n != 0
	default:
		return def
	}
}
