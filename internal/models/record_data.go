package models

import "time"

// RecordData is one provider record as decoded from the wire: a flat attribute
// map. Numeric values may arrive as float64 (JSON), int or int64 depending on
// the transport, so the accessors normalize.
type RecordData map[string]any

// Has reports whether the key is present.
func (d RecordData) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Int64 returns the key as int64 when present and numeric.
func (d RecordData) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Int64s returns the key as a slice of int64, tolerating []any from JSON.
func (d RecordData) Int64s(key string) []int64 {
	switch v := d[key].(type) {
	case []int64:
		return v
	case []any:
		out := make([]int64, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int64:
				out = append(out, n)
			case int:
				out = append(out, int64(n))
			case float64:
				out = append(out, int64(n))
			}
		}
		return out
	}
	return nil
}

// String returns the key as a string when present.
func (d RecordData) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Time returns the key as a time, accepting time.Time or RFC3339 strings.
func (d RecordData) Time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy, so per-invoice payment fan-out can vary one
// attribute without touching the source map.
func (d RecordData) Clone() RecordData {
	out := make(RecordData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
