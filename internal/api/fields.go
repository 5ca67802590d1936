package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The instructor endpoints answer with loosely typed JSON whose keys changed
// across backend versions. These helpers read the first present key.

func decodeLoose(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// firstPresent returns the value of the first key that is present and not null.
func firstPresent(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// text renders the first present string, number or bool as a string.
func text(obj map[string]any, keys ...string) string {
	v, ok := firstPresent(obj, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// stringOnly is text restricted to JSON strings.
func stringOnly(obj map[string]any, keys ...string) string {
	v, _ := firstPresent(obj, keys...)
	s, _ := v.(string)
	return s
}

// count reads the first present key as a non-negative integer. Anything that
// does not parse counts as zero.
func count(obj map[string]any, keys ...string) int {
	v, ok := firstPresent(obj, keys...)
	if !ok {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// objects keeps the JSON objects of an array.
func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
