package piholeApi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Summary is the flat key/value document returned by summaryRaw.
// Numbers are kept as json.Number so their literal text survives.
type Summary map[string]any

// Value is a single field of a Summary.
type Value struct {
	raw any
}

// Text decodes a response body as UTF-8, dropping invalid bytes.
func Text(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func DecodeSummary(data []byte) (Summary, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(Text(data))))
	dec.UseNumber()

	summary := Summary{}
	if err := dec.Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return summary, nil
}

func (s Summary) Lookup(key string) (Value, bool) {
	v, ok := s[key]
	if !ok {
		return Value{}, false
	}
	return Value{raw: v}, true
}

// String renders the value the way it appeared in the document.
func (v Value) String() string {
	switch t := v.raw.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func (v Value) Float() (float64, bool) {
	switch t := v.raw.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the integer part of a numeric value.
func (v Value) Int() (int, bool) {
	if n, ok := v.raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Round2 rounds to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatFloat renders f with the fewest digits that represent it.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
