package features

import (
	"strconv"
	"strings"
)

// Vector is an ordered feature row laid out exactly as a model expects it.
type Vector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

func (v Vector) Len() int {
	return len(v.Columns)
}

// Get returns the value of column name.
func (v Vector) Get(name string) (float64, bool) {
	for i, c := range v.Columns {
		if c == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as a column to value map.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Columns))
	for i, c := range v.Columns {
		m[c] = v.Values[i]
	}
	return m
}

// Equal reports whether both vectors have the same columns, order and values.
func (v Vector) Equal(o Vector) bool {
	if len(v.Columns) != len(o.Columns) || len(v.Values) != len(o.Values) {
		return false
	}
	for i := range v.Columns {
		if v.Columns[i] != o.Columns[i] || v.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Key renders the vector as a stable string, used for cache keys.
func (v Vector) Key() string {
	var b strings.Builder
	for i, c := range v.Columns {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(c)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(v.Values[i], 'g', -1, 64))
	}
	return b.String()
}
