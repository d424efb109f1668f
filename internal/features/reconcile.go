package features

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/attrition-dashboard/backend/internal/employee"
)

// RawRecord is one record as entered by a user, before encoding. Field names may use
// any known dataset spelling; they are canonicalised on the way in.
type RawRecord struct {
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
}

// Options controls how a RawRecord is encoded.
type Options struct {
	// Ordinals maps a categorical field to its ordered levels; the value is encoded as
	// the level's index. Any other categorical field is one-hot encoded.
	Ordinals map[string][]string

	// Defaults supplies numeric fields the calling form does not collect. They apply
	// only when the field is absent from RawRecord.Numeric.
	Defaults map[string]float64
}

// DefaultOptions encodes salary as low/medium/high = 0/1/2 and defaults the two flags the
// prediction form does not ask for to 0.
func DefaultOptions() Options {
	return Options{
		Ordinals: map[string][]string{
			employee.ColSalary: append([]string(nil), employee.SalaryLevels...),
		},
		Defaults: map[string]float64{
			employee.ColWorkAccident:        0,
			employee.ColPromotionLast5Years: 0,
		},
	}
}

// Reconcile encodes raw and lays it out as expected:
//   - ordinal fields become their level index; an unknown or missing level is
//     employee.ErrInvalidInput
//   - other categorical fields become <field>_<value> indicator columns
//   - expected columns the record cannot supply are zero-filled, and encoded columns the
//     model does not know are dropped
//   - the result follows expected's order exactly
func Reconcile(raw RawRecord, expected []string, opts Options) (Vector, error) {
	encoded, err := Encode(raw, opts)
	if err != nil {
		return Vector{}, err
	}

	v := Vector{
		Columns: make([]string, len(expected)),
		Values:  make([]float64, len(expected)),
	}
	for i, col := range expected {
		v.Columns[i] = col
		v.Values[i] = encoded[col]
	}
	return v, nil
}

// Encode expands raw into a flat column map without reconciling it against a model.
func Encode(raw RawRecord, opts Options) (map[string]float64, error) {
	encoded := make(map[string]float64, len(raw.Numeric)+len(raw.Categorical)+len(opts.Defaults))

	for name, v := range opts.Defaults {
		encoded[employee.CanonicalColumn(name)] = v
	}

	for name, v := range raw.Numeric {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s must be a finite number", employee.ErrInvalidInput, name)
		}
		encoded[employee.CanonicalColumn(name)] = v
	}

	ordinals := make(map[string][]string, len(opts.Ordinals))
	for field, levels := range opts.Ordinals {
		ordinals[employee.CanonicalColumn(field)] = levels
	}

	seen := make(map[string]bool, len(raw.Categorical))
	// Sorted so the first reported error is stable.
	for _, name := range sortedNames(raw.Categorical) {
		field := employee.CanonicalColumn(name)
		value := strings.TrimSpace(raw.Categorical[name])
		seen[field] = true

		if levels, ok := ordinals[field]; ok {
			code := levelIndex(levels, value)
			if code < 0 {
				return nil, fmt.Errorf("%w: unknown %s %q (expected one of %s)",
					employee.ErrInvalidInput, field, value, strings.Join(levels, ", "))
			}
			encoded[field] = float64(code)
			continue
		}

		if value == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", employee.ErrInvalidInput, field)
		}
		encoded[employee.OneHotColumn(field, value)] = 1
	}

	for _, field := range sortedNames(ordinals) {
		if !seen[field] {
			return nil, fmt.Errorf("%w: %s is required", employee.ErrInvalidInput, field)
		}
	}

	return encoded, nil
}

func levelIndex(levels []string, value string) int {
	for i, l := range levels {
		if strings.EqualFold(l, value) {
			return i
		}
	}
	return -1
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
