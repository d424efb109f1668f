package employee

// Dataset is the immutable, ordered collection of employee rows loaded at startup.
// Nothing in the service mutates it after construction, so it is shared across requests.
type Dataset struct {
	source      string
	records     []Record
	hasLabel    bool
	departments []string
	salaries    []string
}

// NewDataset copies records into a new Dataset.
func NewDataset(source string, records []Record, hasLabel bool) *Dataset {
	owned := make([]Record, len(records))
	copy(owned, records)

	return &Dataset{
		source:      source,
		records:     owned,
		hasLabel:    hasLabel,
		departments: distinct(owned, func(r Record) string { return r.Department }),
		salaries:    distinct(owned, func(r Record) string { return r.Salary }),
	}
}

func (d *Dataset) Source() string { return d.source }

func (d *Dataset) Len() int { return len(d.records) }

// HasLabel reports whether the source file carried the attrition label column.
func (d *Dataset) HasLabel() bool { return d.hasLabel }

// At returns a copy of row i.
func (d *Dataset) At(i int) Record { return d.records[i] }

// Records returns a copy of all rows.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Each calls fn for every row in order until fn returns false.
func (d *Dataset) Each(fn func(Record) bool) {
	for _, r := range d.records {
		if !fn(r) {
			return
		}
	}
}

// Departments returns the distinct department values in first-seen order.
func (d *Dataset) Departments() []string {
	return append([]string(nil), d.departments...)
}

// SalaryLevels returns the distinct salary values in first-seen order.
func (d *Dataset) SalaryLevels() []string {
	return append([]string(nil), d.salaries...)
}

func distinct(records []Record, key func(Record) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
