// Package record holds the filtered essay records the reports are built from.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names in the filtered records file.
const (
	FieldImage            = "image"
	FieldTopic            = "topic"
	FieldSubject          = "subject"
	FieldImageDescription = "image_description"
	FieldContent          = "content"
	FieldOverallScore     = "overall_band_score"
)

// Sentinels substituted for absent fields.
const (
	NotAvailable = "N/A"
	Unknown      = "Unknown"
)

// Criterion is one of the four scored assessment criteria.
type Criterion struct {
	Name        string
	Score       string
	Description string
}

// criteria lists the assessment criteria in report order.
var criteria = []struct {
	name, score, description string
}{
	{"Task Response", "task_response_score", "task_response_description"},
	{"Coherence & Cohesion", "coherence_cohesion_score", "coherence_cohesion_description"},
	{"Lexical Resource", "lexical_resource_score", "lexical_resource_description"},
	{"Grammatical Range & Accuracy", "grammatical_range_accuracy_score", "grammatical_range_accuracy_description"},
}

// Record is one parsed line of the records file. It is read-only once built.
// Non-string JSON values keep their source text, so 9 reads as "9" and 6.5 as "6.5".
// A null value is treated as absent.
type Record struct {
	line   int
	raw    []byte
	fields map[string]string
}

// Parse builds a Record from a single JSON object. line is informational.
func Parse(line int, data []byte) (Record, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Record{}, err
	}
	if obj == nil {
		return Record{}, fmt.Errorf("expected a JSON object, got null")
	}

	fields := make(map[string]string, len(obj))
	for name, value := range obj {
		value = bytes.TrimSpace(value)
		switch {
		case bytes.Equal(value, []byte("null")):
			continue
		case len(value) > 0 && value[0] == '"':
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Record{}, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = s
		default:
			fields[name] = string(value)
		}
	}

	return Record{line: line, raw: bytes.Clone(data), fields: fields}, nil
}

// Line returns the 1-based line the record was read from.
func (r Record) Line() int { return r.line }

// Raw returns a copy of the record's source bytes.
func (r Record) Raw() []byte { return bytes.Clone(r.raw) }

// Get returns a field and whether it was present.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Value returns a field, or fallback when it is absent.
func (r Record) Value(name, fallback string) string {
	if v, ok := r.fields[name]; ok {
		return v
	}
	return fallback
}

// Image returns the image reference, empty when absent.
func (r Record) Image() string { return r.Value(FieldImage, "") }

// Topic returns the task topic.
func (r Record) Topic() string { return r.Value(FieldTopic, NotAvailable) }

// Subject returns the task subject.
func (r Record) Subject() string { return r.Value(FieldSubject, NotAvailable) }

// ImageDescription returns the textual description of the task image.
func (r Record) ImageDescription() string { return r.Value(FieldImageDescription, NotAvailable) }

// Content returns the essay text.
func (r Record) Content() string { return r.Value(FieldContent, NotAvailable) }

// OverallScore returns the overall band score as stored.
func (r Record) OverallScore() string { return r.Value(FieldOverallScore, NotAvailable) }

// Criteria returns the four criterion scores with their descriptions.
func (r Record) Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	for i, c := range criteria {
		out[i] = Criterion{
			Name:        c.name,
			Score:       r.Value(c.score, NotAvailable),
			Description: r.Value(c.description, ""),
		}
	}
	return out
}

// Category returns the value of field used to file the record, Unknown when absent.
func (r Record) Category(field string) string {
	return r.Value(field, Unknown)
}
