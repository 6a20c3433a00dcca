// Package group partitions records into ordered report groups.
package group

import (
	"fmt"

	"github.com/bandreports/bandreports/internal/id"
	"github.com/bandreports/bandreports/internal/record"
)

// MissingKeys controls what happens to records whose key is empty.
type MissingKeys string

const (
	// MergeMissing collects every record without a key into one group keyed "".
	MergeMissing MissingKeys = "merge"
	// SplitMissing gives each record without a key its own group.
	SplitMissing MissingKeys = "split"
)

// KeyFunc extracts the grouping key from a record.
type KeyFunc func(record.Record) string

// ByField keys records by a field value, "" when absent.
func ByField(field string) KeyFunc {
	return func(r record.Record) string {
		return r.Value(field, "")
	}
}

// Group is a non-empty run of records sharing one key.
type Group struct {
	// ID is stable across runs for the same key.
	ID      string
	Key     string
	Records []record.Record
}

// First returns the record that supplies the group's representative metadata.
func (g *Group) First() record.Record { return g.Records[0] }

// Topic returns the representative topic.
func (g *Group) Topic() string { return g.First().Topic() }

// Subject returns the representative subject.
func (g *Group) Subject() string { return g.First().Subject() }

// Image returns the representative image reference.
func (g *Group) Image() string { return g.First().Image() }

// ImageDescription returns the representative image description.
func (g *Group) ImageDescription() string { return g.First().ImageDescription() }

// Len returns the number of records in the group.
func (g *Group) Len() int { return len(g.Records) }

// Set is an ordered collection of groups, in first-occurrence order of their keys.
type Set struct {
	groups []*Group
}

// Options configures By.
type Options struct {
	Key         KeyFunc
	MissingKeys MissingKeys
}

// By groups records by key, preserving first-occurrence order of keys and
// input order within each group.
func By(records []record.Record, opts Options) *Set {
	key := opts.Key
	if key == nil {
		key = ByField(record.FieldImage)
	}

	set := &Set{}
	index := make(map[string]*Group)

	for _, rec := range records {
		k := key(rec)
		if k == "" && opts.MissingKeys == SplitMissing {
			set.groups = append(set.groups, &Group{
				ID:      id.Stable(fmt.Sprintf("unkeyed:%d:%s", rec.Line(), rec.Raw())),
				Records: []record.Record{rec},
			})
			continue
		}

		g, ok := index[k]
		if !ok {
			g = &Group{ID: id.Stable(k), Key: k}
			index[k] = g
			set.groups = append(set.groups, g)
		}
		g.Records = append(g.Records, rec)
	}

	return set
}

// Len returns the number of groups.
func (s *Set) Len() int { return len(s.groups) }

// Groups returns the groups in order. The slice must not be modified.
func (s *Set) Groups() []*Group { return s.groups }

// Records returns the total number of records across groups.
func (s *Set) Records() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.Records)
	}
	return n
}

// FileName returns the report file name for the group at 1-based position n.
func FileName(n int) string {
	return fmt.Sprintf("question_%d.pdf", n)
}
