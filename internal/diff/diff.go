// Package diff computes section-grouped, field-level change-sets between two
// resume snapshots.
//
// Sections are reported in the fixed order Personal Info, Experience,
// Education, Skills, Projects. List entries are matched by position unless
// identity matching is requested, in which case entries are paired by block id.
// Absent entries compare as entries whose fields are all empty. Layout
// attributes and container blocks never produce differences.
package diff

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
)

type Status string

const (
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
)

// Match selects how list entries of the two sides are paired.
type Match string

const (
	MatchPosition Match = "position"
	MatchID       Match = "id"
)

// ParseMatch parses a match strategy name; "" means position.
func ParseMatch(s string) (Match, error) {
	switch Match(s) {
	case "", MatchPosition:
		return MatchPosition, nil
	case MatchID:
		return MatchID, nil
	}
	return "", fmt.Errorf("unknown diff match strategy %q (want position or id)", s)
}

// Field is one compared field. Entry is the 1-based position of the list
// entry it belongs to, 0 for scalar sections.
type Field struct {
	Section string `json:"section"`
	Label   string `json:"label"`
	Key     string `json:"key"`
	Entry   int    `json:"entry,omitempty"`
	ValueA  string `json:"value_a"`
	ValueB  string `json:"value_b"`
	Status  Status `json:"status"`
	Patch   string `json:"patch,omitempty"`
}

type options struct {
	match   Match
	patches bool
}

type Option func(*options)

// WithMatch selects the list matching strategy.
func WithMatch(m Match) Option {
	return func(o *options) {
		o.match = m
	}
}

// WithPatches attaches a unified line patch to modified multi-line values.
func WithPatches() Option {
	return func(o *options) {
		o.patches = true
	}
}

// Diff returns the fields that differ between a and b. A nil snapshot is
// treated as empty.
func Diff(a, b *snapshot.Snapshot, opts ...Option) []Field {
	return slices.DeleteFunc(Full(a, b, opts...), func(f Field) bool {
		return f.Status == StatusUnchanged
	})
}

// Full is Diff without filtering out unchanged fields.
func Full(a, b *snapshot.Snapshot, opts ...Option) []Field {
	o := options{match: MatchPosition}
	for _, opt := range opts {
		opt(&o)
	}
	if a == nil {
		a = snapshot.Empty()
	}
	if b == nil {
		b = snapshot.Empty()
	}

	da, db := a.Document(), b.Document()
	var out []Field
	for _, sec := range model.Sections {
		pairs := pairEntries(da.Entries(sec), db.Entries(sec), sec.List, o.match)
		for i, p := range pairs {
			entry := 0
			if sec.List {
				entry = i + 1
			}
			for _, f := range fieldsOf(sec, p) {
				va, vb := p.a.Get(f.Key), p.b.Get(f.Key)
				field := Field{
					Section: sec.Name,
					Label:   label(sec, entry, f.Label),
					Key:     f.Key,
					Entry:   entry,
					ValueA:  va,
					ValueB:  vb,
					Status:  statusOf(va, vb),
				}
				if o.patches && field.Status == StatusModified && multiline(va, vb) {
					field.Patch = patch(field.Label, va, vb)
				}
				out = append(out, field)
			}
		}
	}
	return out
}

func statusOf(a, b string) Status {
	switch {
	case a == "" && b != "":
		return StatusAdded
	case a != "" && b == "":
		return StatusRemoved
	case a != b:
		return StatusModified
	}
	return StatusUnchanged
}

type pair struct {
	a, b snapshot.Entry
}

func pairEntries(a, b []snapshot.Entry, list bool, m Match) []pair {
	if !list || m != MatchID {
		n := max(len(a), len(b))
		out := make([]pair, n)
		for i := range n {
			if i < len(a) {
				out[i].a = a[i]
			}
			if i < len(b) {
				out[i].b = b[i]
			}
		}
		return out
	}

	byID := make(map[string]snapshot.Entry, len(a))
	for _, e := range a {
		byID[e.ID] = e
	}
	out := make([]pair, 0, max(len(a), len(b)))
	matched := make(map[string]bool, len(b))
	for _, e := range b {
		p := pair{b: e}
		if prev, ok := byID[e.ID]; ok {
			p.a = prev
			matched[e.ID] = true
		}
		out = append(out, p)
	}
	for _, e := range a {
		if !matched[e.ID] {
			out = append(out, pair{a: e})
		}
	}
	return out
}

// fieldsOf returns the section's declared fields followed by any undeclared
// keys present on either side, sorted.
func fieldsOf(sec model.Section, p pair) []model.Field {
	fields := slices.Clone(sec.Fields)
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Key] = true
	}
	var extra []string
	for _, m := range []map[string]string{p.a.Fields, p.b.Fields} {
		for k := range m {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	slices.Sort(extra)
	for _, k := range extra {
		fields = append(fields, model.Field{Key: k, Label: titleCase(k)})
	}
	return fields
}

func label(sec model.Section, entry int, field string) string {
	if !sec.List {
		return field
	}
	return fmt.Sprintf("%s %d - %s", sec.EntryName, entry, field)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func multiline(a, b string) bool {
	return strings.Contains(a, "\n") || strings.Contains(b, "\n")
}

func patch(name, a, b string) string {
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return s
}
