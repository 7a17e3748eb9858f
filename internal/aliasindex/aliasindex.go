// Package aliasindex builds the global topic -> source-file-stem map used to
// rewrite internal `\link{}` targets.
//
// The index is computed once per batch, before any document is lowered, and
// is then read-only for the remainder of the run.
package aliasindex

import (
	"sort"
	"strings"

	"github.com/rdocs/rd2qmd/internal/rdast"
	"github.com/rdocs/rd2qmd/internal/rderrors"
)

// Doc is one (file stem, parsed document) pair contributed to the index.
type Doc struct {
	Stem string
	Document *rdast.Document
}

// Index is the immutable topic -> stem map produced by Build.
type Index struct {
	topics map[string]string
}

// Resolve looks up topic, returning the stem of the document that declares
// it (via \name or \alias) and whether it was found. It implements
// lower.AliasResolver.
func (idx *Index) Resolve(topic string) (string, bool) {
	if idx == nil {
		return "", false
	}
	stem, ok := idx.topics[topic]
	return stem, ok
}

// Len reports the number of distinct topics indexed.
func (idx *Index) Len() int { return len(idx.topics) }

// Build collects every \name and \alias across docs into a single topic map.
// Collisions resolve deterministically: the entry from the lexicographically
// first file stem wins (sorting docs first makes Build's outcome independent
// of the order the caller happened to discover files in, so the result is
// the same across runs and thread counts). Losing
// collisions are returned as DuplicateAlias diagnostics, not errors.
func Build(docs []Doc) (*Index, []*rderrors.ClassifiedError) {
	sorted := make([]Doc, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Stem < sorted[j].Stem })

	topics := make(map[string]string, len(sorted)*2)
	var diags []*rderrors.ClassifiedError

	claim := func(topic, stem string) {
		if topic == "" {
			return
		}
		if winner, exists := topics[topic]; exists {
			if winner != stem {
				diags = append(diags, rderrors.Warning(rderrors.CategoryLower, "duplicate alias").
					WithContext("topic", topic).
					WithContext("winner", winner).
					WithContext("loser", stem))
			}
			return
		}
		topics[topic] = stem
	}

	for _, d := range sorted {
		if d.Document == nil {
			continue
		}
		for _, sec := range d.Document.Sections {
			switch sec.Tag.Kind {
			case rdast.Name:
				claim(strings.TrimSpace(rdast.Flatten(sec.Body)), d.Stem)
			case rdast.Alias:
				claim(strings.TrimSpace(rdast.Flatten(sec.Body)), d.Stem)
			}
		}
	}

	return &Index{topics: topics}, diags
}
