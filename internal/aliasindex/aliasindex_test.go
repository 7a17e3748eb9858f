package aliasindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdocs/rd2qmd/internal/rdparse"
)

func parse(t *testing.T, src string) Doc {
	t.Helper()
	doc, diags := rdparse.Parse([]byte(src))
	require.Empty(t, diags)
	return Doc{Document: doc}
}

func TestBuild_IndexesNameAndAlias(t *testing.T) {
	foo := parse(t, `\name{foo}\alias{bar}`)
	foo.Stem = "foo"

	idx, diags := Build([]Doc{foo})
	require.Empty(t, diags)

	stem, ok := idx.Resolve("foo")
	require.True(t, ok)
	require.Equal(t, "foo", stem)

	stem, ok = idx.Resolve("bar")
	require.True(t, ok)
	require.Equal(t, "foo", stem)

	require.Equal(t, 2, idx.Len())
}

func TestBuild_CollisionResolvesToLexicographicallyFirstStem(t *testing.T) {
	later := parse(t, `\name{shared}`)
	later.Stem = "zzz"
	earlier := parse(t, `\name{shared}`)
	earlier.Stem = "aaa"

	idx, diags := Build([]Doc{later, earlier})
	require.Len(t, diags, 1)

	stem, ok := idx.Resolve("shared")
	require.True(t, ok)
	require.Equal(t, "aaa", stem)
}

func TestBuild_DeterministicAcrossInputOrder(t *testing.T) {
	a := parse(t, `\name{a}\alias{shared}`)
	a.Stem = "a"
	b := parse(t, `\name{b}\alias{shared}`)
	b.Stem = "b"

	idx1, _ := Build([]Doc{a, b})
	idx2, _ := Build([]Doc{b, a})

	s1, _ := idx1.Resolve("shared")
	s2, _ := idx2.Resolve("shared")
	require.Equal(t, s1, s2)
}

func TestBuild_MissingTopicNotFound(t *testing.T) {
	idx, diags := Build(nil)
	require.Empty(t, diags)

	_, ok := idx.Resolve("anything")
	require.False(t, ok)
}
