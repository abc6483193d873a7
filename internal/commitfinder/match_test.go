package commitfinder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/collab"
)

// Scenario 5 of spec §8: tags ["v1.0.3+test", "test-name-v1.0.1-A",
// "v_1.0.5"], query name="test-name-1", version="1.0.1-A" matches
// "test-name-v1.0.1-A".
func TestMatchTags_ScenarioFive(t *testing.T) {
	tags := []collab.Tag{
		{Name: "v1.0.3+test", Commit: "c1"},
		{Name: "test-name-v1.0.1-A", Commit: "c2"},
		{Name: "v_1.0.5", Commit: "c3"},
	}

	name, outcome := matchTags(tags, "test-name-1", "1.0.1-A")
	require.Equal(t, Matched, outcome)
	require.Equal(t, "test-name-v1.0.1-A", name)
}

func TestMatchTags_NoTags(t *testing.T) {
	name, outcome := matchTags(nil, "left-pad", "1.3.0")
	require.Equal(t, NoTags, outcome)
	require.Empty(t, name)
}

func TestMatchTags_ExactSingleHit(t *testing.T) {
	tags := []collab.Tag{
		{Name: "v2.0.0", Commit: "abc"},
		{Name: "v2.0.0-rc1", Commit: "def"},
	}
	name, outcome := matchTags(tags, "", "2.0.0")
	require.Equal(t, Matched, outcome)
	require.Equal(t, "v2.0.0", name)
}

// Docstring example of _fix_misaligned_tag_matches: tag "v6.3.1" matched
// against queried version "6.3.1" can land with prefix "v6" (instead of
// "v") and version "3.1" (instead of "6.3.1"). The fixup moves the
// version-like "v6" fragment out of the prefix and back into the version.
func TestFixMisalignedTagMatches_MovesVersionLikePrefixIntoVersion(t *testing.T) {
	candidates := []candidate{
		{tag: collab.Tag{Name: "v6.3.1"}, prefix: "v6", prefixSep: ".", version: "3.1"},
	}

	fixed := fixMisalignedTagMatches(candidates, "6.3.1")
	require.Len(t, fixed, 1)
	require.Equal(t, "", fixed[0].prefix)
	require.Equal(t, "v6.3.1", fixed[0].version)
}

func TestFixMisalignedTagMatches_RejectsWhenFragmentDoesNotMatchVersion(t *testing.T) {
	candidates := []candidate{
		{tag: collab.Tag{Name: "v9.3.1"}, prefix: "v9", prefixSep: ".", version: "3.1"},
	}

	fixed := fixMisalignedTagMatches(candidates, "6.3.1")
	require.Empty(t, fixed)
}

func TestFixMisalignedTagMatches_PassesThroughNonVersionLikePrefix(t *testing.T) {
	candidates := []candidate{
		{tag: collab.Tag{Name: "release-1.0.0"}, prefix: "release", prefixSep: "-", version: "1.0.0"},
	}

	fixed := fixMisalignedTagMatches(candidates, "1.0.0")
	require.Len(t, fixed, 1)
	require.Equal(t, "release", fixed[0].prefix)
	require.Equal(t, "1.0.0", fixed[0].version)
}

func TestFixMisalignedTagMatches_PassesThroughEmptyPrefix(t *testing.T) {
	candidates := []candidate{
		{tag: collab.Tag{Name: "1.0.0"}, version: "1.0.0"},
	}

	fixed := fixMisalignedTagMatches(candidates, "1.0.0")
	require.Len(t, fixed, 1)
	require.Equal(t, "", fixed[0].prefix)
}

func TestBuildVersionPattern_RoundTrip(t *testing.T) {
	// Round-trip / idempotence property of spec §8: compiling the same
	// version pattern twice yields regexes that accept the same language.
	re1, parts1, outcome1 := buildVersionPattern("widget", "1.2.3")
	re2, parts2, outcome2 := buildVersionPattern("widget", "1.2.3")
	require.Equal(t, Matched, outcome1)
	require.Equal(t, Matched, outcome2)
	require.Equal(t, parts1, parts2)
	require.Equal(t, re1.String(), re2.String())

	candidates := []string{"v1.2.3", "widget-v1.2.3", "1.2.3-rc1", "not-a-match"}
	for _, c := range candidates {
		require.Equal(t, re1.MatchString(c), re2.MatchString(c), "candidate %q", c)
	}
}
