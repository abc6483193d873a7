package commitfinder

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chainaudit/chainaudit/internal/collab"
)

// candidate is one tag considered as a match for a queried version, carrying
// the pieces the constructed pattern captured out of it.
type candidate struct {
	tag       collab.Tag
	prefix    string
	prefixSep string
	version   string
	suffix    string
	suffixSep string
}

// almostExactPattern implements the Python original's fast path: a tag that
// is, up to an optional name and separator, exactly the queried version.
// Unlike the constructed pattern this has no backreferences or lookaround in
// the original, so it ports directly.
func almostExactPattern(name, version string) *regexp.Regexp {
	escapedName := regexp.QuoteMeta(name)
	escapedVersion := regexp.QuoteMeta(version)
	pattern := `(?i)^(?:` + escapedName + `)?[^0-9a-z]?v?` + escapedVersion + `$`
	return regexp.MustCompile(pattern)
}

// matchTags implements find_commit_from_version_and_name / match_tags (spec
// §4.4.3-5): find the tag among tags whose name best corresponds to the
// queried artifact name and version, returning the matched tag's name and
// the outcome.
func matchTags(tags []collab.Tag, name, version string) (string, Outcome) {
	if len(tags) == 0 {
		return "", NoTags
	}

	exact := almostExactPattern(name, version)
	var exactMatches []collab.Tag
	for _, t := range tags {
		if exact.MatchString(t.Name) {
			exactMatches = append(exactMatches, t)
		}
	}
	if len(exactMatches) == 1 {
		return exactMatches[0].Name, Matched
	}

	pattern, versionParts, outcome := buildVersionPattern(name, version)
	if outcome != Matched {
		return "", outcome
	}

	pool := tags
	if len(exactMatches) > 1 {
		pool = exactMatches
	}

	var candidates []candidate
	groupIndex := map[string]int{}
	for i, g := range pattern.SubexpNames() {
		if g != "" {
			groupIndex[g] = i
		}
	}
	for _, t := range pool {
		m := pattern.FindStringSubmatch(t.Name)
		if m == nil {
			continue
		}
		c := candidate{tag: t}
		if i, ok := groupIndex["prefix1"]; ok && i < len(m) {
			c.prefix = m[i]
		}
		if c.prefix == "" {
			if i, ok := groupIndex["prefix2"]; ok && i < len(m) {
				c.prefix = m[i]
			}
		}
		if c.prefix == "" {
			if i, ok := groupIndex["prefix0"]; ok && i < len(m) {
				c.prefix = m[i]
			}
		}
		if i, ok := groupIndex["prefixsep"]; ok && i < len(m) {
			c.prefixSep = m[i]
		}
		if i, ok := groupIndex["version"]; ok && i < len(m) {
			c.version = m[i]
		}
		if i, ok := groupIndex["suffixsep"]; ok && i < len(m) {
			c.suffixSep = m[i]
		}
		if i, ok := groupIndex["suffix"]; ok && i < len(m) {
			c.suffix = m[i]
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return "", NoTagsMatched
	}

	candidates = fixMisalignedTagMatches(candidates, version)
	candidates = filterByNamePrefix(candidates, name)
	if len(candidates) == 0 {
		return "", NoTagsMatched
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si := tagVersionSimilarity(candidates[i].prefix, candidates[i].prefixSep, candidates[i].version, candidates[i].suffix, candidates[i].suffixSep, versionParts, version, name)
		sj := tagVersionSimilarity(candidates[j].prefix, candidates[j].prefixSep, candidates[j].version, candidates[j].suffix, candidates[j].suffixSep, versionParts, version, name)
		return si < sj
	})
	return candidates[0].tag.Name, Matched
}

// fixMisalignedTagMatches implements _fix_misaligned_tag_matches: a tag
// whose prefix ends with a version-like fragment (an optional v/r/c marker
// followed by digits) may have been misaligned by the constructed pattern,
// e.g. tag "v6.3.1" matched against queried version "6.3.1" can land with
// prefix "v6" and version "3.1" instead of prefix "v" and version "6.3.1".
// When the prefix's own separator matches the queried version's leading
// separator, the trailing fragment is moved from the prefix into the
// version; a candidate whose reattached version doesn't plausibly contain
// the queried version's parts is dropped outright rather than kept
// unmodified, matching the Python original's bare `continue`.
func fixMisalignedTagMatches(candidates []candidate, version string) []candidate {
	if len(candidates) == 0 {
		return candidates
	}
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if version == "" {
			continue
		}
		if c.prefix == "" {
			out = append(out, c)
			continue
		}

		versionSeps := splitSeparators(version)
		var versionSep string
		if len(versionSeps) > 0 {
			versionSep = versionSeps[0]
		}
		prefixes, _, _ := splitVersion(c.prefix)
		prefixSeparators := splitSeparators(c.prefix)

		if len(prefixes) == 0 || !versionLikePrefixPart.MatchString(prefixes[len(prefixes)-1]) {
			out = append(out, c)
			continue
		}
		if versionSep == "" || versionSep != c.prefixSep {
			out = append(out, c)
			continue
		}

		var newPrefix strings.Builder
		for i := 0; i < len(prefixes)-1; i++ {
			if i > 0 {
				newPrefix.WriteString(prefixSeparators[i-1])
			}
			newPrefix.WriteString(prefixes[i])
		}

		lastPrefixPart := prefixes[len(prefixes)-1]
		versionParts, _, _ := splitVersion(version)
		if len(versionParts) == 0 || !strings.Contains(lastPrefixPart, versionParts[0]) {
			// The prefix's version-like fragment doesn't correspond to the
			// sought version: reject the match.
			continue
		}

		newVersion := lastPrefixPart + versionSep + c.version
		newParts, _, _ := splitVersion(newVersion)
		badMatch := false
		n := len(newParts)
		if len(versionParts) < n {
			n = len(versionParts)
		}
		for i := 0; i < n; i++ {
			if !strings.Contains(newParts[i], versionParts[i]) {
				badMatch = true
				break
			}
		}
		if badMatch {
			continue
		}

		c.prefix = newPrefix.String()
		c.version = newVersion
		out = append(out, c)
	}
	return out
}

// filterByNamePrefix implements the name-prefix filter in match_tags: when
// more than one candidate remains and at least one candidate's prefix
// contains the artifact name, discard the candidates whose prefix does not.
func filterByNamePrefix(candidates []candidate, name string) []candidate {
	if len(candidates) <= 1 || name == "" {
		return candidates
	}
	lowerName := strings.ToLower(name)
	var withName []candidate
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.prefix), lowerName) {
			withName = append(withName, c)
		}
	}
	if len(withName) > 0 {
		return withName
	}
	return candidates
}
