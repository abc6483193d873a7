// Package commitfinder implements spec §4.4: resolving a PURL + version to
// the commit that produced it, grounded on
// original_source/src/macaron/slsa_analyzer/git_url.py's version-to-tag
// matching (the teacher module has no equivalent; this is built directly
// from the distilled algorithm and the original Python it was distilled
// from).
package commitfinder

// Outcome is the closed enumeration of spec §6: "a pair (commit_sha | None,
// CommitFinderOutcome)". Exactly one is returned per call (spec §8's
// partition property).
type Outcome string

const (
	Matched             Outcome = "MATCHED"
	NoVersionProvided    Outcome = "NO_VERSION_PROVIDED"
	UnsupportedPurlType  Outcome = "UNSUPPORTED_PURL_TYPE"
	InvalidVersion       Outcome = "INVALID_VERSION"
	RepoPurlFailure      Outcome = "REPO_PURL_FAILURE"
	NoTags               Outcome = "NO_TAGS"
	NoTagsWithCommits    Outcome = "NO_TAGS_WITH_COMMITS"
	NoTagsMatched        Outcome = "NO_TAGS_MATCHED"
	RegexCompileFailure  Outcome = "REGEX_COMPILE_FAILURE"
	NoTagCommit          Outcome = "NO_TAG_COMMIT"
	NotUsed              Outcome = "NOT_USED"
)

// Result is the commit finder's return value: a resolved SHA (empty when
// unresolved) paired with the outcome that produced it.
type Result struct {
	CommitSHA string
	Outcome   Outcome
}
