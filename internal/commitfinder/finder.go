package commitfinder

import (
	"context"

	"github.com/package-url/packageurl-go"

	"github.com/chainaudit/chainaudit/internal/collab"
)

// Find implements spec §4.4's top-level find_commit: resolve purlStr (and an
// optional version override) to the commit that produced it, using repo as
// the already-opened checkout to search. When purlStr names an artifact,
// registry is first asked for the publishing repository (see
// findArtifactCommit).
func Find(ctx context.Context, purlStr string, version string, repo collab.Repository, registry collab.RegistryClient) Result {
	purl, err := packageurl.FromString(purlStr)
	if err != nil {
		return Result{Outcome: InvalidVersion}
	}
	if version == "" {
		version = purl.Version
	}

	switch DetermineAbstractPurlType(purl) {
	case Repository:
		return ResolveRepositoryPURL(ctx, repo, version)
	case Artifact:
		return findArtifactCommit(ctx, purl, version, repo, registry)
	default:
		return Result{Outcome: UnsupportedPurlType}
	}
}

// findArtifactCommit implements the artifact-type PURL path of spec
// §4.4.3: a non-nil registry collaborator is asked for the publishing
// repository's URL, and a failed lookup returns RepoPurlFailure; the URL
// itself is not used. The queried version is then matched against repo's
// tags.
func findArtifactCommit(ctx context.Context, purl packageurl.PackageURL, version string, repo collab.Repository, registry collab.RegistryClient) Result {
	if version == "" {
		return Result{Outcome: NoVersionProvided}
	}
	if registry != nil {
		if _, err := registry.RepositoryURL(ctx, purl.Type, purl.Namespace, purl.Name); err != nil {
			return Result{Outcome: RepoPurlFailure}
		}
	}

	tags, err := repo.Tags(ctx)
	if err != nil || len(tags) == 0 {
		return Result{Outcome: NoTags}
	}

	var withCommits []collab.Tag
	for _, t := range tags {
		if t.Commit != "" {
			withCommits = append(withCommits, t)
		}
	}
	if len(withCommits) == 0 {
		return Result{Outcome: NoTagsWithCommits}
	}

	tagName, outcome := matchTags(withCommits, purl.Name, version)
	if outcome != Matched {
		return Result{Outcome: outcome}
	}

	for _, t := range withCommits {
		if t.Name == tagName {
			if t.Commit == "" {
				return Result{Outcome: NoTagCommit}
			}
			return Result{CommitSHA: t.Commit, Outcome: Matched}
		}
	}
	return Result{Outcome: NoTagCommit}
}
