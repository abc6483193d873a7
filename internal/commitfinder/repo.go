package commitfinder

import (
	"context"
	"regexp"

	"github.com/chainaudit/chainaudit/internal/collab"
)

var hexSHAPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// ResolveRepositoryPURL implements spec §4.4.2: a version that looks like a
// commit SHA is tried as one first, falling back to a tag lookup.
func ResolveRepositoryPURL(ctx context.Context, repo collab.Repository, version string) Result {
	if version == "" {
		return Result{Outcome: NoVersionProvided}
	}
	if hexSHAPattern.MatchString(version) {
		if sha, err := repo.CommitForSHA(ctx, version); err == nil {
			return Result{CommitSHA: sha, Outcome: Matched}
		}
	}
	sha, err := repo.CommitForTag(ctx, version)
	if err != nil {
		return Result{Outcome: RepoPurlFailure}
	}
	return Result{CommitSHA: sha, Outcome: Matched}
}
