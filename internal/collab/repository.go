package collab

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitRepository is the production Repository backed by a local go-git
// checkout (spec §4.4.3's tag enumeration and commit lookups).
type GitRepository struct {
	repo *git.Repository
	path string
}

// OpenRepository opens an existing checkout (plain or bare) at path.
func OpenRepository(path string) (*GitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}
	return &GitRepository{repo: repo, path: path}, nil
}

func (g *GitRepository) FSPath() string { return g.path }

// Tags enumerates refs/tags/*, peeling annotated tags to their target
// commit. A tag that cannot be resolved to a commit is skipped rather than
// failing the whole enumeration, matching "enumerate tags whose head commit
// is retrievable" (§4.4.3 step 1).
func (g *GitRepository) Tags(ctx context.Context) ([]Tag, error) {
	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	var out []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hash, err := g.repo.ResolveRevision(plumbing.Revision(ref.Name().String()))
		if err != nil {
			return nil // unresolvable tag: omitted, not an error
		}
		out = append(out, Tag{Name: ref.Name().Short(), Commit: hash.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GitRepository) CommitForTag(ctx context.Context, tag string) (string, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(plumbing.NewTagReferenceName(tag)))
	if err != nil {
		return "", fmt.Errorf("resolve tag %s: %w", tag, err)
	}
	return hash.String(), nil
}

func (g *GitRepository) CommitForSHA(ctx context.Context, prefix string) (string, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(prefix))
	if err != nil {
		return "", fmt.Errorf("resolve sha %s: %w", prefix, err)
	}
	if _, err := g.repo.CommitObject(*hash); err != nil {
		return "", fmt.Errorf("sha %s is not a commit: %w", prefix, err)
	}
	return hash.String(), nil
}

func (g *GitRepository) HeadCommit(ctx context.Context) (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (g *GitRepository) DefaultBranch(ctx context.Context) (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Name().Short(), nil
}
