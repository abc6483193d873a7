package commitfinder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/collab"
)

var errNotFound = errors.New("not found")

type fakeRepository struct {
	tags      map[string]string
	shas      map[string]string
	headSHA   string
	defBranch string
}

func (f *fakeRepository) Tags(ctx context.Context) ([]collab.Tag, error) { return nil, nil }
func (f *fakeRepository) CommitForTag(ctx context.Context, tag string) (string, error) {
	sha, ok := f.tags[tag]
	if !ok {
		return "", errNotFound
	}
	return sha, nil
}
func (f *fakeRepository) CommitForSHA(ctx context.Context, prefix string) (string, error) {
	sha, ok := f.shas[prefix]
	if !ok {
		return "", errNotFound
	}
	return sha, nil
}
func (f *fakeRepository) HeadCommit(ctx context.Context) (string, error)     { return f.headSHA, nil }
func (f *fakeRepository) DefaultBranch(ctx context.Context) (string, error) { return f.defBranch, nil }
func (f *fakeRepository) FSPath() string                                    { return "/repo" }

// Scenario 6 of spec §8: tags empty, version is a full commit SHA, PURL
// type github, resolves directly to that commit with outcome MATCHED.
func TestResolveRepositoryPURL_ScenarioSix(t *testing.T) {
	sha := "ba3fcb0c84d6727de343c247a3181908fcd78410"
	repo := &fakeRepository{shas: map[string]string{sha: sha}}

	result := ResolveRepositoryPURL(context.Background(), repo, sha)
	require.Equal(t, Matched, result.Outcome)
	require.Equal(t, sha, result.CommitSHA)
}

func TestResolveRepositoryPURL_NoVersion(t *testing.T) {
	repo := &fakeRepository{}
	result := ResolveRepositoryPURL(context.Background(), repo, "")
	require.Equal(t, NoVersionProvided, result.Outcome)
}

func TestResolveRepositoryPURL_TagFallback(t *testing.T) {
	repo := &fakeRepository{tags: map[string]string{"v1.0.0": "deadbeef"}}
	result := ResolveRepositoryPURL(context.Background(), repo, "v1.0.0")
	require.Equal(t, Matched, result.Outcome)
	require.Equal(t, "deadbeef", result.CommitSHA)
}
