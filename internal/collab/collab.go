// Package collab defines the external collaborator interfaces of spec §6:
// Repository, RegistryClient, and ParserProcess. The core (internal/ir,
// internal/interp, internal/commitfinder) only ever depends on these
// interfaces — production implementations backed by go-git and
// go-retryablehttp live alongside them, but nothing in the core imports
// those libraries directly.
package collab

import "context"

// Tag is one repository tag: its ref name and the commit it currently
// points at.
type Tag struct {
	Name   string
	Commit string
}

// Repository exposes the subset of a git checkout the commit finder and the
// `*.sh`-invocation resolver need (spec §6's repository handle).
type Repository interface {
	// Tags enumerates every tag whose head commit is retrievable. A tag
	// whose object cannot be resolved to a commit is simply omitted, not
	// an error — the caller distinguishes NO_TAGS (empty result) from
	// NO_TAGS_WITH_COMMITS itself.
	Tags(ctx context.Context) ([]Tag, error)
	// CommitForTag resolves a tag name to its head commit SHA.
	CommitForTag(ctx context.Context, tag string) (string, error)
	// CommitForSHA resolves a (possibly abbreviated) commit SHA prefix to
	// its full SHA, confirming the object exists.
	CommitForSHA(ctx context.Context, prefix string) (string, error)
	HeadCommit(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
	// FSPath returns the checkout's root directory, used to resolve
	// relative `./foo.sh` invocations encountered while building IR.
	FSPath() string
}

// RegistryClient resolves an artifact-type PURL to the repository URL that
// publishes it (the deps.dev-style lookup of spec §4.4.3 step 0: knowing
// *which* repository's tags to search).
type RegistryClient interface {
	RepositoryURL(ctx context.Context, purlType, namespace, name string) (string, error)
}

// ParserProcess is the subprocess contract of spec §4.1: stdin is source
// bytes, stdout is a JSON AST. internal/parsesvc's cache wraps an
// implementation of this interface.
type ParserProcess interface {
	ParseWorkflow(ctx context.Context, source []byte) ([]byte, error)
	ParseBash(ctx context.Context, source []byte) ([]byte, error)
}
