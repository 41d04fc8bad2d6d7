// Package gitsync orchestrates the full git-over-object-store commit
// pipeline: validate the request, stage a fresh destination prefix,
// resolve the parent commit, extract the tar into path edits, rebuild
// the tree, assemble the commit, and persist everything with
// write-before-publish ordering.
package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antgroup/gitsync/modules/commitassemble"
	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/prefixcopy"
	"github.com/antgroup/gitsync/modules/refstore"
	"github.com/antgroup/gitsync/modules/tarextract"
	"github.com/antgroup/gitsync/modules/treebuild"
)

// RepoRef names a repository root under an object-store bucket, plus a
// ref name or tag inside it.
type RepoRef struct {
	Prefix string `json:"prefix"`
	Ref    string `json:"ref"`
}

// Request is the normative CommitRequest shape from spec.md §6.
type Request struct {
	BaseRepo RepoRef                 `json:"base_repo"`
	NewRepo  RepoRef                 `json:"new_repo"`
	Tar      string                  `json:"tar"`
	Author   commitassemble.Identity `json:"author"`
	Message  string                  `json:"message"`
}

// Touched is always reported with Deleted empty: deletion edits are not
// part of v1 (spec.md §9 Open Questions resolves this as "return an
// empty list unconditionally").
type Touched struct {
	AddedOrUpdated []string `json:"added_or_updated"`
	Deleted        []string `json:"deleted"`
}

// Response is the HTTP 200 response body from spec.md §6.
type Response struct {
	ParentCommitOID string  `json:"parent_commit_oid"`
	NewCommitOID    string  `json:"new_commit_oid"`
	NewRepoPrefix   string  `json:"new_repo_prefix"`
	NewRepoRef      string  `json:"new_repo_ref"`
	Touched         Touched `json:"touched"`
}

// SyncError is the one typed error every step of the orchestrator
// produces, carrying the stable error code and HTTP status the
// httpapi layer translates it into 1:1.
type SyncError struct {
	Code   string
	Status int
	Err    error
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func newError(status int, code string, err error) *SyncError {
	return &SyncError{Status: status, Code: code, Err: err}
}

// Deps are the collaborators the orchestrator needs for one request: the
// two object-store adapters named in spec.md §6 and, for tests, an
// injectable clock.
type Deps struct {
	ReposAdapter        objstore.Adapter
	FileTransferAdapter objstore.Adapter
	Clock               func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

// Run sequences spec.md §4.8's 14 steps and returns the response body on
// success or a *SyncError identifying exactly which step failed.
func Run(ctx context.Context, deps Deps, req Request) (*Response, *SyncError) {
	// 1. validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. ensure destination empty
	if err := prefixcopy.EnsureEmpty(ctx, deps.ReposAdapter, req.NewRepo.Prefix); err != nil {
		if errors.Is(err, prefixcopy.ErrPrefixNotEmpty) {
			return nil, newError(http.StatusConflict, "new_repo_not_empty", err)
		}
		return nil, newError(http.StatusInternalServerError, "internal", err)
	}

	// 3. copy base prefix
	if _, err := prefixcopy.Copy(ctx, deps.ReposAdapter, req.BaseRepo.Prefix, req.NewRepo.Prefix); err != nil {
		return nil, newError(http.StatusInternalServerError, "repo_copy_failed", err)
	}

	// 4. load refs at destination
	refs := refstore.New(deps.ReposAdapter, req.NewRepo.Prefix)
	if err := refs.Load(ctx); err != nil {
		return nil, newError(http.StatusInternalServerError, "internal", err)
	}

	// 5. resolve parent via refs/tags/<base_ref>, then refs/heads/<base_ref>, then raw.
	// A repository with no refs at all (nothing copied from an empty base
	// prefix) has no parent by construction, rather than a not-found ref.
	var parentSha plumbing.Hash
	if !refs.Empty() {
		resolved, ok := refs.Resolve(req.BaseRepo.Ref)
		if !ok {
			return nil, newError(http.StatusNotFound, "base_repo_tag_not_found", fmt.Errorf("ref %q not found under %s", req.BaseRepo.Ref, req.BaseRepo.Prefix))
		}
		parentSha = resolved
	}

	store, err := gitobj.NewStore(deps.ReposAdapter, req.NewRepo.Prefix)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "internal", err)
	}

	// 6. fetch and type-check the parent commit
	var parentTree plumbing.Hash
	if !parentSha.IsZero() {
		obj, err := store.Fetch(ctx, parentSha)
		if err != nil {
			return nil, newError(http.StatusNotFound, "parent_commit_not_found", err)
		}
		commit, ok := obj.(*gitobj.Commit)
		if !ok {
			return nil, newError(http.StatusNotFound, "parent_commit_not_found", fmt.Errorf("%s is not a commit", parentSha))
		}

		// 7. fetch the parent tree
		treeObj, err := store.Fetch(ctx, commit.TreeHash)
		if err != nil {
			return nil, newError(http.StatusNotFound, "parent_tree_not_found", err)
		}
		if _, ok := treeObj.(*gitobj.Tree); !ok {
			return nil, newError(http.StatusNotFound, "parent_tree_not_found", fmt.Errorf("%s is not a tree", commit.TreeHash))
		}
		parentTree = commit.TreeHash
	}

	// 8. fetch the tar and stream-extract edits
	tarData, err := deps.FileTransferAdapter.Get(ctx, req.Tar)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return nil, newError(http.StatusNotFound, "tar_not_found", err)
		}
		return nil, newError(http.StatusInternalServerError, "internal", err)
	}

	edits, err := tarextract.Extract(bytes.NewReader(tarData), isGzip(req.Tar))
	if err != nil {
		// 9. validate edit paths
		var invalid *tarextract.ErrInvalidPath
		switch {
		case errors.As(err, &invalid):
			return nil, newError(http.StatusBadRequest, "invalid_path", err)
		case errors.Is(err, tarextract.ErrEmptyTar):
			return nil, newError(http.StatusBadRequest, "empty_tar", err)
		default:
			return nil, newError(http.StatusBadRequest, "invalid_tar", err)
		}
	}

	// 10. build tree
	rootTree, err := treebuild.Build(ctx, store, parentTree, edits)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "tree_build_failed", err)
	}

	// 11-13. create commit, flush objects, store refs (ordering enforced inside Create)
	branch := plumbing.ReferenceName(req.NewRepo.Ref)
	newSha, err := commitassemble.Create(ctx, store, refs, branch, parentSha, rootTree, req.Author, req.Message, deps.now())
	if err != nil {
		var flushErr *commitassemble.FlushError
		var refErr *commitassemble.RefUpdateError
		switch {
		case errors.As(err, &flushErr), errors.As(err, &refErr):
			return nil, newError(http.StatusInternalServerError, "r2_write_failed", err)
		default:
			return nil, newError(http.StatusInternalServerError, "commit_creation_failed", err)
		}
	}

	addedOrUpdated := make([]string, len(edits))
	for i, e := range edits {
		addedOrUpdated[i] = e.Path
	}

	// 14. respond
	return &Response{
		ParentCommitOID: parentSha.String(),
		NewCommitOID:    newSha.String(),
		NewRepoPrefix:   req.NewRepo.Prefix,
		NewRepoRef:      req.NewRepo.Ref,
		Touched: Touched{
			AddedOrUpdated: addedOrUpdated,
			Deleted:        []string{},
		},
	}, nil
}

func validate(req Request) *SyncError {
	switch {
	case strings.TrimSpace(req.BaseRepo.Prefix) == "":
		return newError(http.StatusBadRequest, "empty_repo_prefix", errors.New("base_repo.prefix is empty"))
	case strings.TrimSpace(req.BaseRepo.Ref) == "":
		return newError(http.StatusBadRequest, "empty_repo_ref", errors.New("base_repo.ref is empty"))
	case strings.TrimSpace(req.NewRepo.Prefix) == "":
		return newError(http.StatusBadRequest, "empty_repo_prefix", errors.New("new_repo.prefix is empty"))
	case strings.TrimSpace(req.NewRepo.Ref) == "":
		return newError(http.StatusBadRequest, "empty_repo_ref", errors.New("new_repo.ref is empty"))
	case strings.TrimSpace(req.Tar) == "":
		return newError(http.StatusBadRequest, "empty_tar_path", errors.New("tar is empty"))
	case strings.TrimSpace(req.Author.Name) == "", strings.TrimSpace(req.Author.Email) == "":
		return newError(http.StatusBadRequest, "invalid_author", errors.New("author requires both name and email"))
	case strings.TrimSpace(req.Message) == "":
		return newError(http.StatusBadRequest, "empty_commit_message", errors.New("message is empty"))
	}
	return nil
}

func isGzip(key string) bool {
	return strings.HasSuffix(key, ".tar.gz") || strings.HasSuffix(key, ".tgz")
}
