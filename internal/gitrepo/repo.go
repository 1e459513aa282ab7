// Package gitrepo provides Git repository utilities for tagrel including
// release tag detection, remote parsing, and worktree state checks. It uses
// the go-git library so core operations work without a git CLI installation.
package gitrepo

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// openRepo opens a git repository at the specified path or current working
// directory, traversing up the directory tree to find the repository root.
func openRepo(path string) (*git.Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	return repo, nil
}

// IsGitRepository checks if the given directory is within a git repository.
func IsGitRepository(path string) bool {
	_, err := openRepo(path)
	result := err == nil
	logDebug("[git] IsGitRepository: %v", result)
	return result
}

// TagsAtHead returns the names of all tags pointing at the current HEAD
// commit, sorted lexically. Annotated tags are followed to their target.
func TagsAtHead(path string) ([]string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD reference: %w", err)
	}
	headHash := head.Hash()

	tagIter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []string
	err = tagIter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		// Annotated tags point at a tag object, not the commit.
		if obj, objErr := repo.TagObject(ref.Hash()); objErr == nil {
			target = obj.Target
		}
		if target == headHash {
			tags = append(tags, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.Strings(tags)
	logDebug("[git] TagsAtHead: %v", tags)
	return tags, nil
}

// TagExists reports whether the named tag exists in the repository.
func TagExists(path, tag string) (bool, error) {
	repo, err := openRepo(path)
	if err != nil {
		return false, err
	}

	_, err = repo.Reference(plumbing.NewTagReferenceName(tag), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving tag %s: %w", tag, err)
	}
	return true, nil
}

// DetectReleaseTag finds the release tag for the current HEAD. Exactly one
// tag matching the release pattern must point at HEAD; zero or multiple
// matches are errors so the pipeline never guesses which version to ship.
func DetectReleaseTag(path string) (Version, error) {
	tags, err := TagsAtHead(path)
	if err != nil {
		return Version{}, err
	}

	var matches []string
	for _, tag := range tags {
		if IsReleaseTag(tag) {
			matches = append(matches, tag)
		}
	}

	switch len(matches) {
	case 0:
		return Version{}, fmt.Errorf("no release tag points at HEAD (found tags: %s)", formatTagList(tags))
	case 1:
		return ParseTag(matches[0])
	default:
		return Version{}, fmt.Errorf("multiple release tags point at HEAD: %s", strings.Join(matches, ", "))
	}
}

func formatTagList(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

// IsDirty reports whether the worktree has uncommitted changes.
// A release built from a dirty tree would not match the tagged commit.
func IsDirty(path string) (bool, error) {
	repo, err := openRepo(path)
	if err != nil {
		return false, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}

	dirty := !status.IsClean()
	logDebug("[git] IsDirty: %v", dirty)
	return dirty, nil
}

// GetRepositoryRoot returns the absolute path to the repository root.
func GetRepositoryRoot(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	logDebug("[git] GetRepositoryRoot: %s", root)
	return root, nil
}

// HeadCommit returns the hash of the current HEAD commit.
func HeadCommit(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}

	return head.Hash().String(), nil
}
