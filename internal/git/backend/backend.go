package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotRepository = errors.New("not a git repository")
	ErrNoBranch      = errors.New("repository has no branch")
	ErrRefExists     = errors.New("reference already exists")
)

// Backend abstracts access to a single checked-out working tree.
//
// The default implementation uses go-git; OpenCLI shells out to the git
// executable instead. Implementations are not safe for concurrent use.
type Backend interface {
	RepoPath() string

	// HeadState returns the commit and short branch name of HEAD; ok is false
	// when HEAD does not point at a commit yet.
	HeadState() (hash string, headName string, ok bool, err error)
	ListRefs() ([]Ref, error)
	Remotes() ([]string, error)
	WorktreeStatus() (WorktreeStatus, error)

	CreateBranch(name string, fromHash string) error
	SwitchBranch(name string) error
	// Commit stages paths (relative to RepoPath) and commits them on the
	// current branch, returning the new commit hash.
	Commit(message string, paths []string) (string, error)
	// CreateTag creates an annotated tag when message is not empty and a
	// lightweight tag otherwise.
	CreateTag(name string, targetHash string, message string) error
	ResolveRef(name string) (string, error)
	SetRefTarget(name string, hash string) error
}

// Kind names a backend implementation.
type Kind string

const (
	KindNative Kind = "native"
	KindGitCLI Kind = "git"
)

// Open opens repoPath with the backend selected by kind.
func Open(kind Kind, repoPath string) (Backend, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindNative, "":
		return OpenNative(repoPath)
	case KindGitCLI:
		return OpenCLI(repoPath)
	default:
		return nil, fmt.Errorf("unknown backend %q (choose from %s, %s)", kind, KindNative, KindGitCLI)
	}
}

const (
	defaultAuthorName  = "betarelease"
	defaultAuthorEmail = "betarelease@localhost"
)
