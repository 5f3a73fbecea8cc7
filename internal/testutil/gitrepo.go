// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitFile is the repository-relative path of the version file created by
// NewRepo.
const InitFile = "src/pkg/__init__.py"

// Repo is a working tree on branch master with one initial commit.
type Repo struct {
	t    testing.TB
	Dir  string
	Repo *gitlib.Repository
	tick int
}

// NewRepo creates a repository in a temp dir. When ver is not empty the init
// file is committed with __version__ = "<ver>".
func NewRepo(t testing.TB, ver string) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}
	r := &Repo{t: t, Dir: dir, Repo: repo}
	r.WriteFile(".keep", "# dummy file to create the master branch\n")
	r.Commit("initial commit", ".keep")
	if ver != "" {
		r.WriteFile(InitFile, "# package\n__version__ = \""+ver+"\"\n")
		r.Commit("add init file", InitFile)
	}
	return r
}

func (r *Repo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

func (r *Repo) InitFilePath() string {
	return r.Path(InitFile)
}

func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	path := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

func (r *Repo) ReadFile(rel string) string {
	r.t.Helper()
	data, err := os.ReadFile(r.Path(rel))
	if err != nil {
		r.t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func (r *Repo) worktree() *gitlib.Worktree {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	return wt
}

// Commit stages paths and commits them, returning the commit hash.
func (r *Repo) Commit(msg string, paths ...string) string {
	r.t.Helper()
	wt := r.worktree()
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			r.t.Fatalf("add %s: %v", p, err)
		}
	}
	r.tick++
	sig := &object.Signature{
		Name:  "First Last",
		Email: "user@email",
		When:  time.Date(2024, 1, 1, 0, 0, r.tick, 0, time.UTC),
	}
	hash, err := wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

// Head returns the HEAD commit and short branch name.
func (r *Repo) Head() (hash string, branch string) {
	r.t.Helper()
	ref, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("head: %v", err)
	}
	return ref.Hash().String(), ref.Name().Short()
}

// Branch creates name at HEAD without switching to it.
func (r *Repo) Branch(name string) {
	r.t.Helper()
	hash, _ := r.Head()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(hash))
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("branch %s: %v", name, err)
	}
}

// Checkout switches to name, creating it at HEAD when create is set.
func (r *Repo) Checkout(name string, create bool) {
	r.t.Helper()
	err := r.worktree().Checkout(&gitlib.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: create,
	})
	if err != nil {
		r.t.Fatalf("checkout %s: %v", name, err)
	}
}

// Tag creates an annotated tag at HEAD.
func (r *Repo) Tag(name string) {
	r.t.Helper()
	hash, _ := r.Head()
	_, err := r.Repo.CreateTag(name, plumbing.NewHash(hash), &gitlib.CreateTagOptions{
		Tagger:  &object.Signature{Name: "First Last", Email: "user@email", When: time.Unix(0, 0).UTC()},
		Message: "release",
	})
	if err != nil {
		r.t.Fatalf("tag %s: %v", name, err)
	}
}

func (r *Repo) AddRemote(name string) {
	r.t.Helper()
	_, err := r.Repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{"https://example.invalid/" + name + ".git"},
	})
	if err != nil {
		r.t.Fatalf("remote %s: %v", name, err)
	}
}

// RemoteBranch records a remote-tracking branch as if it had been fetched.
func (r *Repo) RemoteBranch(remote, branch, hash string) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, branch), plumbing.NewHash(hash))
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("remote branch %s/%s: %v", remote, branch, err)
	}
}

// BranchHash resolves a local branch.
func (r *Repo) BranchHash(name string) (string, bool) {
	ref, err := r.Repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return "", false
	}
	return ref.Hash().String(), true
}

// TagExists reports whether refs/tags/<name> exists.
func (r *Repo) TagExists(name string) bool {
	_, err := r.Repo.Reference(plumbing.NewTagReferenceName(name), true)
	return err == nil
}
