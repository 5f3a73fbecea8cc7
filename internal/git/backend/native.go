package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type native struct {
	path string
	repo *gitlib.Repository
}

// OpenNative opens the repository containing repoPath with go-git.
func OpenNative(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &native{path: wt.Filesystem.Root(), repo: repo}, nil
}

func (n *native) RepoPath() string {
	if n == nil {
		return ""
	}
	return n.path
}

func (n *native) HeadState() (hash string, headName string, ok bool, err error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	headName = "HEAD"
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (n *native) ListRefs() ([]Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		r, ok := refFromFullName(ref.Name().String(), ref.Hash().String())
		if !ok {
			return nil
		}
		if r.Kind == RefKindTag {
			if peeled, ok := n.peelTagCommitHash(ref.Hash()); ok {
				r.Hash = peeled.String()
			}
		}
		refs = append(refs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	return refs, nil
}

func (n *native) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := n.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := n.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (n *native) Remotes() ([]string, error) {
	remotes, err := n.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	names := make([]string, 0, len(remotes))
	for _, r := range remotes {
		names = append(names, r.Config().Name)
	}
	slices.Sort(names)
	return names, nil
}

func (n *native) WorktreeStatus() (WorktreeStatus, error) {
	wt, err := n.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	res := WorktreeStatus{}
	for path, st := range status {
		if kind := changeFromXY(byte(st.Staging), byte(st.Worktree)); kind != 0 {
			res[path] = kind
		}
	}
	return res, nil
}

func (n *native) CreateBranch(name string, fromHash string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("branch not specified")
	}
	if !plumbing.IsHash(fromHash) {
		return fmt.Errorf("create branch %s: invalid commit %q", name, fromHash)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := n.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("create branch: %w: %s", ErrRefExists, refName)
	}
	hash := plumbing.NewHash(fromHash)
	if _, err := n.repo.CommitObject(hash); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return n.repo.Storer.SetReference(plumbing.NewHashReference(refName, hash))
}

func (n *native) SwitchBranch(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("branch not specified")
	}
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

func (n *native) Commit(message string, paths []string) (string, error) {
	wt, err := n.repo.Worktree()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if _, err := wt.Add(filepath.ToSlash(p)); err != nil {
			return "", fmt.Errorf("add %s: %w", p, err)
		}
	}
	sig := n.signature()
	hash, err := wt.Commit(message, &gitlib.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

func (n *native) CreateTag(name string, targetHash string, message string) error {
	if !plumbing.IsHash(targetHash) {
		return fmt.Errorf("create tag %s: invalid commit %q", name, targetHash)
	}
	var opts *gitlib.CreateTagOptions
	if message != "" {
		opts = &gitlib.CreateTagOptions{Tagger: n.signature(), Message: message}
	}
	if _, err := n.repo.CreateTag(name, plumbing.NewHash(targetHash), opts); err != nil {
		if errors.Is(err, gitlib.ErrTagExists) {
			return fmt.Errorf("create tag: %w: %s", ErrRefExists, name)
		}
		return fmt.Errorf("create tag %s: %w", name, err)
	}
	return nil
}

func (n *native) ResolveRef(name string) (string, error) {
	hash, err := n.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return hash.String(), nil
}

func (n *native) SetRefTarget(name string, hash string) error {
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("set ref: %q is not a full reference name", name)
	}
	if !plumbing.IsHash(hash) {
		return fmt.Errorf("set ref %s: invalid commit %q", name, hash)
	}
	return n.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(hash)))
}

func (n *native) signature() *object.Signature {
	sig := &object.Signature{Name: defaultAuthorName, Email: defaultAuthorEmail, When: time.Now()}
	cfg, err := n.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}

// refFromFullName maps a full reference name to a Ref. Symbolic remote heads
// (origin/HEAD) and other namespaces are skipped.
func refFromFullName(full, hash string) (Ref, bool) {
	var kind RefKind
	var short string
	switch {
	case strings.HasPrefix(full, "refs/tags/"):
		kind, short = RefKindTag, strings.TrimPrefix(full, "refs/tags/")
	case strings.HasPrefix(full, "refs/heads/"):
		kind, short = RefKindBranch, strings.TrimPrefix(full, "refs/heads/")
	case strings.HasPrefix(full, "refs/remotes/"):
		kind, short = RefKindRemoteBranch, strings.TrimPrefix(full, "refs/remotes/")
		if strings.HasSuffix(short, "/HEAD") {
			return Ref{}, false
		}
	default:
		return Ref{}, false
	}
	if short == "" {
		return Ref{}, false
	}
	return Ref{Hash: hash, Kind: kind, Name: short}, true
}

// changeFromXY maps a pair of git status codes (index, worktree) to a
// ChangeKind; 0 means unmodified.
func changeFromXY(x, y byte) ChangeKind {
	if x == '?' || y == '?' {
		return ChangeUntracked
	}
	if x == 'U' || y == 'U' {
		return ChangeUnmerged
	}
	for _, c := range []byte{x, y} {
		switch c {
		case 'A':
			return ChangeAdded
		case 'D':
			return ChangeDeleted
		case 'R':
			return ChangeRenamed
		case 'C':
			return ChangeCopied
		case 'M', 'T':
			return ChangeModified
		}
	}
	return 0
}
