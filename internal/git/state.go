package git

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/betarelease/internal/git/backend"
)

// State is a read-only snapshot of a working tree. Take a new one after any
// mutation; a State is never updated in place.
type State struct {
	Root   string
	Head   string
	Branch string // short branch name, "HEAD" when detached

	LocalBranches  map[string]string            // name -> commit
	RemoteBranches map[string]map[string]string // remote -> name -> commit
	Tags           map[string]string            // name -> peeled commit
	Remotes        []string
	Status         backend.WorktreeStatus
}

// Snapshot reads the current state of the repository behind b.
func Snapshot(b backend.Backend) (*State, error) {
	if b == nil || b.RepoPath() == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	hash, headName, ok, err := b.HeadState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, backend.ErrNoBranch
	}
	remotes, err := b.Remotes()
	if err != nil {
		return nil, err
	}
	refs, err := b.ListRefs()
	if err != nil {
		return nil, err
	}
	status, err := b.WorktreeStatus()
	if err != nil {
		return nil, err
	}

	s := &State{
		Root:           b.RepoPath(),
		Head:           hash,
		Branch:         headName,
		LocalBranches:  map[string]string{},
		RemoteBranches: map[string]map[string]string{},
		Tags:           map[string]string{},
		Remotes:        remotes,
		Status:         status,
	}
	for _, ref := range refs {
		switch ref.Kind {
		case backend.RefKindBranch:
			s.LocalBranches[ref.Name] = ref.Hash
		case backend.RefKindTag:
			s.Tags[ref.Name] = ref.Hash
		case backend.RefKindRemoteBranch:
			remote, name, ok := splitRemoteRef(ref.Name, remotes)
			if !ok {
				continue
			}
			if s.RemoteBranches[remote] == nil {
				s.RemoteBranches[remote] = map[string]string{}
			}
			s.RemoteBranches[remote][name] = ref.Hash
		}
	}
	return s, nil
}

// splitRemoteRef splits "origin/beta/1.0.0" into remote and branch. Configured
// remote names win (longest first) so remotes containing a slash are handled;
// otherwise the first path segment is the remote.
func splitRemoteRef(short string, remotes []string) (remote string, name string, ok bool) {
	byLength := slices.Clone(remotes)
	slices.SortFunc(byLength, func(a, b string) int { return len(b) - len(a) })
	for _, r := range byLength {
		if rest, found := strings.CutPrefix(short, r+"/"); found && rest != "" {
			return r, rest, true
		}
	}
	remote, name, ok = strings.Cut(short, "/")
	if !ok || remote == "" || name == "" {
		return "", "", false
	}
	return remote, name, true
}

// Detached reports whether HEAD is not on a branch.
func (s *State) Detached() bool {
	return s.Branch == "" || s.Branch == "HEAD"
}

// HasRemote reports whether name is a configured remote.
func (s *State) HasRemote(name string) bool {
	return slices.Contains(s.Remotes, name)
}

// RemoteNames returns the remotes that carry branch, sorted.
func (s *State) RemoteNames(branch string) []string {
	var names []string
	for remote, branches := range s.RemoteBranches {
		if _, ok := branches[branch]; ok {
			names = append(names, remote)
		}
	}
	slices.Sort(names)
	return names
}
