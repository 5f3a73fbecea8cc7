package git

import (
	"regexp"
	"slices"
	"strings"

	"github.com/thiagokokada/betarelease/internal/version"
)

// RefClass is the role a ref plays in the beta/release lifecycle.
type RefClass uint8

const (
	ClassOther RefClass = iota
	ClassTrunk
	ClassBeta
	ClassRelease
)

func (c RefClass) String() string {
	switch c {
	case ClassTrunk:
		return "trunk"
	case ClassBeta:
		return "beta"
	case ClassRelease:
		return "release"
	default:
		return "other"
	}
}

// RefName is a classified branch or tag name. Version is set for ClassBeta
// and ClassRelease only.
type RefName struct {
	Name    string
	Class   RefClass
	Version version.Version
}

// lifecycleRef matches beta/<ver> and release/<ver> at the start of the name
// or after a '/', so "origin/beta/1.0.0" matches and "mybeta/1.0.0" does not.
var lifecycleRef = regexp.MustCompile(`(?:^|/)(beta|release)/(\d+(?:\.\d+)*)$`)

// Classify maps a ref name (short or refs/heads/, refs/tags/ prefixed) to its
// class. Names whose version is not MAJOR.MINOR.MICRO are ClassOther.
func Classify(name string, trunk string) RefName {
	short := strings.TrimPrefix(strings.TrimPrefix(name, "refs/heads/"), "refs/tags/")
	if short == "" {
		return RefName{Name: short}
	}
	if short == trunk {
		return RefName{Name: short, Class: ClassTrunk}
	}
	m := lifecycleRef.FindStringSubmatch(short)
	if m == nil {
		return RefName{Name: short}
	}
	v, err := version.Parse(m[2])
	if err != nil {
		return RefName{Name: short}
	}
	class := ClassBeta
	if m[1] == "release" {
		class = ClassRelease
	}
	return RefName{Name: short, Class: class, Version: v}
}

// BetaBranchName is the branch created for v.
func BetaBranchName(v version.Version) string {
	return "beta/" + v.String()
}

// ReleaseTagName is the tag created when v is released.
func ReleaseTagName(v version.Version) string {
	return "release/" + v.String()
}

// BetaBranches returns the local beta branches and the remote ones grouped by
// remote, with the remote prefix stripped. Both are ordered by version.
func (s *State) BetaBranches() (local []RefName, remote map[string][]RefName) {
	local = filterClass(keys(s.LocalBranches), ClassBeta)
	remote = map[string][]RefName{}
	for name, branches := range s.RemoteBranches {
		if betas := filterClass(keys(branches), ClassBeta); len(betas) > 0 {
			remote[name] = betas
		}
	}
	return local, remote
}

// ReleaseTags returns the release/<ver> tags ordered by version.
func (s *State) ReleaseTags() []RefName {
	return filterClass(keys(s.Tags), ClassRelease)
}

// HasBetaBranches reports whether any beta branch exists locally or on any
// remote.
func (s *State) HasBetaBranches() bool {
	local, remote := s.BetaBranches()
	return len(local) > 0 || len(remote) > 0
}

// Current classifies the checked-out branch.
func (s *State) Current(trunk string) RefName {
	if s.Detached() {
		return RefName{Name: s.Branch}
	}
	return Classify(s.Branch, trunk)
}

func filterClass(names []string, class RefClass) []RefName {
	refs := []RefName{}
	for _, name := range names {
		if ref := Classify(name, ""); ref.Class == class {
			refs = append(refs, ref)
		}
	}
	slices.SortFunc(refs, func(a, b RefName) int {
		if c := a.Version.Compare(b.Version); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return refs
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
