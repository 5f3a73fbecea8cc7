package checks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/betarelease/internal/git"
	"github.com/thiagokokada/betarelease/internal/git/backend"
	"github.com/thiagokokada/betarelease/internal/version"
)

type fixture struct {
	state    *git.State
	initfile string
}

// newFixture builds a clean checkout on master with a single remote and,
// when ver is not empty, an init file holding that version.
func newFixture(t *testing.T, ver string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		initfile: filepath.Join(dir, "src", "pkg", "__init__.py"),
		state: &git.State{
			Root:           dir,
			Head:           "h-master",
			Branch:         "master",
			LocalBranches:  map[string]string{"master": "h-master"},
			RemoteBranches: map[string]map[string]string{"origin": {"master": "h-master"}},
			Tags:           map[string]string{},
			Remotes:        []string{"origin"},
			Status:         backend.WorktreeStatus{},
		},
	}
	if ver != "" {
		f.writeInit(t, "# package\n__version__ = \""+ver+"\"\n")
	}
	return f
}

func (f *fixture) writeInit(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(f.initfile), 0o755))
	require.NoError(t, os.WriteFile(f.initfile, []byte(content), 0o644))
}

func (f *fixture) checkout(branch, hash string) {
	f.state.Branch = branch
	f.state.Head = hash
	f.state.LocalBranches[branch] = hash
}

func (f *fixture) run(c Checker, mode version.Mode) *Report {
	return c.Check(Input{State: f.state, Mode: mode, InitFile: f.initfile})
}

func kinds(r *Report) []Kind {
	out := []Kind{}
	for _, f := range r.Failures {
		out = append(out, f.Kind)
	}
	return out
}

func TestFailureString(t *testing.T) {
	t.Parallel()

	f := Failure{
		Message: "this is a short one-liner",
		Explain: `
          It looks the repository doesn't have any branch,
          you should:
            git checkout --orphan <branch-name>
          `,
		Hint: "create a git branch",
	}
	assert.Equal(t, `this is a short one-liner
reason:
  It looks the repository doesn't have any branch,
  you should:
    git checkout --orphan <branch-name>
hint:
  create a git branch`, f.String())

	assert.Equal(t, "just a message", Failure{Message: "just a message"}.String())
}

func TestRepositoryFailures(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `invalid git repository
reason:
  It looks the repository doesn't have any branch,
  you should:
    git checkout --orphan <branch-name>
hint:
  create a git branch`, NoBranch().String())
	assert.Equal(t, KindNotRepository, NotRepository("/tmp/x").Kind)
	assert.Equal(t, "no git directory", NotRepository("/tmp/x").Message)
}

func TestError(t *testing.T) {
	t.Parallel()

	err := &Error{Failures: []Failure{{Kind: KindDirtyTree, Message: "a"}, {Kind: KindWrongBranch, Message: "b"}}}
	assert.Equal(t, "a (and 1 more)", err.Error())
	assert.True(t, err.Has(KindWrongBranch))
	assert.False(t, err.Has(KindTagExists))
}

func TestInitFileRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	r := f.run(Checker{}, version.ModeMinor)
	require.Equal(t, []Kind{KindNoInitFile}, kinds(r))
	assert.Contains(t, r.Failures[0].String(), `no init file found
reason:
  An init file (eg. __init__.py) should be defined containing
  a __version__ = "<major>.<minor>.<micro>" version
hint:
  add an init file in src/pkg/__init__.py`)

	f.writeInit(t, "hello =  1\n")
	r = f.run(Checker{}, version.ModeMinor)
	require.Equal(t, []Kind{KindInvalidVersion}, kinds(r))
	assert.Contains(t, r.Failures[0].String(), `init file has an invalid __version__ module variable
reason:
  An init file (eg. __init__.py) should be defined containing
  a __version__ = "<major>.<minor>.<micro>" version
hint:
  add a __version__ module variable in src/pkg/__init__.py`)

	f.writeInit(t, "__version__ = \"1.2\"\n")
	assert.Equal(t, []Kind{KindInvalidVersion}, kinds(f.run(Checker{}, version.ModeMinor)))
}

func TestInitFileRuleIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	c := Checker{CollectAll: true}
	first := f.run(c, version.ModeMicro)
	second := f.run(c, version.ModeMicro)
	assert.Equal(t, first.Failures, second.Failures)
}

func TestBranchOriginRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.0.3")
	f.checkout("abc", "h-abc")

	r := f.run(Checker{}, version.ModeMinor)
	require.Equal(t, []Kind{KindWrongBranch}, kinds(r))
	assert.Equal(t, `'minor' starts from 'master' branch
reason:
  While generating a branch for 'minor' we assume as starting
  branch to be 'master' but we are in 'abc'.
hint:
  Switch to the 'master' branch or pass the --master flag`, r.Failures[0].String())

	assert.True(t, f.run(Checker{Trunk: "abc"}, version.ModeMinor).OK())

	r = f.run(Checker{Trunk: "abc"}, version.ModeRelease)
	require.Equal(t, []Kind{KindWrongBranch}, kinds(r))
	assert.Equal(t, `release starts from 'beta/0.0.3' branch
reason:
  A release starts from a beta/N.M.O branch, not from 'abc'
hint:
  switch to the 'beta/0.0.3' branch`, r.Failures[0].String())

	f.checkout("beta/0.0.3", "h-beta")
	assert.True(t, f.run(Checker{Trunk: "abc"}, version.ModeRelease).OK())
}

func TestReleaseFromTrunkNamesExpectedBeta(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.3.1")
	r := f.run(Checker{}, version.ModeRelease)
	require.Equal(t, []Kind{KindWrongBranch}, kinds(r))
	assert.Contains(t, r.Failures[0].Message, "beta/0.3.1")
}

func TestReleaseFromUnknownVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	r := f.run(Checker{CollectAll: true}, version.ModeRelease)
	assert.Equal(t, []Kind{KindNoInitFile, KindWrongBranch}, kinds(r))
	assert.Equal(t, "release starts from a beta/N.M.O branch", r.Failures[1].Message)
	assert.Equal(t, "switch to a beta/N.M.O branch", r.Failures[1].Hint)
}

func TestSingleRemoteRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.0.3")
	f.state.Remotes = []string{"repo1", "origin"}

	r := f.run(Checker{}, version.ModeMicro)
	require.Equal(t, []Kind{KindMultipleRemotes}, kinds(r))
	assert.Equal(t, "multiple remotes defined: origin, repo1", r.Failures[0].Message)
	assert.Contains(t, r.Failures[0].String(), "use the --remote flag to select one")

	assert.True(t, f.run(Checker{Remote: "repo1"}, version.ModeMicro).OK())

	r = f.run(Checker{Remote: "upstream"}, version.ModeMicro)
	require.Equal(t, []Kind{KindUnknownRemote}, kinds(r))
	assert.Equal(t, "requested remote=upstream but found origin, repo1", r.Failures[0].Message)

	f.state.Remotes = nil
	assert.True(t, f.run(Checker{}, version.ModeMicro).OK())
	r = f.run(Checker{Remote: "origin"}, version.ModeMicro)
	assert.Equal(t, "requested remote=origin but found none", r.Failures[0].Message)
}

func TestCleanTreeRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.0.3")
	f.state.Status = backend.WorktreeStatus{"notes.txt": backend.ChangeUntracked}
	assert.True(t, f.run(Checker{}, version.ModeMicro).OK())

	r := f.run(Checker{IncludeUntracked: true}, version.ModeMicro)
	require.Equal(t, []Kind{KindDirtyTree}, kinds(r))
	assert.Contains(t, r.Failures[0].Explain, "notes.txt")

	f.state.Status = backend.WorktreeStatus{"a.py": backend.ChangeModified, "b.py": backend.ChangeAdded}
	r = f.run(Checker{}, version.ModeMicro)
	require.Equal(t, []Kind{KindDirtyTree}, kinds(r))
	assert.Equal(t, "local modifications present in "+f.state.Root, r.Failures[0].Message)
	assert.Contains(t, r.Failures[0].String(), "reason:\n  The working tree has uncommitted changes:\n    a.py\n    b.py\nhint:\n  commit or stash the changes")
}

// newCollisionFixture mirrors a clone of a repository with betas 0.0.3 and
// 0.0.4 released, a local beta/0.0.1 and a second remote carrying
// beta/0.0.2.
func newCollisionFixture(t *testing.T, ver string) *fixture {
	f := newFixture(t, ver)
	f.state.LocalBranches["beta/0.0.1"] = "h1"
	f.state.RemoteBranches["origin"]["beta/0.0.3"] = "h3"
	f.state.RemoteBranches["origin"]["beta/0.0.4"] = "h4"
	f.state.RemoteBranches["repo1"] = map[string]string{"master": "h-master", "beta/0.0.2": "h2"}
	f.state.Remotes = []string{"origin", "repo1"}
	f.state.Tags["release/0.0.3"] = "h3"
	f.state.Tags["release/0.0.4"] = "h4"
	return f
}

func TestVersionCollisionRule(t *testing.T) {
	t.Parallel()

	c := Checker{Remote: "origin"}

	f := newCollisionFixture(t, "0.0.0")
	r := f.run(c, version.ModeMicro)
	require.Equal(t, []Kind{KindBranchExists}, kinds(r))
	assert.Equal(t, `next version branch 'beta/0.0.1' already present in local branches
reason:
  when creating a new branch 'beta/0.0.1' a local branch
  with that name has been found already
hint:
  change the version from '0.0.0' in the 'master' branch initfile`, r.Failures[0].String())

	f = newCollisionFixture(t, "0.0.1")
	r = f.run(c, version.ModeMicro)
	require.Equal(t, []Kind{KindBranchExistsRemote}, kinds(r))
	assert.Equal(t, `next version branch 'beta/0.0.2' already present in remote branches
reason:
  when creating a new branch 'beta/0.0.2' a remote branch with
  that name has been found already in 'repo1'
hint:
  make sure the '0.0.1' in the initfile in 'master' branch is correct`, r.Failures[0].String())

	f = newCollisionFixture(t, "0.0.4")
	r = f.run(c, version.ModeMicro)
	assert.True(t, r.OK(), "%v", r.Failures)
	assert.Equal(t, "beta/0.0.5", r.Target())
	assert.False(t, r.FirstBeta)
}

func TestFirstBetaDoesNotBump(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.0.3")
	r := f.run(Checker{}, version.ModeMinor)
	require.True(t, r.OK())
	assert.True(t, r.FirstBeta)
	assert.Equal(t, version.MustParse("0.0.3"), r.Next)
	assert.Equal(t, "beta/0.0.3", r.Target())
	assert.Equal(t, "0.0.3", r.Version)
	assert.Equal(t, "beta/0.0.3", r.NextRef)
}

func TestReleaseRules(t *testing.T) {
	t.Parallel()

	c := Checker{Remote: "origin"}

	f := newCollisionFixture(t, "0.0.4")
	f.checkout("beta/0.0.4", "h4")
	r := f.run(c, version.ModeRelease)
	require.Equal(t, []Kind{KindTagExists}, kinds(r))
	assert.Equal(t, `release already present
reason:
  A release 'release/0.0.4' tag is present for the current branch
hint:
  check the __version__ is correct`, r.Failures[0].String())

	f = newCollisionFixture(t, "0.0.5")
	f.checkout("beta/0.0.4", "h4")
	r = f.run(c, version.ModeRelease)
	require.Equal(t, []Kind{KindVersionMismatch}, kinds(r))
	assert.Equal(t, "current branch 'beta/0.0.4' doesn't match the init file version 0.0.5", r.Failures[0].Message)
}

func TestSyncRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0.1.0")
	f.checkout("beta/0.1.0", "h-local")

	// no remote counterpart yet
	r := f.run(Checker{}, version.ModeRelease)
	assert.True(t, r.OK(), "%v", r.Failures)
	assert.Equal(t, "release/0.1.0", r.Target())

	f.state.RemoteBranches["origin"]["beta/0.1.0"] = "h-local"
	assert.True(t, f.run(Checker{}, version.ModeRelease).OK())

	f.state.RemoteBranches["origin"]["beta/0.1.0"] = "h-remote"
	r = f.run(Checker{}, version.ModeRelease)
	require.Equal(t, []Kind{KindOutOfSync}, kinds(r))
	assert.Equal(t, `local and remote branches beta/0.1.0 are out of sync
reason:
  The local branch beta/0.1.0 has
  different hash from remote origin (h-local != h-remote)`, r.Failures[0].String())

	// only the selected remote is compared
	f.state.Remotes = append(f.state.Remotes, "mirror")
	f.state.RemoteBranches["mirror"] = map[string]string{"beta/0.1.0": "h-local"}
	assert.True(t, f.run(Checker{Remote: "mirror"}, version.ModeRelease).OK())
}

func TestReportAllOnBrokenState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.checkout("abc", "h-abc")
	f.state.Remotes = []string{"origin", "repo1"}
	f.state.Status = backend.WorktreeStatus{"setup.py": backend.ChangeModified}

	r := f.run(Checker{CollectAll: true}, version.ModeMinor)
	assert.Equal(t, []Kind{KindNoInitFile, KindWrongBranch, KindMultipleRemotes, KindDirtyTree}, kinds(r))

	var target *Error
	require.ErrorAs(t, r.Err(), &target)
	assert.Len(t, target.Failures, 4)

	r = f.run(Checker{}, version.ModeMinor)
	assert.Equal(t, []Kind{KindNoInitFile}, kinds(r))
}

func TestReportOK(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1.2.3")
	r := f.run(Checker{CollectAll: true}, version.ModeMajor)
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
	assert.NotNil(t, r.Failures)
}
