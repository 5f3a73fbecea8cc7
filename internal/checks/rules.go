package checks

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/thiagokokada/betarelease/internal/git"
	"github.com/thiagokokada/betarelease/internal/version"
)

// maxListedFiles bounds the file list in a DirtyTree explanation.
const maxListedFiles = 20

func (e *evaluation) checkInitFile() []Failure {
	if !e.initFileExists() {
		return []Failure{{
			Kind:    KindNoInitFile,
			Message: "no init file found",
			Explain: initFileExplain(e.VarName),
			Hint:    fmt.Sprintf("add an init file in %s", e.displayInitFile()),
		}}
	}
	if !e.hasVersion {
		return []Failure{{
			Kind:    KindInvalidVersion,
			Message: fmt.Sprintf("init file has an invalid %s module variable", e.VarName),
			Explain: initFileExplain(e.VarName),
			Hint:    fmt.Sprintf("add a %s module variable in %s", e.VarName, e.displayInitFile()),
		}}
	}
	return nil
}

func (e *evaluation) checkBranchOrigin() []Failure {
	branch := e.in.State.Branch
	if e.in.Mode.IsBeta() {
		if branch == e.Trunk {
			return nil
		}
		return []Failure{{
			Kind:    KindWrongBranch,
			Message: fmt.Sprintf("'%s' starts from '%s' branch", e.in.Mode, e.Trunk),
			Explain: fmt.Sprintf("While generating a branch for '%s' we assume as starting\n"+
				"branch to be '%s' but we are in '%s'.", e.in.Mode, e.Trunk, branch),
			Hint: fmt.Sprintf("Switch to the '%s' branch or pass the --master flag", e.Trunk),
		}}
	}

	if e.current.Class == git.ClassBeta {
		return nil
	}
	f := Failure{
		Kind:    KindWrongBranch,
		Message: "release starts from a beta/N.M.O branch",
		Explain: fmt.Sprintf("A release starts from a beta/N.M.O branch, not from '%s'", branch),
		Hint:    "switch to a beta/N.M.O branch",
	}
	if e.hasVersion {
		expected := git.BetaBranchName(e.curver)
		f.Message = fmt.Sprintf("release starts from '%s' branch", expected)
		f.Hint = fmt.Sprintf("switch to the '%s' branch", expected)
	}
	return []Failure{f}
}

func (e *evaluation) checkSingleRemote() []Failure {
	remotes := slices.Sorted(slices.Values(e.in.State.Remotes))
	if e.Remote == "" {
		if len(remotes) <= 1 {
			return nil
		}
		return []Failure{{
			Kind:    KindMultipleRemotes,
			Message: fmt.Sprintf("multiple remotes defined: %s", strings.Join(remotes, ", ")),
			Explain: "The workdir must have a single remote; use `git remote -v' to list all remotes\n" +
				"and use the --remote flag to select one",
		}}
	}
	if slices.Contains(remotes, e.Remote) {
		return nil
	}
	found := strings.Join(remotes, ", ")
	if found == "" {
		found = "none"
	}
	return []Failure{{
		Kind:    KindUnknownRemote,
		Message: fmt.Sprintf("requested remote=%s but found %s", e.Remote, found),
	}}
}

func (e *evaluation) checkCleanTree() []Failure {
	files := e.in.State.Status.Modified(e.IncludeUntracked)
	if len(files) == 0 {
		return nil
	}
	listed := files
	if len(listed) > maxListedFiles {
		listed = listed[:maxListedFiles]
	}
	explain := "The working tree has uncommitted changes:\n  " + strings.Join(listed, "\n  ")
	if extra := len(files) - len(listed); extra > 0 {
		explain += fmt.Sprintf("\n  ... and %d more", extra)
	}
	return []Failure{{
		Kind:    KindDirtyTree,
		Message: fmt.Sprintf("local modifications present in %s", e.in.State.Root),
		Explain: explain,
		Hint:    "commit or stash the changes",
	}}
}

func (e *evaluation) checkVersionCollision() []Failure {
	if !e.in.Mode.IsBeta() || !e.hasVersion {
		return nil
	}
	next := version.Next(e.curver, e.in.Mode, !e.in.State.HasBetaBranches())
	name := git.BetaBranchName(next)

	var failures []Failure
	if _, ok := e.in.State.LocalBranches[name]; ok {
		failures = append(failures, Failure{
			Kind:    KindBranchExists,
			Message: fmt.Sprintf("next version branch '%s' already present in local branches", name),
			Explain: fmt.Sprintf("when creating a new branch '%s' a local branch\n"+
				"with that name has been found already", name),
			Hint: fmt.Sprintf("change the version from '%s' in the '%s' branch initfile", e.curver, e.Trunk),
		})
	}
	if remotes := e.in.State.RemoteNames(name); len(remotes) > 0 {
		failures = append(failures, Failure{
			Kind:    KindBranchExistsRemote,
			Message: fmt.Sprintf("next version branch '%s' already present in remote branches", name),
			Explain: fmt.Sprintf("when creating a new branch '%s' a remote branch with\n"+
				"that name has been found already in '%s'", name, strings.Join(remotes, ", ")),
			Hint: fmt.Sprintf("make sure the '%s' in the initfile in '%s' branch is correct", e.curver, e.Trunk),
		})
	}
	return failures
}

func (e *evaluation) checkReleaseCollision() []Failure {
	if e.in.Mode != version.ModeRelease || !e.hasVersion {
		return nil
	}
	tag := git.ReleaseTagName(e.curver)
	if _, ok := e.in.State.Tags[tag]; !ok {
		return nil
	}
	return []Failure{{
		Kind:    KindTagExists,
		Message: "release already present",
		Explain: fmt.Sprintf("A release '%s' tag is present for the current branch", tag),
		Hint:    fmt.Sprintf("check the %s is correct", e.VarName),
	}}
}

func (e *evaluation) checkBranchVersionMatch() []Failure {
	if e.in.Mode != version.ModeRelease || !e.hasVersion || e.current.Class != git.ClassBeta {
		return nil
	}
	if e.current.Version == e.curver {
		return nil
	}
	return []Failure{{
		Kind: KindVersionMismatch,
		Message: fmt.Sprintf("current branch '%s' doesn't match the init file version %s",
			e.current.Name, e.curver),
	}}
}

// checkSync compares the current beta branch with its remote-tracking
// counterparts. A remote without the branch is not out of sync.
func (e *evaluation) checkSync() []Failure {
	if e.in.Mode != version.ModeRelease || e.current.Class != git.ClassBeta {
		return nil
	}
	local, ok := e.in.State.LocalBranches[e.current.Name]
	if !ok {
		local = e.in.State.Head
	}
	remotes := slices.Sorted(maps.Keys(e.in.State.RemoteBranches))
	if e.Remote != "" {
		remotes = []string{e.Remote}
	}

	var failures []Failure
	for _, remote := range remotes {
		hash, ok := e.in.State.RemoteBranches[remote][e.current.Name]
		if !ok || hash == local {
			continue
		}
		failures = append(failures, Failure{
			Kind:    KindOutOfSync,
			Message: fmt.Sprintf("local and remote branches %s are out of sync", e.current.Name),
			Explain: fmt.Sprintf("The local branch %s has\n"+
				"different hash from remote %s (%s != %s)", e.current.Name, remote, local, hash),
		})
	}
	return failures
}
