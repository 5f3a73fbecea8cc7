// Package checks validates that a repository is in a state that allows the
// requested beta or release transition.
package checks

import (
	"fmt"
	"strings"
)

// Kind identifies the rule violation behind a Failure.
type Kind string

const (
	KindNoInitFile         Kind = "NoInitFile"
	KindInvalidVersion     Kind = "InvalidVersion"
	KindWrongBranch        Kind = "WrongBranch"
	KindMultipleRemotes    Kind = "MultipleRemotes"
	KindUnknownRemote      Kind = "UnknownRemote"
	KindDirtyTree          Kind = "DirtyTree"
	KindBranchExists       Kind = "BranchExists"
	KindBranchExistsRemote Kind = "BranchExistsRemote"
	KindTagExists          Kind = "TagExists"
	KindVersionMismatch    Kind = "VersionMismatch"
	KindOutOfSync          Kind = "OutOfSync"
	KindNoBranch           Kind = "NoBranch"
	KindNotRepository      Kind = "NotRepository"
)

// Failure is a single violated precondition. Explain and Hint are optional.
type Failure struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Explain string `json:"explain,omitempty" yaml:"explain,omitempty"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// String renders the failure the way it is shown to operators:
//
//	<message>
//	reason:
//	  <explain>
//	hint:
//	  <hint>
func (f Failure) String() string {
	var b strings.Builder
	b.WriteString(f.Message)
	if explain := dedent(f.Explain); explain != "" {
		b.WriteString("\nreason:\n")
		b.WriteString(indent(explain, "  "))
	}
	if hint := dedent(f.Hint); hint != "" {
		b.WriteString("\nhint:\n")
		b.WriteString(indent(hint, "  "))
	}
	return b.String()
}

// Error is returned when a transition is refused. It carries every failure
// that was collected.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	switch len(e.Failures) {
	case 0:
		return "precondition failed"
	case 1:
		return e.Failures[0].Message
	default:
		return fmt.Sprintf("%s (and %d more)", e.Failures[0].Message, len(e.Failures)-1)
	}
}

// Has reports whether a failure of kind k was collected.
func (e *Error) Has(k Kind) bool {
	for _, f := range e.Failures {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// dedent removes the common leading whitespace of the non-blank lines and
// drops leading and trailing blank lines.
func dedent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\t", "    "), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	margin := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if margin < 0 || n < margin {
			margin = n
		}
	}
	for i, line := range lines {
		if len(line) >= margin && margin > 0 {
			lines[i] = line[margin:]
		} else {
			lines[i] = strings.TrimLeft(line, " ")
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func indent(text string, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// NotRepository is reported when the work dir is not inside a git repository.
func NotRepository(workdir string) Failure {
	return Failure{
		Kind:    KindNotRepository,
		Message: "no git directory",
		Explain: fmt.Sprintf("The work dir %s is not inside a git repository", workdir),
		Hint:    "pass the repository path with the --workdir flag",
	}
}

// NoBranch is reported when the repository has no commit on any branch yet.
func NoBranch() Failure {
	return Failure{
		Kind:    KindNoBranch,
		Message: "invalid git repository",
		Explain: "It looks the repository doesn't have any branch,\n" +
			"you should:\n" +
			"  git checkout --orphan <branch-name>",
		Hint: "create a git branch",
	}
}
