package backend

import (
	"slices"
)

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

func (k RefKind) String() string {
	switch k {
	case RefKindBranch:
		return "branch"
	case RefKindRemoteBranch:
		return "remote"
	case RefKindTag:
		return "tag"
	default:
		return "unknown"
	}
}

type Ref struct {
	Hash string
	Kind RefKind
	Name string // short name: master, origin/beta/1.0.0, release/1.0.0
}

// ChangeKind describes how a path differs from HEAD.
type ChangeKind uint8

const (
	ChangeModified ChangeKind = iota + 1
	ChangeAdded
	ChangeDeleted
	ChangeRenamed
	ChangeCopied
	ChangeUnmerged
	ChangeUntracked
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeModified:
		return "modified"
	case ChangeAdded:
		return "added"
	case ChangeDeleted:
		return "deleted"
	case ChangeRenamed:
		return "renamed"
	case ChangeCopied:
		return "copied"
	case ChangeUnmerged:
		return "unmerged"
	case ChangeUntracked:
		return "untracked"
	default:
		return "unknown"
	}
}

// WorktreeStatus maps repository-relative paths to their change. Clean paths
// are not present.
type WorktreeStatus map[string]ChangeKind

// Modified returns the sorted paths that make the tree dirty. Untracked paths
// are included only when includeUntracked is set.
func (s WorktreeStatus) Modified(includeUntracked bool) []string {
	var paths []string
	for path, kind := range s {
		if kind == ChangeUntracked && !includeUntracked {
			continue
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (s WorktreeStatus) Dirty(includeUntracked bool) bool {
	for _, kind := range s {
		if kind != ChangeUntracked || includeUntracked {
			return true
		}
	}
	return false
}
