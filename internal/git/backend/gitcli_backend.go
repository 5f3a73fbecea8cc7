package backend

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

func (g *gitCLI) HeadState() (hash string, headName string, ok bool, err error) {
	if g == nil || g.path == "" {
		return "", "", false, fmt.Errorf("repository root not set")
	}
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return "", "", false, err
	}
	hash = strings.TrimSpace(out)
	if hash == "" {
		return "", "", false, nil
	}
	ref, err := g.runGitCommand([]string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return "", "", false, err
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

func (g *gitCLI) ListRefs() ([]Ref, error) {
	out, err := g.runGitCommand(
		[]string{
			"--no-pager",
			"show-ref",
			"--dereference",
		},
		true,
		"git show-ref",
	)
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

func (g *gitCLI) Remotes() ([]string, error) {
	out, err := g.runGitCommand([]string{"remote"}, false, "git remote")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (g *gitCLI) WorktreeStatus() (WorktreeStatus, error) {
	out, err := g.runGitCommand([]string{"status", "--porcelain=v2", "--untracked-files=all"}, false, "git status")
	if err != nil {
		return nil, err
	}
	res, err := parseStatusPorcelainV2(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse git status: %w", err)
	}
	return res, nil
}

func (g *gitCLI) CreateBranch(name string, fromHash string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("branch not specified")
	}
	if _, err := g.ResolveRef("refs/heads/" + name); err == nil {
		return fmt.Errorf("create branch: %w: refs/heads/%s", ErrRefExists, name)
	}
	_, err := g.runGitCommand([]string{"branch", "--no-track", "--", name, fromHash}, false, "git branch")
	return err
}

func (g *gitCLI) SwitchBranch(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("branch not specified")
	}
	_, err := g.runGitCommand([]string{"switch", "--", name}, false, "git switch")
	return err
}

func (g *gitCLI) Commit(message string, paths []string) (string, error) {
	if len(paths) > 0 {
		args := append([]string{"add", "--"}, paths...)
		if _, err := g.runGitCommand(args, false, "git add"); err != nil {
			return "", err
		}
	}
	args := append(g.identityArgs(), "commit", "--quiet", "--no-verify", "-m", message)
	if len(paths) > 0 {
		args = append(append(args, "--"), paths...)
	}
	if _, err := g.runGitCommand(args, false, "git commit"); err != nil {
		return "", err
	}
	return g.ResolveRef("HEAD")
}

func (g *gitCLI) CreateTag(name string, targetHash string, message string) error {
	if _, err := g.ResolveRef("refs/tags/" + name); err == nil {
		return fmt.Errorf("create tag: %w: %s", ErrRefExists, name)
	}
	args := g.identityArgs()
	if message != "" {
		args = append(args, "tag", "-a", "-m", message, "--", name, targetHash)
	} else {
		args = append(args, "tag", "--", name, targetHash)
	}
	_, err := g.runGitCommand(args, false, "git tag")
	return err
}

func (g *gitCLI) ResolveRef(name string) (string, error) {
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", name + "^{commit}"}, true, "git rev-parse")
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", fmt.Errorf("resolve %s: reference not found", name)
	}
	return hash, nil
}

func (g *gitCLI) SetRefTarget(name string, hash string) error {
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("set ref: %q is not a full reference name", name)
	}
	_, err := g.runGitCommand([]string{"update-ref", name, hash}, false, "git update-ref")
	return err
}

// identityArgs supplies a fallback committer when git has none configured.
func (g *gitCLI) identityArgs() []string {
	var args []string
	if out, err := g.runGitCommand([]string{"config", "--get", "user.name"}, true, "git config"); err != nil || strings.TrimSpace(out) == "" {
		args = append(args, "-c", "user.name="+defaultAuthorName)
	}
	if out, err := g.runGitCommand([]string{"config", "--get", "user.email"}, true, "git config"); err != nil || strings.TrimSpace(out) == "" {
		args = append(args, "-c", "user.email="+defaultAuthorEmail)
	}
	return args
}

func parseStatusPorcelainV2(r io.Reader) (WorktreeStatus, error) {
	res := WorktreeStatus{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		var fields []string
		switch line[0] {
		case '1':
			// 1 XY sub mH mI mW hH hI path
			fields = strings.SplitN(line, " ", 9)
		case '2':
			// 2 XY sub mH mI mW hH hI Xscore path<TAB>origPath
			fields = strings.SplitN(line, " ", 10)
		case 'u':
			// u XY sub m1 m2 m3 mW h1 h2 h3 path
			fields = strings.SplitN(line, " ", 11)
		case '?':
			res[line[2:]] = ChangeUntracked
			continue
		default:
			// '!' ignored, '#' headers
			continue
		}
		if len(fields) < 2 || len(fields[1]) != 2 {
			continue
		}
		last := len(fields) - 1
		if last < 8 {
			continue
		}
		path := fields[last]
		if line[0] == '2' {
			path, _, _ = strings.Cut(path, "\t")
		}
		if kind := changeFromXY(fields[1][0], fields[1][1]); kind != 0 {
			res[path] = kind
		}
	}
	return res, scanner.Err()
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		r, ok := refFromFullName(entry.ref, entry.hash)
		if !ok {
			continue
		}
		if peeled, ok := peeledByTagRef[entry.ref]; ok && r.Kind == RefKindTag {
			r.Hash = peeled
		}
		refs = append(refs, r)
	}
	return refs, nil
}
