// Package initfile reads and rewrites module-level string assignments such as
// __version__ = "1.2.3" in a Python source file, without executing it.
package initfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrVarNotFound = errors.New("variable not found")

func assignment(name string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `\s*=\s*['"]([^'"]*)['"]`)
}

// Lookup returns the value of the last top-level assignment to name in
// content.
func Lookup(content string, name string) (string, bool) {
	expr := assignment(name)
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if m := expr.FindStringSubmatch(lines[i]); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ReadVar returns the value of name in the file at path. A missing file is
// reported with an error matching os.ErrNotExist; a file without the
// assignment with ErrVarNotFound.
func ReadVar(path string, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	value, ok := Lookup(string(data), name)
	if !ok {
		return "", fmt.Errorf("%w: cannot find %s in %s", ErrVarNotFound, name, path)
	}
	return value, nil
}

// Rewrite replaces the value of the last top-level assignment to name. When
// there is none, name = "value" is appended on a new line. found reports
// whether an assignment existed and old holds its previous value.
func Rewrite(content string, name string, value string) (out string, old string, found bool) {
	expr := assignment(name)
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		loc := expr.FindStringSubmatchIndex(lines[i])
		if loc == nil {
			continue
		}
		line := lines[i]
		old = line[loc[2]:loc[3]]
		lines[i] = line[:loc[2]] + value + line[loc[3]:]
		return strings.Join(lines, "\n"), old, true
	}
	out = content
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + fmt.Sprintf("%s = \"%s\"", name, value), "", false
}

// WriteVar sets name to value in the file at path and returns the previous
// value. With create the file, its parent directories and a missing
// assignment are added; otherwise a missing file or variable is an error and
// nothing is written.
func WriteVar(path string, name string, value string, create bool) (old string, err error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && create:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}
	out, old, found := Rewrite(string(data), name, value)
	if !found && !create {
		return "", fmt.Errorf("%w: %s in %s", ErrVarNotFound, name, path)
	}
	if out == string(data) {
		return old, nil
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(out), mode); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return old, nil
}
