package backend

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/thiagokokada/betarelease/internal/version"
)

// Minimum git for the CLI backend: "git switch" and "git status
// --porcelain=v2" both need 2.23.
var minGitVersion = version.Version{Major: 2, Minor: 23}

func MinGitVersion() string {
	return minGitVersion.String()
}

// parseGitVersionOutput extracts the version from "git --version" output,
// tolerating vendor suffixes ("2.39.3 (Apple Git-146)", "2.39.3.windows.1")
// and a missing patch level.
func parseGitVersionOutput(out string) (version.Version, bool) {
	s := strings.TrimSpace(out)
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("git version"):])
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return version.Version{}, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	switch {
	case len(parts) < 2:
		return version.Version{}, false
	case len(parts) == 2:
		parts = append(parts, "0")
	}
	v, err := version.Parse(strings.Join(parts[:3], "."))
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.Less(minGitVersion) {
		return fmt.Errorf("git %s is too old; betarelease requires git >= %s", got, minGitVersion)
	}
	return nil
}

var (
	gitVersionOnce sync.Once
	gitVersionOut  string
	gitVersionErr  error
)

// GitVersion returns the raw "git --version" output, cached for the process.
func GitVersion() (string, error) {
	gitVersionOnce.Do(func() {
		outBytes, err := exec.Command("git", "--version").CombinedOutput()
		gitVersionOut = strings.TrimSpace(string(outBytes))
		if err != nil {
			if gitVersionOut != "" {
				gitVersionErr = fmt.Errorf("git --version: %v: %s", err, gitVersionOut)
				return
			}
			gitVersionErr = fmt.Errorf("git --version: %w", err)
		}
	})
	return gitVersionOut, gitVersionErr
}

func ensureMinGitVersion() error {
	out, err := GitVersion()
	if err != nil {
		return err
	}
	return validateGitVersionOutput(out)
}
