package initfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// Preview returns the unified diff WriteVar would apply to path, labelled
// with label (usually the repository-relative path). An empty string means
// the file would not change.
func Preview(path string, label string, name string, value string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	before := string(data)
	after, _, _ := Rewrite(before, name, value)
	if before == after {
		return "", nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fmt.Sprintf("a/%s", label),
		ToFile:   fmt.Sprintf("b/%s", label),
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}
