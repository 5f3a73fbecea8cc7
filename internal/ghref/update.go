package ghref

import (
	"strings"

	"github.com/thiagokokada/betarelease/internal/initfile"
)

// UpdateOptions names the variables written by UpdateInitFile.
type UpdateOptions struct {
	Trunk   string
	VarName string // "__version__" when empty
	HashVar string // "__hash__" when empty
}

// UpdateInitFile resolves the version for dump and stores it, together with
// the commit hash, in the init file at path. With an empty dump the file is
// left alone and its current version is returned.
func UpdateInitFile(path string, dump string, opts UpdateOptions) (string, error) {
	if opts.VarName == "" {
		opts.VarName = "__version__"
	}
	if opts.HashVar == "" {
		opts.HashVar = "__hash__"
	}

	current, err := initfile.ReadVar(path, opts.VarName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dump) == "" {
		return current, nil
	}

	desc, err := ParseDescriptor([]byte(dump))
	if err != nil {
		return "", err
	}
	ver, sha, err := Resolver{Trunk: opts.Trunk}.Resolve(desc, current)
	if err != nil {
		return "", err
	}
	if _, err := initfile.WriteVar(path, opts.VarName, ver, false); err != nil {
		return "", err
	}
	if _, err := initfile.WriteVar(path, opts.HashVar, sha, true); err != nil {
		return "", err
	}
	return ver, nil
}
