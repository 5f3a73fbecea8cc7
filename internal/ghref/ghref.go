// Package ghref derives the build version from the ref a CI run was started
// for.
package ghref

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/thiagokokada/betarelease/internal/version"
)

var ErrUnrecognizedRef = errors.New("unrecognized ref")

// RunNumber accepts both "8" and 8 in JSON.
type RunNumber string

func (n *RunNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RunNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("run_number: %w", err)
	}
	*n = RunNumber(num.String())
	return nil
}

// Descriptor is the subset of the CI context dump used to pick a version.
type Descriptor struct {
	Ref       string    `json:"ref"`
	RunNumber RunNumber `json:"run_number"`
	SHA       string    `json:"sha"`
}

// ParseDescriptor decodes a JSON context dump.
func ParseDescriptor(dump []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(dump, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode ref descriptor: %w", err)
	}
	if d.Ref == "" {
		return Descriptor{}, fmt.Errorf("%w: missing ref", ErrUnrecognizedRef)
	}
	return d, nil
}

// Resolver maps ref descriptors to versions. It holds no state besides the
// trunk name and is safe for concurrent use.
type Resolver struct {
	Trunk string
}

// Resolve returns the version and commit for d:
//
//	refs/heads/<trunk>          -> fallback
//	refs/heads/beta/<V>         -> <V>b<run_number>
//	refs/tags/release/<V>       -> <V>
func (r Resolver) Resolve(d Descriptor, fallback string) (string, string, error) {
	trunk := r.Trunk
	if trunk == "" {
		trunk = "master"
	}
	switch {
	case d.Ref == "refs/heads/"+trunk:
		return fallback, d.SHA, nil
	case strings.HasPrefix(d.Ref, "refs/heads/beta/"):
		v, err := normalize(strings.TrimPrefix(d.Ref, "refs/heads/beta/"))
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", d.Ref, err)
		}
		if d.RunNumber == "" {
			return "", "", fmt.Errorf("%w: %s has no run_number", ErrUnrecognizedRef, d.Ref)
		}
		return fmt.Sprintf("%sb%s", v, d.RunNumber), d.SHA, nil
	case strings.HasPrefix(d.Ref, "refs/tags/release/"):
		v, err := normalize(strings.TrimPrefix(d.Ref, "refs/tags/release/"))
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", d.Ref, err)
		}
		return v, d.SHA, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnrecognizedRef, d.Ref)
	}
}

// normalize rewrites each dot component as a plain integer, so "0.04" becomes
// "0.4". Any number of components is accepted.
func normalize(text string) (string, error) {
	parts := strings.Split(text, ".")
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", version.ErrMalformedVersion, text)
		}
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, "."), nil
}
