package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Info is the subset of the build metadata shown by the version command.
type Info struct {
	Version  string
	Revision string
	Modified bool
	Tags     string
}

// Read returns the build metadata, with Version "dev" when unset.
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return Info{Version: "dev"}
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) Info {
	out := Info{Version: info.Main.Version}
	if out.Version == "" || out.Version == "(devel)" {
		out.Version = "dev"
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "-tags":
			out.Tags = setting.Value
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.modified":
			out.Modified = setting.Value == "true"
		}
	}
	return out
}

// Version returns the module version or "dev" when unset.
func Version() string {
	return Read().Version
}

// String renders the version followed by the short revision and tags when
// present, eg. "v1.2.0 (rev 1a2b3c4d5e6f, dirty) (tags: nogit)".
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if i.Modified {
			fmt.Fprintf(&b, " (rev %s, dirty)", rev)
		} else {
			fmt.Fprintf(&b, " (rev %s)", rev)
		}
	}
	if i.Tags != "" {
		fmt.Fprintf(&b, " (tags: %s)", i.Tags)
	}
	return b.String()
}
