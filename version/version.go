package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is set at build time; "dev" otherwise.
	Version = "dev"
	// GitCommit is set at build time, or read from the VCS build settings.
	GitCommit = ""
)

// Info is the resolved build information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get resolves the build information.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// String renders the version with its short commit when known.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s += "+" + i.GitCommit
	}
	if i.Dirty {
		s += ".dirty"
	}
	return s
}

// UserAgent returns "product/version".
func UserAgent(product string) string {
	return fmt.Sprintf("%s/%s", product, Get().Version)
}
