// Package version reports what build of ape is running. Release builds
// stamp the variables below through ldflags; anything else falls back
// to the VCS metadata the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/prompteng/ape/version.Version=…" at
// release time.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// Info describes one build of the toolkit
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get resolves build information, preferring ldflags values and filling
// gaps from the embedded VCS settings.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		stamped := CommitHash != ""
		dirty := false
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.CommitHash == "" {
					info.CommitHash = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				dirty = s.Value == "true"
			}
		}
		if dirty && !stamped && info.CommitHash != "" {
			info.CommitHash += "-dirty"
		}
	}

	if info.CommitHash == "" {
		info.CommitHash = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("ape %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short abbreviates the commit hash the way git log does
func (i Info) Short() string {
	if len(i.CommitHash) > 12 {
		return i.CommitHash[:12]
	}
	return i.CommitHash
}
