package config

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/good-yellow-bee/peervote/pkg/config.Version=...".
// Values left at their defaults are filled from the module build info, so a
// plain `go install` still reports its module version and VCS revision.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Build returns the build information of the running binary.
func Build() BuildInfo {
	info, _ := debug.ReadBuildInfo()
	return resolveBuild(info)
}

func resolveBuild(info *debug.BuildInfo) BuildInfo {
	b := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info == nil {
		return b
	}

	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if b.BuildTime == "unknown" {
				b.BuildTime = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String formats the build for `peervote version`.
func (b BuildInfo) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("peervote %s (%s, %s) %s %s", b.Version, commit, b.BuildTime, b.GoVersion, b.Platform)
}

// UserAgent returns the User-Agent sent with API requests.
func UserAgent() string {
	return fmt.Sprintf("peervote/%s (%s/%s)", Build().Version, runtime.GOOS, runtime.GOARCH)
}
