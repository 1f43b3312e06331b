package config

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolveBuild_FromModuleInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/good-yellow-bee/peervote", Version: "v1.2.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	b := resolveBuild(info)
	if b.Version != "v1.2.0" {
		t.Errorf("Version = %q, want v1.2.0", b.Version)
	}
	if b.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want 0123456789ab", b.Commit)
	}
	if b.BuildTime != "2026-10-01T12:00:00Z" {
		t.Errorf("BuildTime = %q", b.BuildTime)
	}
	if !strings.Contains(b.String(), "0123456789ab+dirty") {
		t.Errorf("String() = %q, want dirty marker", b.String())
	}
}

func TestResolveBuild_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })
	Version, Commit = "v2.0.0", "cafe"

	b := resolveBuild(&debug.BuildInfo{
		Main:     debug.Module{Version: "v1.0.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "beef"}},
	})
	if b.Version != "v2.0.0" || b.Commit != "cafe" {
		t.Errorf("build = %+v, want ldflags values", b)
	}
}

func TestResolveBuild_DevelAndNil(t *testing.T) {
	if b := resolveBuild(nil); b.Version != Version {
		t.Errorf("nil info Version = %q, want %q", b.Version, Version)
	}
	b := resolveBuild(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if b.Version != Version {
		t.Errorf("(devel) Version = %q", b.Version)
	}
	if !strings.HasPrefix(b.String(), "peervote ") {
		t.Errorf("String() = %q", b.String())
	}
}
