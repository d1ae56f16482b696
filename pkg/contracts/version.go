package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	Version = "1.0.0"

	// CacheFormatVersion is bumped whenever the cached raw-table layout changes
	CacheFormatVersion = "v1"

	// APIVersion covers the HTTP payloads and WebSocket messages
	APIVersion = "v1"
)

// Overridden with -ldflags -X by build.go.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is reported by /healthz and the analyzer's -version flag.
type VersionInfo struct {
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	GitCommit   string `json:"git_commit"`
	Modified    bool   `json:"modified,omitempty"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
	CacheFormat string `json:"cache_format"`
	APIVersion  string `json:"api_version"`
}

// GetVersionInfo falls back to the VCS stamp the go tool embeds when the
// binary was built without ldflags.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:     Version,
		BuildTime:   BuildTime,
		GitCommit:   GitCommit,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		CacheFormat: CacheFormatVersion,
		APIVersion:  APIVersion,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(&info, bi.Settings)
	}
	return info
}

func applyBuildSettings(info *VersionInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" && s.Value != "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// GetFullVersionString is the one-line banner printed by -version.
func GetFullVersionString() string {
	info := GetVersionInfo()
	commit := info.GitCommit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("freight-analyzer v%s (commit %s, built %s, %s %s, cache %s)",
		info.Version, commit, info.BuildTime, info.GoVersion, info.Platform, info.CacheFormat)
}
