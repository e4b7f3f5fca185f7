package version

import (
	"io"
	"runtime"
	"runtime/debug"

	"github.com/gioco-play/easy-i18n/i18n"
)

// Variables injected at compile time with -ldflags "-X ..."
var (
	BuildVersion = "unknown"
	BuildTime    = "unknown"
	GitCommit    = "unknown"
)

// Info struct stores application version information
type Info struct {
	Version   string
	BuildTime string
	GitCommit string
	GoVersion string
}

// Get gets version number, prefers compile-time injected version, then the
// module version recorded by go install
func Get() string {
	if BuildVersion != "unknown" {
		return BuildVersion
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "0.0.0"
}

// GetInfo gets complete version information
func GetInfo() Info {
	return Info{
		Version:   Get(),
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

// Print writes version information to w
func Print(w io.Writer) {
	info := GetInfo()
	i18n.Fprintf(w, "Nunu CLI v%s\n", info.Version)
	i18n.Fprintf(w, "  commit: %s\n  built:  %s\n  go:     %s\n", info.GitCommit, info.BuildTime, info.GoVersion)
}
