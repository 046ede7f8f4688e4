package version

import (
	"fmt"
	"runtime"
)

var (
	CLIName    = "rise"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

// Info is the build metadata stamped at link time.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Go        string `json:"go"`
}

func Current() Info {
	return Info{
		Name:      CLIName,
		Version:   CLIVersion,
		Commit:    Commit,
		BuildDate: BuildDate,
		Go:        runtime.Version(),
	}
}

func Long() string {
	info := Current()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s)", info.Name, info.Version, info.Commit, info.BuildDate, info.Go)
}
