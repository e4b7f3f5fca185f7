// Package metadata collects the optional build details attached to an
// upload: version control state, CI run information and who uploaded it.
package metadata

import (
	"os"
	"os/user"
)

// BuildDetails is sent verbatim as the "details" object of an upload request
type BuildDetails struct {
	VCS    *VCS        `json:"vcs,omitempty"`
	CI     *CI         `json:"ci,omitempty"`
	Upload *UploadInfo `json:"upload,omitempty"`
}

// UploadInfo records how the build reached the backend
type UploadInfo struct {
	Method     string `json:"method"`
	CLIVersion string `json:"cli_version,omitempty"`
	Uploader   string `json:"uploader,omitempty"`
}

// LookupEnv matches os.LookupEnv
type LookupEnv func(key string) (string, bool)

// Collector gathers BuildDetails from the environment and the working directory
type Collector struct {
	lookup  LookupEnv
	workDir string
}

// NewCollector creates a collector reading the process environment and the
// repository containing workDir
func NewCollector(workDir string) *Collector {
	return &Collector{lookup: os.LookupEnv, workDir: workDir}
}

// NewCollectorWithEnv creates a collector reading variables through lookup
func NewCollectorWithEnv(workDir string, lookup LookupEnv) *Collector {
	return &Collector{lookup: lookup, workDir: workDir}
}

// Collect gathers everything available. It never fails: missing pieces are
// simply left out.
func (c *Collector) Collect(cliVersion string) *BuildDetails {
	return &BuildDetails{
		VCS: c.VCS(),
		CI:  c.CI(),
		Upload: &UploadInfo{
			Method:     "cli",
			CLIVersion: cliVersion,
			Uploader:   c.uploader(),
		},
	}
}

func (c *Collector) uploader() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := c.env("USER"); name != "" {
		return name
	}
	return c.env("USERNAME")
}

// env returns the value of key, treating unset and empty alike
func (c *Collector) env(key string) string {
	v, _ := c.lookup(key)
	return v
}

// optional returns nil for an unset or empty variable
func (c *Collector) optional(key string) *string {
	v, ok := c.lookup(key)
	if !ok || v == "" {
		return nil
	}
	return &v
}
