package config

import (
	"net/url"
	"strings"

	apperrors "nunu-cli/internal/pkg/errors"
)

// DefaultAPIURL is used when no api_url is configured anywhere
const DefaultAPIURL = "https://nunu.ai/api"

// Config holds the connection settings for the Nunu API
type Config struct {
	APIToken  string `koanf:"api_token"`
	ProjectID string `koanf:"project_id"`
	APIURL    string `koanf:"api_url"`
}

// Validate rejects a configuration the API would refuse anyway
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIToken) == "" {
		return apperrors.NewConfigError("API token cannot be empty (use --token, NUNU_API_TOKEN or a config file)", nil)
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return apperrors.NewConfigError("Project ID cannot be empty (use --project-id, NUNU_PROJECT_ID or a config file)", nil)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewParsingError("api_url", c.APIURL, err)
	}
	return nil
}

// BaseUploadURL returns {api_url}/nexus/projects/{project_id}/builds
func (c *Config) BaseUploadURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/nexus/projects/" + url.PathEscape(c.ProjectID) + "/builds"
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if len(c.APIToken) > 4 {
		c.APIToken = "****" + c.APIToken[len(c.APIToken)-4:]
	} else if c.APIToken != "" {
		c.APIToken = "****"
	}
	return c
}
