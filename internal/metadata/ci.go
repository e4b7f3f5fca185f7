package metadata

import "fmt"

// CI describes the CI run that produced the build
type CI struct {
	System      string  `json:"system"`
	BuildNumber *string `json:"build_number,omitempty"`
	JobName     *string `json:"job_name,omitempty"`
	RunID       *string `json:"run_id,omitempty"`
	RunURL      *string `json:"run_url,omitempty"`
	TriggeredBy *string `json:"triggered_by,omitempty"`
	Agent       *string `json:"agent,omitempty"`
}

// CI detects the CI system from its environment variables. It returns nil
// outside of a known CI system.
func (c *Collector) CI() *CI {
	switch {
	case c.env("GITHUB_ACTIONS") == "true":
		ci := &CI{
			System:      "github-actions",
			BuildNumber: c.optional("GITHUB_RUN_NUMBER"),
			JobName:     c.optional("GITHUB_WORKFLOW"),
			RunID:       c.optional("GITHUB_RUN_ID"),
			TriggeredBy: c.optional("GITHUB_ACTOR"),
			Agent:       c.optional("RUNNER_NAME"),
		}
		server, repo, id := c.env("GITHUB_SERVER_URL"), c.env("GITHUB_REPOSITORY"), c.env("GITHUB_RUN_ID")
		if server != "" && repo != "" && id != "" {
			url := fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, id)
			ci.RunURL = &url
		}
		return ci

	case c.env("JENKINS_HOME") != "" || c.env("JENKINS_URL") != "":
		return &CI{
			System:      "jenkins",
			BuildNumber: c.optional("BUILD_NUMBER"),
			JobName:     c.optional("JOB_NAME"),
			RunID:       c.optional("BUILD_ID"),
			RunURL:      c.optional("BUILD_URL"),
			TriggeredBy: c.optional("BUILD_USER"),
			Agent:       c.optional("NODE_NAME"),
		}

	case c.env("GITLAB_CI") == "true":
		return &CI{
			System:      "gitlab-ci",
			BuildNumber: c.optional("CI_PIPELINE_IID"),
			JobName:     c.optional("CI_JOB_NAME"),
			RunID:       c.optional("CI_PIPELINE_ID"),
			RunURL:      c.optional("CI_PIPELINE_URL"),
			TriggeredBy: c.optional("GITLAB_USER_LOGIN"),
			Agent:       c.optional("CI_RUNNER_DESCRIPTION"),
		}

	case c.env("CIRCLECI") == "true":
		return &CI{
			System:      "circleci",
			BuildNumber: c.optional("CIRCLE_BUILD_NUM"),
			JobName:     c.optional("CIRCLE_JOB"),
			RunID:       c.optional("CIRCLE_WORKFLOW_ID"),
			RunURL:      c.optional("CIRCLE_BUILD_URL"),
			TriggeredBy: c.optional("CIRCLE_USERNAME"),
			Agent:       c.optional("CIRCLE_NODE_INDEX"),
		}

	case c.env("TRAVIS") == "true":
		return &CI{
			System:      "travis",
			BuildNumber: c.optional("TRAVIS_BUILD_NUMBER"),
			JobName:     c.optional("TRAVIS_JOB_NAME"),
			RunID:       c.optional("TRAVIS_JOB_ID"),
			RunURL:      c.optional("TRAVIS_BUILD_WEB_URL"),
		}

	case c.env("TF_BUILD") == "True":
		ci := &CI{
			System:      "azure-pipelines",
			BuildNumber: c.optional("BUILD_BUILDNUMBER"),
			JobName:     c.optional("BUILD_DEFINITIONNAME"),
			RunID:       c.optional("BUILD_BUILDID"),
			TriggeredBy: c.optional("BUILD_REQUESTEDFOR"),
			Agent:       c.optional("AGENT_NAME"),
		}
		uri, project, id := c.env("SYSTEM_TEAMFOUNDATIONCOLLECTIONURI"), c.env("SYSTEM_TEAMPROJECT"), c.env("BUILD_BUILDID")
		if uri != "" && project != "" && id != "" {
			url := fmt.Sprintf("%s%s/_build/results?buildId=%s", uri, project, id)
			ci.RunURL = &url
		}
		return ci

	case c.env("BITRISE_IO") == "true":
		return &CI{
			System:      "bitrise",
			BuildNumber: c.optional("BITRISE_BUILD_NUMBER"),
			JobName:     c.optional("BITRISE_TRIGGERED_WORKFLOW_ID"),
			RunID:       c.optional("BITRISE_BUILD_SLUG"),
			RunURL:      c.optional("BITRISE_BUILD_URL"),
			TriggeredBy: c.optional("BITRISE_TRIGGERED_WORKFLOW_TITLE"),
		}
	}
	return nil
}
