package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// VCS describes the commit the build was made from
type VCS struct {
	Type          string       `json:"type"`
	Provider      *string      `json:"provider,omitempty"`
	RepositoryURL *string      `json:"repository_url,omitempty"`
	Commit        Commit       `json:"commit"`
	Branch        *string      `json:"branch,omitempty"`
	Tag           *string      `json:"tag,omitempty"`
	PR            *PullRequest `json:"pr,omitempty"`
}

// Commit identifies a single commit
type Commit struct {
	Hash      string  `json:"hash"`
	ShortHash string  `json:"short_hash"`
	Message   *string `json:"message,omitempty"`
	Author    *string `json:"author,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// PullRequest describes the pull or merge request under test, if any
type PullRequest struct {
	Number       uint32  `json:"number"`
	Title        *string `json:"title,omitempty"`
	URL          *string `json:"url,omitempty"`
	SourceBranch *string `json:"source_branch,omitempty"`
	TargetBranch *string `json:"target_branch,omitempty"`
}

// VCS returns git metadata from CI variables (Jenkins, GitHub Actions,
// GitLab CI in that order), falling back to the local repository. It
// returns nil when none is available.
func (c *Collector) VCS() *VCS {
	for _, collect := range []func() *VCS{c.jenkinsVCS, c.githubVCS, c.gitlabVCS, c.localVCS} {
		if vcs := collect(); vcs != nil {
			return vcs
		}
	}
	return nil
}

func (c *Collector) jenkinsVCS() *VCS {
	commit := c.env("GIT_COMMIT")
	if commit == "" {
		return nil
	}

	vcs := &VCS{
		Type:          "git",
		RepositoryURL: c.optional("GIT_URL"),
		Commit: Commit{
			Hash:      commit,
			ShortHash: shortHash(commit),
			Author:    c.optional("GIT_AUTHOR_EMAIL"),
		},
	}
	if vcs.Commit.Author == nil {
		vcs.Commit.Author = c.optional("GIT_AUTHOR_NAME")
	}
	if branch := c.env("GIT_BRANCH"); branch != "" {
		branch = strings.TrimPrefix(branch, "origin/")
		vcs.Branch = &branch
	}
	if vcs.RepositoryURL != nil {
		vcs.Provider = DetectProvider(*vcs.RepositoryURL)
	}
	if number, ok := parsePRNumber(c.env("CHANGE_ID")); ok {
		vcs.PR = &PullRequest{
			Number:       number,
			Title:        c.optional("CHANGE_TITLE"),
			URL:          c.optional("CHANGE_URL"),
			SourceBranch: c.optional("CHANGE_BRANCH"),
			TargetBranch: c.optional("CHANGE_TARGET"),
		}
	}
	return vcs
}

func (c *Collector) githubVCS() *VCS {
	if c.env("GITHUB_ACTIONS") != "true" {
		return nil
	}
	sha, ref := c.env("GITHUB_SHA"), c.env("GITHUB_REF")
	if sha == "" || ref == "" {
		return nil
	}

	provider := "github"
	vcs := &VCS{
		Type:     "git",
		Provider: &provider,
		Commit: Commit{
			Hash:      sha,
			ShortHash: shortHash(sha),
			Author:    c.optional("GITHUB_ACTOR"),
		},
	}

	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		branch := strings.TrimPrefix(ref, "refs/heads/")
		vcs.Branch = &branch
	default:
		vcs.Branch = c.optional("GITHUB_REF_NAME")
	}
	if strings.HasPrefix(ref, "refs/tags/") {
		tag := strings.TrimPrefix(ref, "refs/tags/")
		vcs.Tag = &tag
	}

	repo := c.env("GITHUB_REPOSITORY")
	if repo != "" {
		url := "https://github.com/" + repo
		vcs.RepositoryURL = &url
	}

	if c.env("GITHUB_EVENT_NAME") == "pull_request" && strings.HasPrefix(ref, "refs/pull/") {
		rest := strings.TrimPrefix(ref, "refs/pull/")
		if number, ok := parsePRNumber(strings.SplitN(rest, "/", 2)[0]); ok {
			server := c.env("GITHUB_SERVER_URL")
			if server == "" {
				server = "https://github.com"
			}
			url := fmt.Sprintf("%s/%s/pull/%d", server, repo, number)
			vcs.PR = &PullRequest{
				Number:       number,
				URL:          &url,
				SourceBranch: c.optional("GITHUB_HEAD_REF"),
				TargetBranch: c.optional("GITHUB_BASE_REF"),
			}
		}
	}
	return vcs
}

func (c *Collector) gitlabVCS() *VCS {
	if c.env("GITLAB_CI") != "true" {
		return nil
	}
	sha := c.env("CI_COMMIT_SHA")
	if sha == "" {
		return nil
	}

	provider := "gitlab"
	short := c.env("CI_COMMIT_SHORT_SHA")
	if short == "" {
		short = shortHash(sha)
	}
	vcs := &VCS{
		Type:          "git",
		Provider:      &provider,
		RepositoryURL: c.optional("CI_PROJECT_URL"),
		Commit: Commit{
			Hash:      sha,
			ShortHash: short,
			Message:   c.optional("CI_COMMIT_MESSAGE"),
			Author:    c.optional("CI_COMMIT_AUTHOR"),
			Timestamp: c.optional("CI_COMMIT_TIMESTAMP"),
		},
		Branch: c.optional("CI_COMMIT_BRANCH"),
		Tag:    c.optional("CI_COMMIT_TAG"),
	}
	if number, ok := parsePRNumber(c.env("CI_MERGE_REQUEST_IID")); ok {
		pr := &PullRequest{
			Number:       number,
			Title:        c.optional("CI_MERGE_REQUEST_TITLE"),
			SourceBranch: c.optional("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME"),
			TargetBranch: c.optional("CI_MERGE_REQUEST_TARGET_BRANCH_NAME"),
		}
		if base := c.env("CI_MERGE_REQUEST_PROJECT_URL"); base != "" {
			url := fmt.Sprintf("%s/-/merge_requests/%d", base, number)
			pr.URL = &url
		}
		vcs.PR = pr
	}
	return vcs
}

// localVCS reads HEAD of the repository containing the working directory
func (c *Collector) localVCS() *VCS {
	repo, err := git.PlainOpenWithOptions(c.workDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil
	}

	hash := head.Hash().String()
	vcs := &VCS{
		Type:   "git",
		Commit: Commit{Hash: hash, ShortHash: shortHash(hash)},
	}

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		subject := strings.SplitN(strings.TrimSpace(commit.Message), "\n", 2)[0]
		author := fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
		timestamp := commit.Committer.When.Format(time.RFC3339)
		vcs.Commit.Message = &subject
		vcs.Commit.Author = &author
		vcs.Commit.Timestamp = &timestamp
	}

	if head.Name().IsBranch() {
		branch := head.Name().Short()
		vcs.Branch = &branch
	} else {
		detached := "HEAD"
		vcs.Branch = &detached
	}

	if tag, err := tagAt(repo, head.Hash()); err == nil && tag != "" {
		vcs.Tag = &tag
	}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			url := urls[0]
			vcs.RepositoryURL = &url
			vcs.Provider = DetectProvider(url)
		}
	}
	return vcs
}

// tagAt returns the name of a tag pointing at hash, lightweight or annotated
func tagAt(repo *git.Repository, hash plumbing.Hash) (string, error) {
	tags, err := repo.Tags()
	if err != nil {
		return "", err
	}
	defer tags.Close()

	var name string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tagObj, err := repo.TagObject(target); err == nil {
			target = tagObj.Target
		}
		if target == hash {
			name = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	return name, err
}

// DetectProvider maps a remote URL to its hosting provider
func DetectProvider(url string) *string {
	var provider string
	switch {
	case strings.Contains(url, "github.com"):
		provider = "github"
	case strings.Contains(url, "gitlab.com"):
		provider = "gitlab"
	case strings.Contains(url, "bitbucket.org"):
		provider = "bitbucket"
	case strings.Contains(url, "dev.azure.com"), strings.Contains(url, "visualstudio.com"):
		provider = "azure-devops"
	default:
		return nil
	}
	return &provider
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func parsePRNumber(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
