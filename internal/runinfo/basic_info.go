// Package runinfo records where a workload was generated so that published
// workloads can be traced back to a CI run or commit.
package runinfo

import (
	"os"
	"regexp"
	"strings"
)

var githubPullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// BasicInfo captures CI/run metadata stored next to generated workloads.
type BasicInfo struct {
	CI          bool   `json:"ci,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
}

// overrides maps GMARK_RUN_* variables onto fields. They win over anything
// detected from the CI provider.
var overrides = []struct {
	key string
	get func(*BasicInfo) *string
}{
	{"GMARK_RUN_PROVIDER", func(b *BasicInfo) *string { return &b.Provider }},
	{"GMARK_RUN_REPOSITORY", func(b *BasicInfo) *string { return &b.Repository }},
	{"GMARK_RUN_BRANCH", func(b *BasicInfo) *string { return &b.Branch }},
	{"GMARK_RUN_COMMIT", func(b *BasicInfo) *string { return &b.Commit }},
	{"GMARK_RUN_ID", func(b *BasicInfo) *string { return &b.RunID }},
	{"GMARK_RUN_PULL_REQUEST", func(b *BasicInfo) *string { return &b.PullRequest }},
	{"GMARK_RUN_BUILD_URL", func(b *BasicInfo) *string { return &b.BuildURL }},
}

// FromEnv builds run metadata from environment variables. It returns nil
// outside CI when no override is set.
func FromEnv() *BasicInfo {
	info := detect()
	explicit := false
	for _, o := range overrides {
		if v := env(o.key); v != "" {
			*o.get(&info) = v
			explicit = true
		}
	}
	if explicit {
		info.CI = true
	}
	info.Provider = strings.ToLower(info.Provider)
	info.Branch = strings.TrimPrefix(strings.TrimPrefix(info.Branch, "refs/heads/"), "origin/")
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
	if info == (BasicInfo{}) {
		return nil
	}
	return &info
}

func detect() BasicInfo {
	var info BasicInfo
	switch {
	case isTruthy(env("GITHUB_ACTIONS")):
		info = BasicInfo{
			CI:          true,
			Provider:    "github_actions",
			Repository:  env("GITHUB_REPOSITORY"),
			Branch:      envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME"),
			Commit:      env("GITHUB_SHA"),
			RunID:       env("GITHUB_RUN_ID"),
			PullRequest: githubPullRequestFromRef(env("GITHUB_REF")),
		}
		server := env("GITHUB_SERVER_URL")
		if server == "" {
			server = "https://github.com"
		}
		if info.Repository != "" && info.RunID != "" {
			info.BuildURL = strings.TrimRight(server, "/") + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
	case isTruthy(env("GITLAB_CI")):
		info = BasicInfo{
			CI:          true,
			Provider:    "gitlab_ci",
			Repository:  env("CI_PROJECT_PATH"),
			Branch:      env("CI_COMMIT_REF_NAME"),
			Commit:      env("CI_COMMIT_SHA"),
			RunID:       env("CI_PIPELINE_ID"),
			PullRequest: env("CI_MERGE_REQUEST_IID"),
			BuildURL:    env("CI_JOB_URL"),
		}
	case env("JENKINS_URL") != "":
		info = BasicInfo{
			CI:       true,
			Provider: "jenkins",
			Branch:   envFirst("BRANCH_NAME", "GIT_BRANCH"),
			Commit:   env("GIT_COMMIT"),
			RunID:    env("BUILD_ID"),
			BuildURL: env("BUILD_URL"),
		}
	case isTruthy(env("CI")):
		info.CI = true
	}
	return info
}

func githubPullRequestFromRef(ref string) string {
	m := githubPullRefPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
