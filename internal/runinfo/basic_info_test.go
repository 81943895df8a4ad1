package runinfo

import "testing"

func TestFromEnvGitHubActions(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_REPOSITORY", "acme/gmark")
	t.Setenv("GITHUB_HEAD_REF", "feature/cycles")
	t.Setenv("GITHUB_REF", "refs/pull/31/merge")
	t.Setenv("GITHUB_SHA", "deadbeef")
	t.Setenv("GITHUB_RUN_ID", "4242")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI || info.Provider != "github_actions" {
		t.Fatalf("ci=%v provider=%q", info.CI, info.Provider)
	}
	if info.Branch != "feature/cycles" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.PullRequest != "31" {
		t.Fatalf("pull_request=%q", info.PullRequest)
	}
	if info.BuildURL != "https://github.com/acme/gmark/actions/runs/4242" {
		t.Fatalf("build_url=%q", info.BuildURL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("GMARK_RUN_PROVIDER", "Manual")
	t.Setenv("GMARK_RUN_BRANCH", "refs/heads/nightly")
	t.Setenv("GMARK_RUN_COMMIT", "abc123")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI {
		t.Fatalf("expected ci=true when overrides are set")
	}
	if info.Provider != "manual" {
		t.Fatalf("provider=%q", info.Provider)
	}
	if info.Branch != "nightly" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.Commit != "abc123" {
		t.Fatalf("commit=%q", info.Commit)
	}
}

func TestFromEnvGenericCI(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("CI", "1")
	info := FromEnv()
	if info == nil || info.Provider != "generic" {
		t.Fatalf("expected generic provider, got %+v", info)
	}
}

func TestFromEnvEmpty(t *testing.T) {
	clearKnownEnv(t)
	if info := FromEnv(); info != nil {
		t.Fatalf("expected nil run info, got %+v", *info)
	}
}

func clearKnownEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITHUB_SERVER_URL",
		"GITHUB_REPOSITORY",
		"GITHUB_REF",
		"GITHUB_REF_NAME",
		"GITHUB_HEAD_REF",
		"GITHUB_SHA",
		"GITHUB_RUN_ID",
		"GITLAB_CI",
		"CI_PROJECT_PATH",
		"CI_COMMIT_REF_NAME",
		"CI_COMMIT_SHA",
		"CI_PIPELINE_ID",
		"CI_MERGE_REQUEST_IID",
		"CI_JOB_URL",
		"JENKINS_URL",
		"BRANCH_NAME",
		"GIT_BRANCH",
		"GIT_COMMIT",
		"BUILD_ID",
		"BUILD_URL",
	}
	for _, o := range overrides {
		keys = append(keys, o.key)
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
