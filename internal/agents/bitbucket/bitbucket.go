// Package bitbucket 实现 Bitbucket 代码托管服务的执行者适配器。
package bitbucket

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"APE-Core/internal/agent"
	"APE-Core/internal/agents"
	"APE-Core/internal/agents/rest"
)

// Config 描述 Bitbucket 连接参数。ProjectKey 是默认项目。
type Config struct {
	BaseURL    string
	Token      string
	ProjectKey string
	Timeout    time.Duration
}

// Agent 通过 Bitbucket REST API 1.0 处理仓库相关操作。
type Agent struct {
	client     *rest.Client
	projectKey string
}

// New 创建 Bitbucket 执行者。
func New(cfg Config) (*Agent, error) {
	client, err := rest.NewClient(rest.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Agent{client: client, projectKey: cfg.ProjectKey}, nil
}

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{
		"get_repositories",
		"get_repository",
		"get_branches",
		"get_pull_requests",
		"get_pull_request",
		"create_pull_request",
		"get_commits",
		"get_file_content",
	}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "get_repositories":
		return a.call(ctx, http.MethodGet, a.projectPath(req.Params)+"/repos", nil, nil)
	case "get_repository":
		return a.repoCall(ctx, req.Params, "")
	case "get_branches":
		return a.repoCall(ctx, req.Params, "/branches")
	case "get_pull_requests":
		return a.getPullRequests(ctx, req.Params)
	case "get_pull_request":
		return a.getPullRequest(ctx, req.Params)
	case "create_pull_request":
		return a.createPullRequest(ctx, req.Params)
	case "get_commits":
		return a.repoCall(ctx, req.Params, "/commits")
	case "get_file_content":
		return a.getFileContent(ctx, req.Params)
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

// projectPath 计算项目级 API 前缀,允许参数覆盖默认项目。
func (a *Agent) projectPath(params map[string]any) string {
	projectKey := agents.StringParamDefault(params, "project_key", a.projectKey)
	return "/rest/api/1.0/projects/" + url.PathEscape(projectKey)
}

// repoPath 计算仓库级 API 前缀,repo_slug 缺失时返回空串。
func (a *Agent) repoPath(params map[string]any) string {
	repoSlug := agents.StringParam(params, "repo_slug")
	if repoSlug == "" {
		return ""
	}
	return a.projectPath(params) + "/repos/" + url.PathEscape(repoSlug)
}

func (a *Agent) repoCall(ctx context.Context, params map[string]any, suffix string) agent.Response {
	base := a.repoPath(params)
	if base == "" {
		return agent.Fail("repo_slug is required")
	}
	return a.call(ctx, http.MethodGet, base+suffix, nil, nil)
}

func (a *Agent) getPullRequests(ctx context.Context, params map[string]any) agent.Response {
	base := a.repoPath(params)
	if base == "" {
		return agent.Fail("repo_slug is required")
	}
	query := url.Values{}
	query.Set("state", agents.StringParamDefault(params, "state", "OPEN"))
	query.Set("limit", strconv.Itoa(agents.IntParam(params, "limit", 25)))
	return a.call(ctx, http.MethodGet, base+"/pull-requests", query, nil)
}

func (a *Agent) getPullRequest(ctx context.Context, params map[string]any) agent.Response {
	base := a.repoPath(params)
	if base == "" {
		return agent.Fail("repo_slug is required")
	}
	id := agents.IntParam(params, "pull_request_id", 0)
	if id <= 0 {
		return agent.Fail("pull_request_id is required")
	}
	return a.call(ctx, http.MethodGet, base+"/pull-requests/"+strconv.Itoa(id), nil, nil)
}

func (a *Agent) createPullRequest(ctx context.Context, params map[string]any) agent.Response {
	base := a.repoPath(params)
	if base == "" {
		return agent.Fail("repo_slug is required")
	}
	title := agents.StringParam(params, "title")
	fromRef := agents.StringParam(params, "from_branch")
	toRef := agents.StringParam(params, "to_branch")
	if title == "" || fromRef == "" || toRef == "" {
		return agent.Fail("title, from_branch and to_branch are required")
	}
	body := map[string]any{
		"title":       title,
		"description": agents.StringParam(params, "description"),
		"fromRef":     map[string]any{"id": "refs/heads/" + fromRef},
		"toRef":       map[string]any{"id": "refs/heads/" + toRef},
	}
	return a.call(ctx, http.MethodPost, base+"/pull-requests", nil, body)
}

func (a *Agent) getFileContent(ctx context.Context, params map[string]any) agent.Response {
	base := a.repoPath(params)
	if base == "" {
		return agent.Fail("repo_slug is required")
	}
	filePath := agents.StringParam(params, "file_path")
	if filePath == "" {
		return agent.Fail("file_path is required")
	}
	query := url.Values{}
	if at := agents.StringParam(params, "at"); at != "" {
		query.Set("at", at)
	}
	return a.call(ctx, http.MethodGet, base+"/browse/"+filePath, query, nil)
}

func (a *Agent) call(ctx context.Context, method, path string, query url.Values, body any) agent.Response {
	data, err := a.client.DoJSON(ctx, method, path, query, body)
	if err != nil {
		return agent.Fail("%v", err)
	}
	return agent.Succeed(data)
}

var _ agent.Agent = (*Agent)(nil)
