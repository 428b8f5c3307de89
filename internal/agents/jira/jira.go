// Package jira 实现 Jira 问题跟踪服务的执行者适配器。
package jira

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

// Config 描述 Jira 连接参数。使用用户名加 API Token 的 Basic 认证。
type Config struct {
	BaseURL    string
	Username   string
	APIToken   string
	ProjectKey string
	Timeout    time.Duration
}

// Agent 通过 Jira REST API v2 处理问题相关操作。
type Agent struct {
	client     *rest.Client
	projectKey string
}

// New 创建 Jira 执行者。
func New(cfg Config) (*Agent, error) {
	client, err := rest.NewClient(rest.Config{
		BaseURL:   cfg.BaseURL,
		BasicUser: cfg.Username,
		BasicPass: cfg.APIToken,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Agent{client: client, projectKey: cfg.ProjectKey}, nil
}

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{
		"get_issue",
		"create_issue",
		"update_issue",
		"search_issues",
		"add_comment",
		"get_projects",
		"get_issue_types",
	}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "get_issue":
		return a.getIssue(ctx, req.Params)
	case "create_issue":
		return a.createIssue(ctx, req.Params)
	case "update_issue":
		return a.updateIssue(ctx, req.Params)
	case "search_issues":
		return a.searchIssues(ctx, req.Params)
	case "add_comment":
		return a.addComment(ctx, req.Params)
	case "get_projects":
		return a.call(ctx, http.MethodGet, "/rest/api/2/project", nil, nil)
	case "get_issue_types":
		return a.call(ctx, http.MethodGet, "/rest/api/2/issuetype", nil, nil)
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

func (a *Agent) getIssue(ctx context.Context, params map[string]any) agent.Response {
	issueKey := agents.StringParam(params, "issue_key")
	if issueKey == "" {
		return agent.Fail("issue_key is required")
	}
	return a.call(ctx, http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(issueKey), nil, nil)
}

func (a *Agent) createIssue(ctx context.Context, params map[string]any) agent.Response {
	fields := agents.MapParam(params, "fields")
	if fields == nil {
		summary := agents.StringParam(params, "summary")
		if summary == "" {
			return agent.Fail("summary is required")
		}
		fields = map[string]any{
			"project":   map[string]any{"key": agents.StringParamDefault(params, "project_key", a.projectKey)},
			"summary":   summary,
			"issuetype": map[string]any{"name": agents.StringParamDefault(params, "issue_type", "Task")},
			"priority":  map[string]any{"name": agents.StringParamDefault(params, "priority", "Medium")},
		}
		if description := agents.StringParam(params, "description"); description != "" {
			fields["description"] = description
		}
		if labels := agents.SliceParam(params, "labels"); labels != nil {
			fields["labels"] = labels
		}
	}
	return a.call(ctx, http.MethodPost, "/rest/api/2/issue", nil, map[string]any{"fields": fields})
}

func (a *Agent) updateIssue(ctx context.Context, params map[string]any) agent.Response {
	issueKey := agents.StringParam(params, "issue_key")
	if issueKey == "" {
		return agent.Fail("issue_key is required")
	}
	fields := agents.MapParam(params, "fields")
	if fields == nil {
		return agent.Fail("fields is required")
	}
	return a.call(ctx, http.MethodPut, "/rest/api/2/issue/"+url.PathEscape(issueKey), nil,
		map[string]any{"fields": fields})
}

func (a *Agent) searchIssues(ctx context.Context, params map[string]any) agent.Response {
	jql := agents.StringParam(params, "jql")
	if jql == "" {
		return agent.Fail("jql is required")
	}
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", strconv.Itoa(agents.IntParam(params, "max_results", 50)))
	query.Set("startAt", strconv.Itoa(agents.IntParam(params, "start_at", 0)))
	return a.call(ctx, http.MethodGet, "/rest/api/2/search", query, nil)
}

func (a *Agent) addComment(ctx context.Context, params map[string]any) agent.Response {
	issueKey := agents.StringParam(params, "issue_key")
	comment := agents.StringParam(params, "comment")
	if issueKey == "" || comment == "" {
		return agent.Fail("issue_key and comment are required")
	}
	return a.call(ctx, http.MethodPost, "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/comment", nil,
		map[string]any{"body": comment})
}

func (a *Agent) call(ctx context.Context, method, path string, query url.Values, body any) agent.Response {
	data, err := a.client.DoJSON(ctx, method, path, query, body)
	if err != nil {
		return agent.Fail("%v", err)
	}
	return agent.Succeed(data)
}

var _ agent.Agent = (*Agent)(nil)
