package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"APE-Core/internal/agent"
	xerrors "APE-Core/internal/errors"
	"APE-Core/internal/orchestrator"
	"APE-Core/internal/workflow"
	"APE-Core/pkg/logger"
)

// Server 负责暴露 REST 接口,供外部注册与执行工作流。
type Server struct {
	addr            string
	orch            *orchestrator.Orchestrator
	shutdownTimeout time.Duration
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, orch *orchestrator.Orchestrator, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{addr: addr, orch: orch, shutdownTimeout: shutdownTimeout}
}

// Handler 返回路由后的处理器,便于测试直接调用。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/workflows", s.handleWorkflows)
	mux.HandleFunc("/api/v1/workflows/", s.handleWorkflowByID)
	mux.HandleFunc("/api/v1/workflows/execute", s.handleExecute)
	mux.HandleFunc("/api/v1/workflows/plan", s.handlePlan)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agents/execute", s.handleExecuteAgent)
	mux.HandleFunc("/api/v1/executions", s.handleExecutions)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start 启动 HTTP 服务,直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("API 服务启动", "address", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// registerWorkflowRequest 是注册工作流的请求体。
type registerWorkflowRequest struct {
	ID       string              `json:"id"`
	Steps    []workflow.StepSpec `json:"steps"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

// executeWorkflowRequest 是执行工作流的请求体。
type executeWorkflowRequest struct {
	WorkflowID string         `json:"workflow_id"`
	Input      map[string]any `json:"input,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// planRequest 是规划工作流的请求体。
type planRequest struct {
	Query  string   `json:"query"`
	Agents []string `json:"agents,omitempty"`
}

// executeAgentRequest 是直接调用执行者的请求体。
type executeAgentRequest struct {
	Agent  string         `json:"agent"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req registerWorkflowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "请求体解析失败", http.StatusBadRequest)
			return
		}
		if err := s.orch.RegisterWorkflow(r.Context(), req.ID, req.Steps, req.Metadata); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID})
	case http.MethodGet:
		ids, err := s.orch.WorkflowIDs(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workflows": ids})
	default:
		http.Error(w, "仅支持 GET/POST", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWorkflowByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflows/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		def, err := s.orch.GetWorkflow(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, def)
	case http.MethodDelete:
		removed, err := s.orch.RemoveWorkflow(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !removed {
			http.Error(w, "工作流不存在", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": true})
	default:
		http.Error(w, "仅支持 GET/DELETE", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req executeWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if req.WorkflowID == "" {
		http.Error(w, "workflow_id 不能为空", http.StatusBadRequest)
		return
	}

	result := s.orch.ExecuteWorkflow(r.Context(), req.WorkflowID, req.Input, req.Context)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}

	plan, err := s.orch.PlanWorkflow(r.Context(), req.Query, req.Agents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.orch.RegisteredAgents()})
}

func (s *Server) handleExecuteAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req executeAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if req.Agent == "" || req.Action == "" {
		http.Error(w, "agent 和 action 不能为空", http.StatusBadRequest)
		return
	}

	resp := s.orch.ExecuteAgent(r.Context(), req.Agent, agent.Request{
		Action: req.Action,
		Params: req.Params,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.orch.ExecutionHistory(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError 按错误码映射 HTTP 状态。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument, orchestrator.CodePlanInvalidSteps, workflow.CodeWorkflowValidation:
		status = http.StatusBadRequest
	case xerrors.CodeNotFound, workflow.CodeWorkflowNotFound:
		status = http.StatusNotFound
	case xerrors.CodeConflict:
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
