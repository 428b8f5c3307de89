package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"APE-Core/internal/agents/bitbucket"
	"APE-Core/internal/agents/chain"
	"APE-Core/internal/agents/echo"
	"APE-Core/internal/agents/jira"
	"APE-Core/internal/agents/pocket"
	"APE-Core/internal/agents/swdp"
	"APE-Core/internal/api"
	"APE-Core/internal/config"
	xerrors "APE-Core/internal/errors"
	"APE-Core/internal/event"
	"APE-Core/internal/llm"
	"APE-Core/internal/llm/openai"
	"APE-Core/internal/orchestrator"
	"APE-Core/internal/storage/mysql"
	"APE-Core/internal/workflow"
	"APE-Core/pkg/logger"
)

// main 是 APE-Core 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("apecored 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv(config.EnvConfigPath)
	if configPath == "" {
		configPath = filepath.Join("configs", "apecore.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled: cfg.Logging.AuditPath != "",
			Path:    cfg.Logging.AuditPath,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	store, err := buildWorkflowStore(cfg)
	if err != nil {
		return err
	}

	repository, err := buildExecutionRepository(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := buildEventPublisher(cfg)
	if err != nil {
		return err
	}

	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}

	orch := orchestrator.New(
		orchestrator.WithWorkflowStore(store),
		orchestrator.WithRepository(repository),
		orchestrator.WithPublisher(publisher),
		orchestrator.WithLLMClient(llmClient),
	)
	defer orch.Close()

	if err := registerAgents(ctx, cfg, orch); err != nil {
		return err
	}

	if cfg.Workflows.PresetsPath != "" {
		count, err := loadPresets(ctx, orch, cfg.Workflows.PresetsPath)
		if err != nil {
			return err
		}
		logger.L().Info("加载预置工作流", "count", count, "path", cfg.Workflows.PresetsPath)
	}

	logger.L().Info("apecored 启动",
		"session_id", orch.SessionID(),
		"agents", orch.RegisteredAgents(),
	)

	server := api.NewServer(cfg.Server.Address, orch, cfg.Server.ShutdownTimeout)
	return server.Start(ctx)
}

func buildWorkflowStore(cfg *config.Config) (workflow.Store, error) {
	switch cfg.Workflows.Driver {
	case "", "memory":
		return workflow.NewMemoryStore(), nil
	case "redis":
		return workflow.NewRedisStore(workflow.RedisStoreConfig{
			Address:  cfg.Workflows.Redis.Address,
			Password: cfg.Workflows.Redis.Password,
			DB:       cfg.Workflows.Redis.DB,
			Key:      cfg.Workflows.Redis.Key,
		})
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"未知的工作流存储驱动: "+cfg.Workflows.Driver)
	}
}

func buildExecutionRepository(ctx context.Context, cfg *config.Config) (mysql.ExecutionRepository, error) {
	switch cfg.History.Driver {
	case "none":
		return nil, nil
	case "", "memory":
		return mysql.NewMemoryExecutionRepository(cfg.History.Limit), nil
	case "mysql":
		return mysql.NewSQLExecutionRepository(ctx, mysql.Config{DSN: cfg.History.DSN})
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"未知的执行历史驱动: "+cfg.History.Driver)
	}
}

func buildEventPublisher(cfg *config.Config) (event.Publisher, error) {
	switch cfg.Events.Driver {
	case "", "none":
		return event.NopPublisher{}, nil
	case "rabbitmq":
		return event.NewRabbitMQPublisher(event.RabbitMQConfig{
			URL:     cfg.Events.URL,
			Queue:   cfg.Events.Queue,
			Durable: true,
		})
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"未知的事件驱动: "+cfg.Events.Driver)
	}
}

// buildLLMClient 在未配置 API Key 时返回 nil,规划接口将不可用。
func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		if cfg.LLM.APIKey == "" {
			logger.L().Warn("未配置 LLM API Key, 工作流规划不可用")
			return nil, nil
		}
		client, err := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			"未知的 LLM 提供方: "+cfg.LLM.Provider)
	}
}

func registerAgents(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator) error {
	if cfg.Agents.Echo.Enabled {
		if err := orch.RegisterAgent("echo", echo.New()); err != nil {
			return err
		}
	}
	if cfg.Agents.Jira.Enabled {
		ag, err := jira.New(jira.Config{
			BaseURL:    cfg.Agents.Jira.BaseURL,
			Username:   cfg.Agents.Jira.Username,
			APIToken:   cfg.Agents.Jira.APIToken,
			ProjectKey: cfg.Agents.Jira.ProjectKey,
		})
		if err != nil {
			return err
		}
		if err := orch.RegisterAgent("jira", ag); err != nil {
			return err
		}
	}
	if cfg.Agents.Bitbucket.Enabled {
		ag, err := bitbucket.New(bitbucket.Config{
			BaseURL:    cfg.Agents.Bitbucket.BaseURL,
			Token:      cfg.Agents.Bitbucket.Token,
			ProjectKey: cfg.Agents.Bitbucket.ProjectKey,
		})
		if err != nil {
			return err
		}
		if err := orch.RegisterAgent("bitbucket", ag); err != nil {
			return err
		}
	}
	if cfg.Agents.Pocket.Enabled {
		ag, err := pocket.New(pocket.Config{
			Endpoint:      cfg.Agents.Pocket.Endpoint,
			AccessKey:     cfg.Agents.Pocket.AccessKey,
			SecretKey:     cfg.Agents.Pocket.SecretKey,
			Region:        cfg.Agents.Pocket.Region,
			DefaultBucket: cfg.Agents.Pocket.DefaultBucket,
		})
		if err != nil {
			return err
		}
		if err := orch.RegisterAgent("pocket", ag); err != nil {
			return err
		}
	}
	if cfg.Agents.SWDP.Enabled {
		ag, err := swdp.New(ctx, swdp.Config{DSN: cfg.Agents.SWDP.DSN})
		if err != nil {
			return err
		}
		if err := orch.RegisterAgent("swdp", ag); err != nil {
			return err
		}
	}
	if cfg.Agents.Chain.Enabled {
		ag, err := chain.New(ctx, chain.Config{RPCURL: cfg.Agents.Chain.RPCURL})
		if err != nil {
			return err
		}
		if err := orch.RegisterAgent("chain", ag); err != nil {
			return err
		}
	}
	return nil
}

// loadPresets 将 YAML 预置文件中的工作流逐个注册。
func loadPresets(ctx context.Context, orch *orchestrator.Orchestrator, path string) (int, error) {
	definitions, err := workflow.LoadFile(path)
	if err != nil {
		return 0, err
	}
	for _, def := range definitions {
		if err := orch.RegisterWorkflow(ctx, def.ID, def.Steps, def.Metadata); err != nil {
			return 0, err
		}
	}
	return len(definitions), nil
}
