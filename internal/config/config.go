package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	xerrors "APE-Core/internal/errors"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "APECORE_CONFIG"

// Config 描述 APE-Core 启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	History   HistoryConfig   `yaml:"history"`
	Events    EventsConfig    `yaml:"events"`
	LLM       LLMConfig       `yaml:"llm"`
	Agents    AgentsConfig    `yaml:"agents"`
}

// ServerConfig 控制 API 服务的监听参数。
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig 映射到 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
	AuditPath   string   `yaml:"audit_path"`
}

// WorkflowsConfig 决定工作流定义的存储后端与预置文件。
type WorkflowsConfig struct {
	Driver      string      `yaml:"driver"`
	PresetsPath string      `yaml:"presets_path"`
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// HistoryConfig 决定执行历史的存储后端。
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Limit  int    `yaml:"limit"`
}

// EventsConfig 决定执行事件的投递后端。
type EventsConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Queue  string `yaml:"queue"`
}

// LLMConfig 配置规划器使用的模型服务。
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentsConfig 描述各个服务适配器的启用状态与连接信息。
type AgentsConfig struct {
	Echo      EchoAgentConfig      `yaml:"echo"`
	Jira      JiraAgentConfig      `yaml:"jira"`
	Bitbucket BitbucketAgentConfig `yaml:"bitbucket"`
	Pocket    PocketAgentConfig    `yaml:"pocket"`
	SWDP      SWDPAgentConfig      `yaml:"swdp"`
	Chain     ChainAgentConfig     `yaml:"chain"`
}

// EchoAgentConfig 控制演示执行者。
type EchoAgentConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JiraAgentConfig 描述 Jira 适配器参数。
type JiraAgentConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Username   string `yaml:"username"`
	APIToken   string `yaml:"api_token"`
	ProjectKey string `yaml:"project_key"`
}

// BitbucketAgentConfig 描述 Bitbucket 适配器参数。
type BitbucketAgentConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	ProjectKey string `yaml:"project_key"`
}

// PocketAgentConfig 描述对象存储适配器参数。
type PocketAgentConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Region        string `yaml:"region"`
	DefaultBucket string `yaml:"default_bucket"`
}

// SWDPAgentConfig 描述 SWDP 数据库适配器参数。
type SWDPAgentConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// ChainAgentConfig 描述链节点适配器参数。
type ChainAgentConfig struct {
	Enabled bool   `yaml:"enabled"`
	RPCURL  string `yaml:"rpc_url"`
}

// Load 解析指定路径的 YAML 配置文件。path 为空时回退到
// APECORE_CONFIG 环境变量。
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "读取配置文件失败")
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "解析配置失败")
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

// Default 返回一套可直接本地运行的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。相对路径
// 以配置文件所在目录为基准。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Workflows.Driver == "" {
		c.Workflows.Driver = "memory"
	}
	if c.Workflows.PresetsPath != "" && !filepath.IsAbs(c.Workflows.PresetsPath) {
		c.Workflows.PresetsPath = filepath.Join(baseDir, c.Workflows.PresetsPath)
	}

	if c.History.Driver == "" {
		c.History.Driver = "memory"
	}
	if c.History.Limit <= 0 {
		c.History.Limit = 512
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}

	if !c.Agents.Echo.Enabled && !c.Agents.Jira.Enabled && !c.Agents.Bitbucket.Enabled &&
		!c.Agents.Pocket.Enabled && !c.Agents.SWDP.Enabled && !c.Agents.Chain.Enabled {
		c.Agents.Echo.Enabled = true
	}
}
