package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apecore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  address: \":9000\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("地址不符: %s", cfg.Server.Address)
	}
	if cfg.Workflows.Driver != "memory" || cfg.History.Driver != "memory" || cfg.Events.Driver != "none" {
		t.Fatalf("默认后端不符: %+v", cfg)
	}
	if !cfg.Agents.Echo.Enabled {
		t.Fatal("无任何执行者时应默认启用 echo")
	}
}

func TestLoadResolvesRelativePresets(t *testing.T) {
	path := writeConfig(t, "workflows:\n  presets_path: workflows.yaml\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	want := filepath.Join(filepath.Dir(path), "workflows.yaml")
	if cfg.Workflows.PresetsPath != want {
		t.Fatalf("预置路径不符: %s", cfg.Workflows.PresetsPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: openai\n  model: gpt-4o\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("模型不符: %s", cfg.LLM.Model)
	}
}

func TestLoadMissingPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if _, err := Load(""); err == nil {
		t.Fatal("无路径应报错")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [\n")
	if _, err := Load(path); err == nil {
		t.Fatal("非法 YAML 应报错")
	}
}
