package workflow

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// presetFile 是工作流预置文件的顶层结构。
type presetFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// LoadFile 解析 YAML 预置文件并返回其中的工作流定义。
// 任何一条定义校验失败都会使整个文件被拒绝。
func LoadFile(path string) ([]Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取工作流预置文件失败: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析工作流预置文件失败: %w", err)
	}
	if len(file.Workflows) == 0 {
		return nil, fmt.Errorf("预置文件 %s 中没有工作流定义", path)
	}

	for i := range file.Workflows {
		if err := file.Workflows[i].Validate(); err != nil {
			return nil, fmt.Errorf("预置工作流 %q 校验失败: %w", file.Workflows[i].ID, err)
		}
	}
	return file.Workflows, nil
}

// LoadPresets 加载预置文件并注册其中的全部工作流。
func (r *Registry) LoadPresets(ctx context.Context, path string) (int, error) {
	defs, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	for i := range defs {
		if err := r.RegisterDefinition(ctx, &defs[i]); err != nil {
			return i, err
		}
	}
	return len(defs), nil
}
