// Package orchestrator 实现工作流编排核心:顺序执行引擎、参数占位符
// 解析、条件判断以及基于 LLM 的工作流规划。
package orchestrator
