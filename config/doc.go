// Package config 提供 submind 的配置管理功能。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（SUBMIND_ 前缀）→ 验证器。
// personas 只能通过配置文件定义；未配置时使用五个内置 persona。
package config
