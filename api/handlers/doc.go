/*
Package handlers 提供 submind HTTP API 的请求处理器实现。

# 概述

handlers 包实现讨论的同步运行、SSE 与 WebSocket 事件流、归档查询，
以及 persona、配置、模型和健康检查端点。所有 Handler 均遵循标准
net/http 接口，路由由 cmd/submind 注册。

# 核心类型

  - DiscussionHandler: 讨论运行（同步 / SSE / WebSocket）与归档读取
  - InfoHandler:       persona 列表、脱敏配置、模型列表
  - HealthHandler:     存活与就绪检查（/health, /ready, /version）
  - Archiver:          讨论结束后的归档与导出钩子
  - Response:          统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo:         结构化错误信息，含 code、message、retryable 标记

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码映射，取消的讨论返回 499
  - 客户端断开连接或发送 cancel 命令时取消讨论
*/
package handlers
