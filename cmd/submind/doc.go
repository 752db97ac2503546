/*
Package main 提供 submind 可执行程序入口。

# 概述

cmd/submind 把讨论引擎装配成 HTTP 服务和终端工具。配置来自 YAML
文件与 SUBMIND_* 环境变量，日志使用 zap，指标通过独立端口暴露。

# 核心类型

  - App:        共享组件：LLM provider、编排器、归档存储、导出器、遥测
  - Server:     HTTP 与 Metrics 双端口服务及优雅关闭
  - Archiver:   讨论结束后写入存储并导出文件
  - Printer:    基于 lipgloss 的终端事件渲染
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler

# 子命令

  - serve：启动 HTTP 服务
  - run：单次或交互式讨论，Ctrl-C 取消当前讨论
  - personas：列出配置的参与者
  - health：检查 LLM 网关或运行中的服务
  - version：输出构建信息（Version、BuildTime、GitCommit 通过 ldflags 注入）

# 中间件链

Recovery、RequestID、SecurityHeaders、OTelTracing、MetricsMiddleware、
RequestLogger、CORS、RateLimiter（基于 IP）、Auth（X-API-Key 或 Bearer JWT）。
*/
package main
