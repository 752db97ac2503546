// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 submind 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 编排器的 submind.discussion / submind.round / submind.persona span
// 以及 HTTP 中间件的请求 span 都通过全局 provider 导出。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
