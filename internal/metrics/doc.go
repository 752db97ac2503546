/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、讨论、
persona 生成与归档存储四个维度。

# 核心类型

  - Collector：指标收集器。实现 orchestrator.Recorder（讨论开始/结束、
    单次生成）与 store.OpRecorder（存储操作），并由 HTTP 中间件调用
    RecordHTTPRequest。

指标按 namespace 隔离；NewCollector 注册到默认 Registry，
NewCollectorWithRegistry 用于测试或独立 Registry。
*/
package metrics
