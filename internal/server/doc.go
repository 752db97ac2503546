/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

# 概述

Manager 包装 http.Server。所有请求的 context 派生自一个基础 context，
Shutdown 开始时取消该 context，使仍在进行的流式讨论（SSE、WebSocket）
观察到取消并以 discussion-cancelled 结束，随后再等待连接排空。

# 核心类型

  - Manager：服务器管理器，提供 Start、Shutdown、WaitForShutdown、
    Errors、ListenAddr。
  - Config：监听地址、读写超时、空闲超时与优雅关闭超时，
    可由 FromServerConfig 从 config.ServerConfig 构造。
*/
package server
