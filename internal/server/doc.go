// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 uipilot 命令行进程内的指标 HTTP 服务器。

# 概述

Manager 封装 net/http.Server，提供非阻塞启动与优雅关闭，后台
服务异常退出时记录错误日志。NewMetricsHandler 暴露 /metrics（Prometheus）与 /healthz，
供 cmd/uipilot 在 metrics.enabled 时启动，以便长时间运行的
Metabase 查询或批量搜索期间被抓取指标。

# 核心类型

  - Manager：持有 http.Server 与 net.Listener，
    提供 Start / Shutdown / Addr
  - Config：监听地址、读写超时与优雅关闭超时
*/
package server
