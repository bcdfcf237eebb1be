// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 uipilot 命令行程序入口。

# 概述

cmd/uipilot 把浏览器会话、选择器记忆、智能交互与两个智能体
（网页搜索、Metabase）装配成可执行程序。程序支持 YAML 配置文件与
.env 加载、结构化日志（zap）、可选的 Prometheus 指标端口以及
OpenTelemetry 追踪。

# 主要能力

  - search：LLM 模拟搜索或真实浏览器 Bing 搜索，结果以 JSON 输出；
    --content 读取单个页面正文
  - metabase：登录、新建原生查询、选择数据库、运行 SQL 并下载 CSV，
    打印最终文件路径
  - memory：list / forget / clear / clean 维护任一智能体的选择器记忆
  - 优雅退出：SIGINT/SIGTERM 取消进行中的浏览器操作
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
