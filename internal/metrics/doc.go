// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖选择器记忆、
元素交互、浏览器动作与 LLM 调用四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，同时实现 memory.Observer，可直接挂到
    选择器记忆上。

# 主要能力

  - 选择器记忆：查询命中/未命中、更新成功/失败，按 agent 分组。
  - 交互指标：交互次数、耗时与候选选择器尝试次数。
  - 浏览器指标：动作次数与耗时、被拦截的请求、下载结果。
  - LLM 指标：请求总数、耗时与 Token 用量。
*/
package metrics
