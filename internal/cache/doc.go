// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的键值缓存，用于缓存网页搜索结果与页面内容。

# 概述

Manager 封装 go-redis 客户端，所有键写入为 <KeyPrefix>:<key>，
未指定 TTL 时使用 DefaultTTL。websearch.CachedSearch 通过
GetJSON/SetJSON 复用重复查询的结果，减少 LLM 调用与浏览器导航。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/Set/Close
    以及 GetJSON/SetJSON 便捷序列化方法
  - Config：地址、密码、数据库编号、键前缀、默认 TTL 与连接池大小

# 错误语义

未命中返回 ErrCacheMiss（IsCacheMiss 判断），关闭后的调用返回 ErrClosed。
*/
package cache
