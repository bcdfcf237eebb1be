// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的 SQLite 连接池管理与事务重试。

# 概述

选择器记忆的 SQL 后端通过 OpenSQLite 打开数据库文件。SQLite 只允许
一个写者，PoolManager 因此默认只保持一个连接，并在 DSN 上设置
busy_timeout，写锁冲突时由 WithTransactionRetry 指数退避重试。

# 核心类型

  - PoolManager：持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Close() 与事务方法
  - PoolConfig：最大连接数、连接生命周期、busy_timeout 与重试次数
  - TransactionFunc：事务回调函数类型
*/
package database
