// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 memory 提供面向浏览器自动化智能体的选择器记忆。

# 概述

智能体在页面上定位元素时，会把"页面 + 元素"对应的 CSS/定位器字符串
连同成功率一起记录下来。下次执行相同任务时优先尝试记住的选择器，
失败后再退回到智能体自带的默认选择器表。

# 数据模型

每个智能体拥有独立的命名空间，文件后端布局为：

	<cache_dir>/<agent>/selector_memory.json

文档结构为 page -> element -> [Entry]，字段包括 selector、success_rate、
last_updated、last_accessed（Unix 秒，浮点数）以及 uses。

# 成功率

成功率采用 alpha = 0.3 的指数移动平均：

	new = 0.3 * outcome + 0.7 * old

新条目的初始成功率为 1 或 0。[Store.SelectorsForPage] 只返回成功率
严格大于 [ConfidenceFloor] 的条目。旧文档中没有 success_rate 的条目
按 0 参与筛选，下一次更新时从 0.5 开始计算移动平均。

# 持久化

  - [FileBackend]：本地 JSON 文件，临时文件 + fsync + 重命名原子写入
  - [RedisBackend]：单个 Redis 键保存整份 JSON 文档
  - [SQLBackend]：基于 gorm 的关系表，每个条目一行
  - [MongoBackend]：每个智能体一条 MongoDB 文档，data 字段保存 JSON 文本

每次修改都会立即写回后端。文件缺失时从空记忆开始；文件损坏时记录
警告并从空记忆开始，下次写入会覆盖损坏的文件。

# 回退链

[Resolver] 把 [Store] 与静态 [DefaultTable] 串联起来，按
"记住的选择器 -> 默认选择器" 的顺序给出候选列表。
*/
package memory
