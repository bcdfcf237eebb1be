// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metabase 实现在 Metabase 中运行 SQL 查询并下载 CSV 结果的智能体。

# 流程

RunQueryAndDownload 依次执行：打开 Metabase → 登录（页面未显示
登录表单时跳过）→ 新建 SQL 问题 → 选择数据库 → 清空编辑器、
输入 SQL 并以 Ctrl+Enter 运行 → 点击下载并选择 CSV → 等待下载完成，
结果保存为 metabase_query_result_YYYYMMDD_HHMMSS.csv。

# 选择器

所有元素都通过 interaction.Interactor 以 (page, element) 逻辑名查找，
DefaultSelectors 提供内置候选，智能体名称固定为 "metabase"，
学到的选择器保存在该名称下的选择器记忆中。

# 凭据

用户名与密码可直接配置，或通过 METABASE_USERNAME /
METABASE_PASSWORD 环境变量提供，缺失时返回 ErrMissingCredentials。
*/
package metabase
