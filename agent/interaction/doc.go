// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 interaction 把选择器记忆与浏览器操作连接起来。

Interactor 以 (page, element) 逻辑名描述要操作的元素：先通过
memory.Resolver 取得候选选择器（记住的选择器优先，其后是默认表），
依次等待元素可见并尝试点击或填充，每次尝试的结果都写回记忆，
使下次运行优先使用上次成功的选择器。所有候选都失败时返回
ErrNoWorkingSelector。

每次交互记录一条 Prometheus 指标与一个 OpenTelemetry span。
Visible 只探测元素是否存在，不更新记忆，用于登录表单等可选元素。
*/
package interaction
