// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 websearch 为智能体提供网页搜索能力。

# 核心接口

Searcher 定义 Search（返回最多 n 条 Result）与 Content（读取页面正文）
两个方法，被屏蔽的 URL 返回 browser.ErrBlockedURL。

# 内置实现

  - LLMSearch：通过 OpenAI Chat Completions（openai-go）模拟搜索结果与
    页面内容，不执行真实检索。模型回复中的 JSON 依次从 ```json 代码块、
    首个 [ {...} ] 片段或整段文本中提取；调用或解析失败时返回一条
    "Search error" 结果而不是错误
  - BrowserSearch：在真实浏览器中打开 Bing 结果页，可将截图保存到
    快照目录，并用 goquery 解析 li.b_algo 条目
*/
package websearch
