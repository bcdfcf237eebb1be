// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 browser 为 UI 智能体提供浏览器自动化能力。

# 概述

browser 使智能体能够像人类一样操作网页：导航、点击、输入、
按键、滚动、拖拽、截图、提取内容、管理标签页与等待下载。
所有操作都以 BrowserCommand 描述，由 Browser.Execute 执行，
便于记录历史、统计指标与在测试中替换实现。

# 核心类型

  - Browser：浏览器自动化的顶层抽象，定义 Execute / GetState /
    Close 三个核心方法
  - Session：封装一次浏览器会话，记录命令历史、按配置限速，
    并提供 Navigate / Click / Fill / Keypress / WaitDownload 等便捷方法；
    WaitFor 与 AttemptClick 返回 bool，供选择器回退逻辑使用
  - ChromeDPDriver / ChromeDPBrowser：基于 chromedp 的实现，
    支持多标签页、下载目录、代理、自定义 UserAgent 与错误时自动截图
  - Blocklist：域名黑名单，导航前检查并通过 Fetch 域拦截子资源请求

# 选择器语法

ParseLocator 支持以下写法：

  - role=button[name='Run query']：按 ARIA 角色与可访问名称匹配
  - data-testid=editor >> textarea：按 data-testid 定位后取后代
  - xpath=//div、//div、(//div)[1]：XPath
  - text=Save：按文本匹配，带引号时精确匹配
  - 其他字符串按 CSS 处理，>> 视为后代组合符

# 按键

Keypress 接受 computer-use 风格的按键名（ctrl、cmd、enter、
arrowdown、esc 等），由 MapKeys 转换为 chromedp 按键与修饰键。
*/
package browser
