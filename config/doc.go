// Package config 提供 uipilot 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 环境变量使用 UIPILOT_ 前缀，也可以从 .env 文件注入。
package config
