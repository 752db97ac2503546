// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 精确计数与 CJK 估算器，用于为讨论消息和摘要记录 Token 用量。
package tokenizer
