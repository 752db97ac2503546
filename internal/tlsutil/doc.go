// Package tlsutil 为补全网关客户端与 Redis 归档连接提供统一的 TLS 加固配置
// （TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
