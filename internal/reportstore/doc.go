// Package reportstore 把指标端点收到的报告与即时告警写入嵌入式 SQLite，
// 表结构由 goose 迁移维护。
package reportstore
