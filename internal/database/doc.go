/*
包 database 负责打开 GORM 数据库连接并管理底层连接池。

# 概述

Open 根据 config.DatabaseConfig 选择方言（postgres、mysql、sqlite），
建立 GORM 连接；PoolManager 在其上设置连接池参数、提供探活、
事务执行与后台健康检查。讨论归档的 SQL 后端（store.SQLStore）
通过本包获取数据库连接。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、WithTransaction()、Close()。
  - PoolConfig：最大空闲连接、最大打开连接、连接生命周期与健康检查间隔。
*/
package database
