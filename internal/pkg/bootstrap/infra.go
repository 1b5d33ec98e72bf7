// internal/pkg/bootstrap/infra.go
package bootstrap

import (
	"fmt"

	gosqlmysql "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealwire/internal/pkg/logger"
	redispkg "dealwire/internal/pkg/redis"
)

// MustOpenMySQL 按当前配置打开 gorm 连接，失败直接退出进程。
func MustOpenMySQL() *gorm.DB {
	cfg := GetCurrentConfig().Infra.MySQL

	dsnCfg := gosqlmysql.NewConfig()
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.DBName = cfg.Database
	dsnCfg.ParseTime = true

	db, err := gorm.Open(gormmysql.Open(dsnCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect to mysql")
	}
	return db
}

// MustOpenRedis 按当前配置连接 redis，失败直接退出进程。
func MustOpenRedis() *redispkg.Client {
	cfg := GetCurrentConfig().Infra.Redis
	client, err := redispkg.New(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect to redis")
	}
	return client
}
