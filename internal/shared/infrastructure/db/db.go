package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"ModelMapper/internal/shared/appconfig"
	"ModelMapper/internal/shared/logs"
)

// 驱动名：modernc 注册为 "sqlite"，pgx 的 database/sql 适配注册为 "pgx"。
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// OpenMySQL 打开 gorm 连接，慢查询阈值与映射层一致。
func OpenMySQL(cfg appconfig.MySQLConfig, slow time.Duration) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logs.NewGormLogger(logger.Warn, slow),
	}

	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	// username:password@protocol(address)/dbname?charset=utf8&parseTime=True&loc=Local
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		charset,
	)
	db, err := gorm.Open(mysql.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)

	logs.Info("open mysql success",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.DBName),
		zap.String("user", cfg.User),
	)
	return db, nil
}

// OpenSQLite 打开 sqlite。内存库只能有一个连接，否则每个连接各是一个空库。
func OpenSQLite(cfg appconfig.SQLiteConfig) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, cfg.Path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logs.Info("open sqlite success", zap.String("path", cfg.Path))
	return db, nil
}

func OpenPostgres(cfg appconfig.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConn > 0 {
		db.SetMaxOpenConns(cfg.MaxConn)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logs.Info("open postgres success")
	return db, nil
}
