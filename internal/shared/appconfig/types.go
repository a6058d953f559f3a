package appconfig

import (
	"time"

	"ModelMapper/internal/shared/config"
)

// 存储后端
const (
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
)

type Config struct {
	Store    string           `yaml:"store" mapstructure:"store"`
	MySQL    MySQLConfig      `yaml:"mysql" mapstructure:"mysql"`
	SQLite   SQLiteConfig     `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig   `yaml:"postgres" mapstructure:"postgres"`
	MongoDB  MongoDBConfig    `yaml:"mongodb" mapstructure:"mongodb"`
	Log      config.LogConfig `yaml:"log" mapstructure:"log"`
	Mapper   MapperConfig     `yaml:"mapper" mapstructure:"mapper"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // ":memory:" 或文件路径
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	MaxConn int    `yaml:"max_conn" mapstructure:"max_conn"`
}

type MongoDBConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

type MapperConfig struct {
	SlowThreshold time.Duration `yaml:"slow_threshold" mapstructure:"slow_threshold"`
	Migrate       bool          `yaml:"migrate" mapstructure:"migrate"` // 启动时执行建表迁移
}
