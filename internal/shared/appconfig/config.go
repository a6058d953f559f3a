package appconfig

import (
	"fmt"
	"slices"
	"time"

	"ModelMapper/internal/shared/config"
)

// Load 读取应用配置并补默认值。
func Load(cfgName string) (*Config, error) {
	cfg := &Config{}
	if _, err := config.Load(cfgName, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = ":memory:"
	}
	if c.Mapper.SlowThreshold <= 0 {
		c.Mapper.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	stores := []string{StoreMemory, StoreMySQL, StoreSQLite, StorePostgres, StoreMongoDB}
	if !slices.Contains(stores, c.Store) {
		return fmt.Errorf("unknown store %q, want one of %v", c.Store, stores)
	}
	switch c.Store {
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is empty")
		}
	case StoreMongoDB:
		if c.MongoDB.URI == "" || c.MongoDB.Database == "" {
			return fmt.Errorf("mongodb.uri and mongodb.database are required")
		}
	case StoreMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return fmt.Errorf("mysql.host and mysql.dbname are required")
		}
	}
	return nil
}
