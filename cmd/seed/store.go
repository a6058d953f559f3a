package main

import (
	"context"
	"database/sql"
	"fmt"

	"ModelMapper/internal/account/infra/schema"
	"ModelMapper/internal/orm/infra/persistence/memory"
	"ModelMapper/internal/orm/infra/persistence/mongodb"
	"ModelMapper/internal/orm/infra/persistence/mysql"
	"ModelMapper/internal/orm/infra/persistence/sqlstore"
	"ModelMapper/internal/orm/port"
	"ModelMapper/internal/shared/appconfig"
	"ModelMapper/internal/shared/infrastructure/db"
	mongoinfra "ModelMapper/internal/shared/infrastructure/mongo"
	"ModelMapper/internal/shared/logs"
)

// openStorage 按配置打开存储，返回的 close 负责释放连接。
func openStorage(ctx context.Context, cfg *appconfig.Config) (port.Storage, func(), error) {
	nop := func() {}
	switch cfg.Store {
	case appconfig.StoreMemory:
		return memory.NewStorage(), nop, nil

	case appconfig.StoreSQLite, appconfig.StorePostgres:
		conn, dialect, err := openSQL(cfg)
		if err != nil {
			return nil, nop, err
		}
		if cfg.Mapper.Migrate {
			if err := schema.Apply(ctx, conn, dialect.Name); err != nil {
				_ = conn.Close()
				return nil, nop, err
			}
		}
		return sqlstore.New(conn, dialect), func() { _ = conn.Close() }, nil

	case appconfig.StoreMySQL:
		gormDB, err := db.OpenMySQL(cfg.MySQL, cfg.Mapper.SlowThreshold)
		if err != nil {
			return nil, nop, err
		}
		closeFn := func() {
			if sqlDB, err := gormDB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if cfg.Mapper.Migrate {
			if err := schema.ApplyGorm(ctx, gormDB); err != nil {
				closeFn()
				return nil, nop, err
			}
		}
		return mysql.New(gormDB), closeFn, nil

	case appconfig.StoreMongoDB:
		client, database, err := mongoinfra.Open(ctx, cfg.MongoDB, logs.L())
		if err != nil {
			return nil, nop, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		if cfg.Mapper.Migrate {
			if err := schema.ApplyMongo(ctx, database); err != nil {
				closeFn()
				return nil, nop, err
			}
		}
		return mongodb.New(database), closeFn, nil
	}
	return nil, nop, fmt.Errorf("unknown store %q", cfg.Store)
}

func openSQL(cfg *appconfig.Config) (*sql.DB, sqlstore.Dialect, error) {
	if cfg.Store == appconfig.StorePostgres {
		conn, err := db.OpenPostgres(cfg.Postgres)
		return conn, sqlstore.Postgres, err
	}
	conn, err := db.OpenSQLite(cfg.SQLite)
	return conn, sqlstore.SQLite, err
}
