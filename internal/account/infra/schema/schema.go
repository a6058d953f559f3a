package schema

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"

	"ModelMapper/internal/account/domain"
)

//go:embed ddl/*.sql
var ddl embed.FS

// Statements 返回某个方言的建表语句，按文件里的顺序。
func Statements(dialect string) ([]string, error) {
	raw, err := ddl.ReadFile("ddl/" + dialect + ".sql")
	if err != nil {
		return nil, fmt.Errorf("no ddl for dialect %q: %w", dialect, err)
	}
	var out []string
	for _, stmt := range strings.Split(string(raw), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}

// Apply 在 sqlite/postgres 上建表，语句都带 IF NOT EXISTS，可重复执行。
func Apply(ctx context.Context, db *sql.DB, dialect string) error {
	stmts, err := Statements(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s ddl: %w", dialect, err)
		}
	}
	return nil
}

func ApplyGorm(ctx context.Context, db *gorm.DB) error {
	stmts, err := Statements("mysql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply mysql ddl: %w", err)
		}
	}
	return nil
}

// ApplyMongo 给账号集合建 uid 唯一索引，用户名上建普通索引。
func ApplyMongo(ctx context.Context, db *mongo.Database) error {
	for _, table := range []string{domain.TableUsers, domain.TableGroups} {
		_, err := db.Collection(table).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create uid index on %s: %w", table, err)
		}
	}
	_, err := db.Collection(domain.TableUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: domain.UserName.Def().Column, Value: 1}},
	})
	return err
}
