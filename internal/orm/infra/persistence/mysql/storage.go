package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ModelMapper/internal/orm/errs"
	"ModelMapper/internal/orm/port"
)

const (
	OpFind       = "storage.mysql.Find"
	OpSelect     = "storage.mysql.Select"
	OpCount      = "storage.mysql.Count"
	OpInsert     = "storage.mysql.Insert"
	OpUpdate     = "storage.mysql.Update"
	OpDelete     = "storage.mysql.Delete"
	OpInsertLink = "storage.mysql.InsertLink"
	OpMaxUID     = "storage.mysql.MaxUID"
)

// Storage 用 gorm 的 Table + map 接口读写任意表，不需要为每张表定义 struct。
type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) table(ctx context.Context, name string, where port.Where) *gorm.DB {
	tx := s.db.WithContext(ctx).Table(name)
	if len(where) > 0 {
		tx = tx.Where(map[string]any(where))
	}
	return tx
}

func (s *Storage) Find(ctx context.Context, table string, uid uint64, where port.Where) (port.Row, error) {
	row := map[string]any{}
	err := s.table(ctx, table, where).Where(clause.Eq{Column: clause.Column{Name: port.UIDColumn}, Value: uid}).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, port.ErrNoRow
		}
		//  纯技术错误（连接超时等），保持原样包装返回给上级
		return nil, errs.Wrap(OpFind, errs.KindInfra, err, map[string]any{"table": table, "uid": uid})
	}
	return fromDriver(row), nil
}

func (s *Storage) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	var rows []map[string]any
	tx := s.table(ctx, q.Table, q.Where)
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}})
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(OpSelect, errs.KindInfra, err, map[string]any{"table": q.Table, "order_by": q.OrderBy})
	}
	out := make([]port.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromDriver(r))
	}
	return out, nil
}

func (s *Storage) Count(ctx context.Context, q port.Query) (int, error) {
	var n int64
	if err := s.table(ctx, q.Table, q.Where).Count(&n).Error; err != nil {
		return 0, errs.Wrap(OpCount, errs.KindInfra, err, map[string]any{"table": q.Table})
	}
	return int(n), nil
}

// Insert 在同一个事务连接里取 LAST_INSERT_ID，map 插入时 gorm 不回填主键。
func (s *Storage) Insert(ctx context.Context, table string, row port.Row) (uint64, error) {
	meta := map[string]any{"table": table}
	values := map[string]any(row.Clone())
	if values == nil {
		values = map[string]any{}
	}
	var uid uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Create(values).Error; err != nil {
			return err
		}
		if v, ok := row[port.UIDColumn]; ok {
			if id, ok := toUint(v); ok && id > 0 {
				uid = id
				return nil
			}
		}
		return tx.Raw("SELECT LAST_INSERT_ID()").Scan(&uid).Error
	})
	if err != nil {
		return 0, errs.Wrap(OpInsert, errs.KindInfra, err, meta)
	}
	return uid, nil
}

// Update 的 RowsAffected 在 MySQL 里是“改动的行数”，值没变时为 0，所以另查一次是否存在。
func (s *Storage) Update(ctx context.Context, table string, uid uint64, row port.Row) error {
	meta := map[string]any{"table": table, "uid": uid}
	values := map[string]any(row.Clone())
	delete(values, port.UIDColumn)
	byUID := clause.Eq{Column: clause.Column{Name: port.UIDColumn}, Value: uid}
	if len(values) > 0 {
		res := s.db.WithContext(ctx).Table(table).Where(byUID).Updates(values)
		if res.Error != nil {
			return errs.Wrap(OpUpdate, errs.KindInfra, res.Error, meta)
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}
	var n int64
	if err := s.db.WithContext(ctx).Table(table).Where(byUID).Count(&n).Error; err != nil {
		return errs.Wrap(OpUpdate, errs.KindInfra, err, meta)
	}
	if n == 0 {
		return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, meta)
	}
	return nil
}

// Delete 要求至少一个条件，gorm 会拒绝没有 WHERE 的删除。
func (s *Storage) Delete(ctx context.Context, table string, where port.Where) (int64, error) {
	res := s.table(ctx, table, where).Delete(map[string]any{})
	if res.Error != nil {
		return 0, errs.Wrap(OpDelete, errs.KindInfra, res.Error, map[string]any{"table": table})
	}
	return res.RowsAffected, nil
}

func (s *Storage) InsertLink(ctx context.Context, table string, row port.Row) error {
	if err := s.db.WithContext(ctx).Table(table).Create(map[string]any(row.Clone())).Error; err != nil {
		return errs.Wrap(OpInsertLink, errs.KindInfra, err, map[string]any{"table": table})
	}
	return nil
}

func (s *Storage) MaxUID(ctx context.Context, table string) (uint64, error) {
	var n uint64
	err := s.db.WithContext(ctx).Table(table).Select("COALESCE(MAX(" + port.UIDColumn + "), 0)").Scan(&n).Error
	if err != nil {
		return 0, errs.Wrap(OpMaxUID, errs.KindInfra, err, map[string]any{"table": table})
	}
	return n, nil
}
