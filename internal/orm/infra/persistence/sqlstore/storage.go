package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/spf13/cast"

	"ModelMapper/internal/orm/errs"
	"ModelMapper/internal/orm/port"
)

const (
	OpFind       = "storage.sql.Find"
	OpSelect     = "storage.sql.Select"
	OpCount      = "storage.sql.Count"
	OpInsert     = "storage.sql.Insert"
	OpUpdate     = "storage.sql.Update"
	OpDelete     = "storage.sql.Delete"
	OpInsertLink = "storage.sql.InsertLink"
	OpMaxUID     = "storage.sql.MaxUID"
)

// Storage 基于 database/sql 的实现，sqlite（modernc）和 postgres（pgx stdlib）共用。
// 表结构由迁移负责，这里只拼等值条件的 CRUD。
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, d Dialect) *Storage {
	return &Storage{db: db, dialect: d}
}

func (s *Storage) DB() *sql.DB { return s.db }

func (s *Storage) newBuilder() *builder { return &builder{d: s.dialect} }

func (s *Storage) Find(ctx context.Context, table string, uid uint64, where port.Where) (port.Row, error) {
	b := s.newBuilder().raw("SELECT * FROM ").ident(table).raw(" WHERE ").ident(port.UIDColumn).raw(" = ").arg(uid)
	s.where(b, where, true)
	b.raw(" LIMIT 1")
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, errs.Wrap(OpFind, errs.KindInfra, err, map[string]any{"table": table, "uid": uid})
	}
	if len(rows) == 0 {
		return nil, port.ErrNoRow
	}
	return rows[0], nil
}

func (s *Storage) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	b := s.newBuilder().raw("SELECT * FROM ").ident(q.Table)
	s.where(b, q.Where, false)
	if q.OrderBy != "" {
		b.raw(" ORDER BY ").ident(q.OrderBy)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, errs.Wrap(OpSelect, errs.KindInfra, err, map[string]any{"table": q.Table, "order_by": q.OrderBy})
	}
	return rows, nil
}

func (s *Storage) Count(ctx context.Context, q port.Query) (int, error) {
	b := s.newBuilder().raw("SELECT COUNT(*) FROM ").ident(q.Table)
	s.where(b, q.Where, false)
	if b.err != nil {
		return 0, errs.Wrap(OpCount, errs.KindInfra, b.err, map[string]any{"table": q.Table})
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, b.String(), b.args...).Scan(&n); err != nil {
		return 0, errs.Wrap(OpCount, errs.KindInfra, err, map[string]any{"table": q.Table})
	}
	return int(n), nil
}

// Insert 用 RETURNING 拿自增 uid；row 带 uid 时按该 uid 写入。
func (s *Storage) Insert(ctx context.Context, table string, row port.Row) (uint64, error) {
	meta := map[string]any{"table": table}
	b := s.newBuilder().raw("INSERT INTO ").ident(table)
	s.values(b, row)
	b.raw(" RETURNING ").ident(port.UIDColumn)
	if b.err != nil {
		return 0, errs.Wrap(OpInsert, errs.KindInfra, b.err, meta)
	}
	var uid int64
	if err := s.db.QueryRowContext(ctx, b.String(), b.args...).Scan(&uid); err != nil {
		return 0, errs.Wrap(OpInsert, errs.KindInfra, err, meta)
	}
	if _, explicit := row[port.UIDColumn]; explicit {
		q, _ := quote(table)
		if stmt := s.dialect.syncSeq(q); stmt != "" {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return 0, errs.Wrap(OpInsert, errs.KindInfra, err, meta)
			}
		}
	}
	return uint64(uid), nil
}

func (s *Storage) Update(ctx context.Context, table string, uid uint64, row port.Row) error {
	meta := map[string]any{"table": table, "uid": uid}
	cols := columns(row)
	cols = slices.DeleteFunc(cols, func(c string) bool { return c == port.UIDColumn })
	if len(cols) == 0 {
		ok, err := s.exists(ctx, table, uid)
		if err != nil {
			return errs.Wrap(OpUpdate, errs.KindInfra, err, meta)
		}
		if !ok {
			return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, meta)
		}
		return nil
	}
	b := s.newBuilder().raw("UPDATE ").ident(table).raw(" SET ")
	for i, c := range cols {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c).raw(" = ").arg(row[c])
	}
	b.raw(" WHERE ").ident(port.UIDColumn).raw(" = ").arg(uid)
	n, err := s.exec(ctx, b)
	if err != nil {
		return errs.Wrap(OpUpdate, errs.KindInfra, err, meta)
	}
	if n == 0 {
		return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, meta)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, table string, where port.Where) (int64, error) {
	b := s.newBuilder().raw("DELETE FROM ").ident(table)
	s.where(b, where, false)
	n, err := s.exec(ctx, b)
	if err != nil {
		return 0, errs.Wrap(OpDelete, errs.KindInfra, err, map[string]any{"table": table})
	}
	return n, nil
}

func (s *Storage) InsertLink(ctx context.Context, table string, row port.Row) error {
	b := s.newBuilder().raw("INSERT INTO ").ident(table)
	s.values(b, row)
	if _, err := s.exec(ctx, b); err != nil {
		return errs.Wrap(OpInsertLink, errs.KindInfra, err, map[string]any{"table": table})
	}
	return nil
}

func (s *Storage) MaxUID(ctx context.Context, table string) (uint64, error) {
	b := s.newBuilder().raw("SELECT COALESCE(MAX(").ident(port.UIDColumn).raw("), 0) FROM ").ident(table)
	if b.err != nil {
		return 0, errs.Wrap(OpMaxUID, errs.KindInfra, b.err, map[string]any{"table": table})
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, b.String()).Scan(&n); err != nil {
		return 0, errs.Wrap(OpMaxUID, errs.KindInfra, err, map[string]any{"table": table})
	}
	return uint64(n), nil
}

func (s *Storage) exists(ctx context.Context, table string, uid uint64) (bool, error) {
	_, err := s.Find(ctx, table, uid, nil)
	if errors.Is(err, port.ErrNoRow) {
		return false, nil
	}
	return err == nil, err
}

// where 追加等值条件；列名排序，生成的 SQL 稳定可读。nil 值写成 IS NULL。
func (s *Storage) where(b *builder, where port.Where, and bool) {
	for _, c := range columns(where) {
		if and {
			b.raw(" AND ")
		} else {
			b.raw(" WHERE ")
			and = true
		}
		b.ident(c)
		if where[c] == nil {
			b.raw(" IS NULL")
			continue
		}
		b.raw(" = ").arg(where[c])
	}
}

func (s *Storage) values(b *builder, row port.Row) {
	cols := columns(row)
	if len(cols) == 0 {
		b.raw(" DEFAULT VALUES")
		return
	}
	b.raw(" (")
	for i, c := range cols {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c)
	}
	b.raw(") VALUES (")
	for i, c := range cols {
		if i > 0 {
			b.raw(", ")
		}
		b.arg(row[c])
	}
	b.raw(")")
}

func (s *Storage) exec(ctx context.Context, b *builder) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	res, err := s.db.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Storage) query(ctx context.Context, b *builder) ([]port.Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	rows, err := s.db.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []port.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(port.Row, len(cols))
		for i, c := range cols {
			row[c] = fromDriver(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func columns[M ~map[string]any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// normalize 把参数收敛到驱动都认的类型：布尔存 0/1，无符号转 int64。
func normalize(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case uint, uint8, uint16, uint32, uint64, int, int8, int16, int32:
		return cast.ToInt64(x)
	default:
		return v
	}
}

func fromDriver(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	default:
		return v
	}
}
