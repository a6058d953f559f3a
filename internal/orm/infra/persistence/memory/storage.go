package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/errs"
	"ModelMapper/internal/orm/port"
)

const (
	OpInsert = "storage.memory.Insert"
	OpUpdate = "storage.memory.Update"
)

type table struct {
	rows    []port.Row
	autoInc uint64
}

// Storage 是内存版存储：每张表一组行，uid 自增。读写都复制行，调用方拿到的行可以随便改。
type Storage struct {
	mu     sync.Mutex
	tables map[string]*table
}

func NewStorage() *Storage {
	return &Storage{tables: make(map[string]*table)}
}

func (s *Storage) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

func (s *Storage) Find(_ context.Context, tableName string, uid uint64, where port.Where) (port.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.table(tableName).rows {
		if rowUID(row) == uid && where.Matches(row) {
			return row.Clone(), nil
		}
	}
	return nil, port.ErrNoRow
}

func (s *Storage) Select(_ context.Context, q port.Query) ([]port.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []port.Row
	for _, row := range s.table(q.Table).rows {
		if q.Where.Matches(row) {
			out = append(out, row.Clone())
		}
	}
	if q.OrderBy != "" {
		slices.SortStableFunc(out, func(a, b port.Row) int {
			switch {
			case port.Less(a[q.OrderBy], b[q.OrderBy]):
				return -1
			case port.Less(b[q.OrderBy], a[q.OrderBy]):
				return 1
			default:
				return 0
			}
		})
	}
	return out, nil
}

func (s *Storage) Count(ctx context.Context, q port.Query) (int, error) {
	rows, err := s.Select(ctx, port.Query{Table: q.Table, Where: q.Where})
	return len(rows), err
}

func (s *Storage) Insert(_ context.Context, tableName string, row port.Row) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(tableName)
	row = row.Clone()
	if row == nil {
		row = port.Row{}
	}
	uid := rowUID(row)
	if uid == 0 {
		t.autoInc++
		uid = t.autoInc
	} else {
		for _, cur := range t.rows {
			if rowUID(cur) == uid {
				return 0, errs.Wrap(OpInsert, errs.KindInfra, fmt.Errorf("duplicate uid %d", uid),
					map[string]any{"table": tableName, "uid": uid})
			}
		}
		t.autoInc = max(t.autoInc, uid)
	}
	row[port.UIDColumn] = int64(uid)
	t.rows = append(t.rows, row)
	return uid, nil
}

func (s *Storage) Update(_ context.Context, tableName string, uid uint64, row port.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.table(tableName).rows {
		if rowUID(cur) != uid {
			continue
		}
		for k, v := range row {
			if k == port.UIDColumn {
				continue
			}
			cur[k] = v
		}
		return nil
	}
	return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, map[string]any{"table": tableName, "uid": uid})
}

func (s *Storage) Delete(_ context.Context, tableName string, where port.Where) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(tableName)
	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(row port.Row) bool { return where.Matches(row) })
	return int64(before - len(t.rows)), nil
}

func (s *Storage) InsertLink(_ context.Context, tableName string, row port.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(tableName)
	t.rows = append(t.rows, row.Clone())
	return nil
}

func (s *Storage) MaxUID(_ context.Context, tableName string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(tableName)
	out := t.autoInc
	for _, row := range t.rows {
		out = max(out, rowUID(row))
	}
	return out, nil
}

// Rows 返回整张表的拷贝，测试里用来直接检查关联表。
func (s *Storage) Rows(tableName string) []port.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.table(tableName).rows
	out := make([]port.Row, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}

func rowUID(row port.Row) uint64 {
	uid, _ := entity.ToUID(row[port.UIDColumn])
	return uid
}
