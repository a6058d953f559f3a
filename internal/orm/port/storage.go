package port

import (
	"context"
	"errors"
)

// ErrNoRow 表示按 uid 取行时没有命中。映射层把它转换成 entity.ErrNotFound。
var ErrNoRow = errors.New("no row")

// UIDColumn 是所有实体表的主键列。
const UIDColumn = "uid"

// Row 是一行存储数据：列名 -> 标量值。
type Row map[string]any

// Where 是等值条件，多个键之间为 AND。
type Where map[string]any

// Query 描述一次按等值条件的查询。
type Query struct {
	Table   string
	Where   Where
	OrderBy string // 单列升序，空表示不排序
}

// Storage 是映射层依赖的最小存储接口（关系库、文档库、内存实现都要满足）。
//
// 约定：
// - Insert 的 row 若带 uid 则按该 uid 写入，否则由存储分配并返回
// - InsertLink 用于没有 uid 列的关联表（mm 表）
// - MaxUID 在空表上返回 0
type Storage interface {
	Find(ctx context.Context, table string, uid uint64, where Where) (Row, error)
	Select(ctx context.Context, q Query) ([]Row, error)
	Count(ctx context.Context, q Query) (int, error)
	Insert(ctx context.Context, table string, row Row) (uint64, error)
	Update(ctx context.Context, table string, uid uint64, row Row) error
	Delete(ctx context.Context, table string, where Where) (int64, error)
	InsertLink(ctx context.Context, table string, row Row) error
	MaxUID(ctx context.Context, table string) (uint64, error)
}

// Clone 复制一行，避免调用方改动存储内部数据。
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Matches 判断 row 是否满足全部等值条件。存储实现之间对数值类型做宽松比较。
func (w Where) Matches(row Row) bool {
	for k, want := range w {
		if !looseEqual(row[k], want) {
			return false
		}
	}
	return true
}
