package testingframework

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/orm/port"
)

// Framework 是映射层测试模式的协作者：发放存储里没用过的 uid，记下夹具写过的行，
// 用例结束时 CleanUp 把它们删掉。
type Framework struct {
	storage port.Storage

	mu       sync.Mutex
	reserved map[string]uint64
	created  []createdRow
	index    map[createdRow]struct{}
}

type createdRow struct {
	table string
	uid   uint64
}

var _ mapper.Collaborator = (*Framework)(nil)

func New(storage port.Storage) *Framework {
	return &Framework{
		storage:  storage,
		reserved: make(map[string]uint64),
		index:    make(map[createdRow]struct{}),
	}
}

// Activate 把自己装到 registry 上，返回的函数用于 t.Cleanup：删掉夹具行并清空映射上下文。
func (f *Framework) Activate(reg *mapper.Registry) func() error {
	reg.ActivateTestingMode(f)
	return func() error {
		defer reg.Purge()
		return f.CleanUp(context.Background())
	}
}

// ReserveUID 返回比存储和已发放值都大的 uid。
func (f *Framework) ReserveUID(ctx context.Context, table string) (uint64, error) {
	top, err := f.storage.MaxUID(ctx, table)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := max(top, f.reserved[table]) + 1
	f.reserved[table] = next
	return next, nil
}

// Track 登记一行，同一行只记一次。
func (f *Framework) Track(table string, uid uint64) {
	if uid == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := createdRow{table: table, uid: uid}
	if _, ok := f.index[row]; ok {
		return
	}
	f.index[row] = struct{}{}
	f.created = append(f.created, row)
}

// Tracked 返回某张表登记过的 uid，按登记顺序。
func (f *Framework) Tracked(table string) []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for _, r := range f.created {
		if r.table == table {
			out = append(out, r.uid)
		}
	}
	return out
}

// CleanUp 按登记的逆序删除夹具行（子记录一般后创建，先删）。没写进存储的 uid 删 0 行，不算错误。
func (f *Framework) CleanUp(ctx context.Context) error {
	f.mu.Lock()
	rows := slices.Clone(f.created)
	f.created = nil
	clear(f.index)
	clear(f.reserved)
	f.mu.Unlock()

	var errs error
	for _, r := range slices.Backward(rows) {
		_, err := f.storage.Delete(ctx, r.table, port.Where{port.UIDColumn: int64(r.uid)})
		errs = multierr.Append(errs, err)
	}
	return errs
}
