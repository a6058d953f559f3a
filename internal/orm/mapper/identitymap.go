package mapper

import (
	"iter"
	"maps"
	"slices"

	"ModelMapper/internal/orm/entity"
)

// IdentityMap 保证同一个 DataMapper 内每个 uid 至多一个活着的实例。
// 条目只会被 Purge 清掉，不做淘汰；不做并发保护。
type IdentityMap struct {
	entries map[uint64]*entity.Model
}

func NewIdentityMap() *IdentityMap {
	return &IdentityMap{entries: make(map[uint64]*entity.Model)}
}

func (im *IdentityMap) Get(uid uint64) (*entity.Model, bool) {
	m, ok := im.entries[uid]
	return m, ok
}

// Register 登记 uid -> m；已有同一实例时幂等，已有别的实例时返回 ErrIdentityConflict。
func (im *IdentityMap) Register(uid uint64, m *entity.Model) error {
	if uid == 0 {
		return ErrInvalidID.WithData("uid", uid)
	}
	if cur, ok := im.entries[uid]; ok {
		if cur == m {
			return nil
		}
		return ErrIdentityConflict.WithData("uid", uid).WithData("type", string(m.Type()))
	}
	im.entries[uid] = m
	return nil
}

func (im *IdentityMap) Purge() {
	clear(im.entries)
}

func (im *IdentityMap) Len() int { return len(im.entries) }

// MaxUID 返回已登记的最大 uid，空表返回 0。
func (im *IdentityMap) MaxUID() uint64 {
	var out uint64
	for uid := range im.entries {
		out = max(out, uid)
	}
	return out
}

// All 按 uid 升序迭代。
func (im *IdentityMap) All() iter.Seq2[uint64, *entity.Model] {
	return func(yield func(uint64, *entity.Model) bool) {
		for _, uid := range slices.Sorted(maps.Keys(im.entries)) {
			if !yield(uid, im.entries[uid]) {
				return
			}
		}
	}
}
