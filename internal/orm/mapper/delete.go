package mapper

import (
	"context"
	"errors"
	"time"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"

	"go.uber.org/zap"
)

// Delete 删除模型：组合子记录一并删除，mm 关联行移除；
// 有软删除列时只置位，否则删行。模型变成 Dead，仍留在 identity map 里，
// 之后同一 uid 的 Find 拿到的还是这个 Dead 实例。
func (dm *DataMapper) Delete(ctx context.Context, m *entity.Model) error {
	return dm.delete(ctx, m, make(map[*entity.Model]struct{}))
}

func (dm *DataMapper) delete(ctx context.Context, m *entity.Model, seen map[*entity.Model]struct{}) error {
	if m.IsDead() {
		return ErrWriteDenied.WithReason(entity.ReasonDead).WithDataMap(map[string]any{"type": string(m.Type()), "uid": m.UID()})
	}
	if m.Schema().ReadOnly {
		return ErrWriteDenied.WithReason(entity.ReasonReadOnly).WithData("type", string(m.Type()))
	}
	if _, ok := seen[m]; ok {
		return nil
	}
	seen[m] = struct{}{}
	if m.Schema() != dm.schema {
		other, err := dm.reg.Get(m.Type())
		if err != nil {
			return err
		}
		return other.delete(ctx, m, seen)
	}

	// 还没落库：只处理内存里的子记录。
	if !m.HasUID() || !m.IsStored() {
		if err := dm.deleteChildren(ctx, m, seen, false); err != nil {
			return err
		}
		m.MarkDead()
		return nil
	}
	if m.IsGhost() {
		if err := m.EnsureLoaded(ctx); err != nil {
			if errors.Is(err, ErrNotFound) {
				m.MarkDead()
				return nil
			}
			return err
		}
	}
	if err := dm.deleteChildren(ctx, m, seen, true); err != nil {
		return err
	}
	for _, d := range dm.schema.Relations() {
		if d.Kind != entity.KindMM {
			continue
		}
		local, _, _ := d.LinkColumns()
		if err := dm.deleteLinks(ctx, d, port.Where{local: int64(m.UID())}); err != nil {
			return err
		}
	}

	start := time.Now()
	var err error
	if col := dm.schema.DeletedColumn; col != "" {
		err = dm.reg.storage.Update(ctx, dm.schema.Table, m.UID(), port.Row{col: int64(1)})
	} else {
		_, err = dm.reg.storage.Delete(ctx, dm.schema.Table, port.Where{port.UIDColumn: int64(m.UID())})
	}
	dm.observe(ctx, "delete", start, zap.Uint64("uid", m.UID()))
	if err != nil {
		dm.reportSys(ctx, "mapper.delete", err)
		return err
	}
	m.MarkDead()
	dm.reg.metrics.delete(dm.typeLabel())
	dm.log.WithContext(ctx).Debug("model deleted", zap.String("type", dm.typeLabel()), zap.Uint64("uid", m.UID()))
	return nil
}

// deleteChildren 删除组合关系的子记录；resolve=false 时只看内存里已有的集合。
func (dm *DataMapper) deleteChildren(ctx context.Context, m *entity.Model, seen map[*entity.Model]struct{}, resolve bool) error {
	for _, d := range dm.schema.Relations() {
		if d.Kind != entity.KindComposition {
			continue
		}
		var c *entity.Collection
		if resolve {
			var err error
			if c, err = m.Relation(ctx, d); err != nil {
				return err
			}
		} else if v, _ := m.Peek(d); v != nil {
			c, _ = v.(*entity.Collection)
		}
		if c == nil {
			continue
		}
		t, err := dm.target(d)
		if err != nil {
			return err
		}
		for _, child := range c.Models() {
			if child == nil || child.IsDead() {
				continue
			}
			if err := t.delete(ctx, child, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
