package mapper

import (
	"context"
	"time"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"

	"go.uber.org/zap"
)

// hydrate 把一行存储数据转换成字段值：
// - 标量按字段类型转换
// - to-one 通过目标 mapper 的 Find 得到（uid 0 表示无关系）
// - CSV 立即拆分并逐个 Find（0 跳过）
// - mm/组合 给一个 LazyRelation 占位，计数取本表同名列
func (dm *DataMapper) hydrate(ctx context.Context, m *entity.Model, row port.Row) (map[string]any, error) {
	values := make(map[string]any, len(row))
	for _, d := range dm.schema.Fields() {
		raw, present := row[d.Column]
		switch d.Kind {
		case entity.KindToOne:
			target, err := dm.toOne(ctx, d, raw)
			if err != nil {
				return nil, err
			}
			values[d.Name] = target
		case entity.KindCSV:
			c, err := dm.csv(ctx, d, raw)
			if err != nil {
				return nil, err
			}
			values[d.Name] = c
		case entity.KindMM, entity.KindComposition:
			lazy := &entity.LazyRelation{Resolve: dm.resolver(m, d)}
			if present && raw != nil {
				if n, err := entity.ToInt(raw); err == nil {
					lazy.Count, lazy.Known = int(n), true
				}
			}
			values[d.Name] = lazy
		default:
			if !present {
				continue
			}
			v, err := entity.CoerceScalar(d, raw)
			if err != nil {
				if e, ok := err.(*entity.Error); ok {
					return nil, e.WithData("type", dm.typeLabel()).WithData("uid", m.UID())
				}
				return nil, err
			}
			values[d.Name] = v
		}
	}
	return values, nil
}

func (dm *DataMapper) target(d *entity.Def) (*DataMapper, error) {
	return dm.reg.Get(d.Target)
}

func (dm *DataMapper) toOne(ctx context.Context, d *entity.Def, raw any) (*entity.Model, error) {
	uid, err := entity.ToUID(raw)
	if err != nil || uid == 0 {
		return nil, err
	}
	t, err := dm.target(d)
	if err != nil {
		return nil, err
	}
	return t.Find(ctx, uid)
}

func (dm *DataMapper) csv(ctx context.Context, d *entity.Def, raw any) (*entity.Collection, error) {
	uids, err := entity.ParseUIDList(raw)
	if err != nil {
		return nil, err
	}
	c := entity.NewCollection()
	if len(uids) > 0 {
		t, err := dm.target(d)
		if err != nil {
			return nil, err
		}
		for _, uid := range uids {
			rel, err := t.Find(ctx, uid)
			if err != nil {
				return nil, err
			}
			c.Add(rel)
		}
	}
	c.MarkPersisted()
	return c, nil
}

func (dm *DataMapper) resolver(m *entity.Model, d *entity.Def) func(context.Context) (*entity.Collection, error) {
	return func(ctx context.Context) (*entity.Collection, error) {
		if d.Kind == entity.KindMM {
			return dm.resolveMM(ctx, m.UID(), d)
		}
		return dm.resolveComposition(ctx, m.UID(), d)
	}
}

// resolveMM 读关联表：按排序列升序，逐个 Find 对端 uid，对端 uid 为 0 的行跳过。
func (dm *DataMapper) resolveMM(ctx context.Context, uid uint64, d *entity.Def) (*entity.Collection, error) {
	rows, err := dm.linkRows(ctx, uid, d)
	if err != nil {
		return nil, err
	}
	_, foreign, _ := d.LinkColumns()
	t, err := dm.target(d)
	if err != nil {
		return nil, err
	}
	c := entity.NewCollection()
	for _, row := range rows {
		fuid, err := entity.ToUID(row[foreign])
		if err != nil {
			return nil, err
		}
		if fuid == 0 {
			continue
		}
		rel, err := t.Find(ctx, fuid)
		if err != nil {
			return nil, err
		}
		c.Add(rel)
	}
	return c, nil
}

func (dm *DataMapper) linkRows(ctx context.Context, uid uint64, d *entity.Def) ([]port.Row, error) {
	local, _, sorting := d.LinkColumns()
	q := port.Query{Table: d.MMTable, Where: port.Where{local: uid}}
	if d.MMSorted {
		q.OrderBy = sorting
	}
	start := time.Now()
	rows, err := dm.reg.storage.Select(ctx, q)
	dm.observe(ctx, "select_mm", start, zap.String("mm_table", d.MMTable), zap.Uint64("uid", uid))
	if err != nil {
		dm.reportSys(ctx, "mapper.resolve_mm", err)
		return nil, err
	}
	return rows, nil
}

// resolveComposition 读子表里外键等于 uid 的行，按声明的排序列排序。
func (dm *DataMapper) resolveComposition(ctx context.Context, uid uint64, d *entity.Def) (*entity.Collection, error) {
	t, err := dm.target(d)
	if err != nil {
		return nil, err
	}
	return t.selectModels(ctx, port.Query{
		Table:   t.schema.Table,
		Where:   t.mergeLive(port.Where{d.ForeignColumn: uid}),
		OrderBy: d.SortBy,
	})
}
