package mapper

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"

	"go.uber.org/zap"
)

// Save 持久化脏模型：不脏时什么都不做；只读或已删除返回 ErrWriteDenied。
//
// 顺序：
//  1. 先保存脏的关联目标（to-one、CSV、mm），环上已经在保存的模型跳过
//  2. 写本行（没有 uid 或还没落库时 insert，否则 update）
//  3. mm 关系按“已落库/当前”的差集增删关联行
//  4. 组合关系的子记录外键指向本模型后逐个保存，被移出的子记录删除
//
// 环上某个模型写行时引用的目标还没有 uid，会在最后补写一次。
func (dm *DataMapper) Save(ctx context.Context, m *entity.Model) error {
	s := newSaveSession(dm.reg)
	if err := s.save(ctx, m); err != nil {
		return err
	}
	return s.finish(ctx)
}

type pendingLink struct {
	dm        *DataMapper
	m         *entity.Model
	d         *entity.Def
	c         *entity.Collection
	wasStored bool
}

type saveSession struct {
	reg  *Registry
	seen map[*entity.Model]struct{}
	// extra 是写行时额外带上的列，目前只有组合子记录的外键列。
	extra   map[*entity.Model]port.Row
	rewrite []*entity.Model
	links   []pendingLink
}

func newSaveSession(reg *Registry) *saveSession {
	return &saveSession{
		reg:   reg,
		seen:  make(map[*entity.Model]struct{}),
		extra: make(map[*entity.Model]port.Row),
	}
}

func (s *saveSession) save(ctx context.Context, m *entity.Model) error {
	if m.IsDead() {
		return ErrWriteDenied.WithReason(entity.ReasonDead).WithData("type", string(m.Type())).WithData("uid", m.UID())
	}
	if _, ok := s.seen[m]; ok {
		return nil
	}
	if !m.IsDirty() {
		return nil
	}
	if m.Schema().ReadOnly {
		return ErrWriteDenied.WithReason(entity.ReasonReadOnly).WithData("type", string(m.Type()))
	}
	dm, err := s.reg.Get(m.Type())
	if err != nil {
		return err
	}
	s.seen[m] = struct{}{}

	if m.IsGhost() {
		if err := m.EnsureLoaded(ctx); err != nil {
			return err
		}
	}
	if err := s.saveReferences(ctx, m); err != nil {
		return err
	}

	row, incomplete := s.dehydrate(dm, m)
	wasStored := m.IsStored()
	if err := dm.writeRow(ctx, m, row); err != nil {
		return err
	}
	m.Materialize()
	m.SetStored(true)
	m.SetLoader(dm)
	if err := dm.identity.Register(m.UID(), m); err != nil {
		return err
	}
	if incomplete {
		s.rewrite = append(s.rewrite, m)
	}

	for _, d := range dm.schema.Relations() {
		switch d.Kind {
		case entity.KindMM:
			if err := s.syncLinks(ctx, dm, m, d, wasStored); err != nil {
				return err
			}
		case entity.KindComposition:
			if err := s.saveChildren(ctx, dm, m, d, wasStored); err != nil {
				return err
			}
		}
	}

	m.ClearDirty()
	dm.reg.metrics.save(dm.typeLabel())
	dm.log.WithContext(ctx).Debug("model saved",
		zap.String("type", dm.typeLabel()),
		zap.Uint64("uid", m.UID()),
		zap.Bool("inserted", !wasStored),
	)
	return nil
}

// saveReferences 先保存本模型引用到的脏模型，这样写行时它们已经有 uid。
func (s *saveSession) saveReferences(ctx context.Context, m *entity.Model) error {
	for _, d := range m.Schema().Relations() {
		if d.Kind == entity.KindComposition {
			continue
		}
		v, lazy := m.Peek(d)
		if lazy != nil {
			continue
		}
		var targets []*entity.Model
		switch x := v.(type) {
		case *entity.Model:
			targets = []*entity.Model{x}
		case *entity.Collection:
			if x != nil {
				targets = x.Models()
			}
		}
		for _, t := range targets {
			if t == nil || t.IsDead() || !t.IsDirty() {
				continue
			}
			if err := s.save(ctx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// dehydrate 把模型转换成一行存储数据；incomplete 表示有引用目标还没有 uid。
func (s *saveSession) dehydrate(dm *DataMapper, m *entity.Model) (row port.Row, incomplete bool) {
	row = make(port.Row, len(dm.schema.Fields())+1)
	for _, d := range dm.schema.Fields() {
		v, lazy := m.Peek(d)
		switch d.Kind {
		case entity.KindToOne:
			var uid uint64
			if t, _ := v.(*entity.Model); t != nil && !t.IsDead() {
				if t.HasUID() {
					uid = t.UID()
				} else {
					incomplete = true
				}
			}
			row[d.Column] = int64(uid)
		case entity.KindCSV:
			uids, missing := liveUIDs(v)
			incomplete = incomplete || missing
			row[d.Column] = joinUIDs(uids)
		case entity.KindMM, entity.KindComposition:
			if lazy != nil {
				if lazy.Known {
					row[d.Column] = int64(lazy.Count)
				}
				continue
			}
			row[d.Column] = int64(liveCount(v))
		default:
			if v == nil {
				v = zeroValue(d.Kind)
			}
			row[d.Column] = v
		}
	}
	for k, v := range s.extra[m] {
		row[k] = v
	}
	return row, incomplete
}

func (dm *DataMapper) writeRow(ctx context.Context, m *entity.Model, row port.Row) error {
	start := time.Now()
	var (
		err    error
		action string
	)
	switch {
	case !m.HasUID():
		action = "insert"
		dm.withDeletedFlag(row)
		var uid uint64
		if uid, err = dm.reg.storage.Insert(ctx, dm.schema.Table, row); err == nil {
			m.AssignUID(uid)
			dm.issued = max(dm.issued, uid)
			dm.track(uid)
		}
	case !m.IsStored():
		action = "insert"
		dm.withDeletedFlag(row)
		row[port.UIDColumn] = int64(m.UID())
		if _, err = dm.reg.storage.Insert(ctx, dm.schema.Table, row); err == nil {
			dm.track(m.UID())
		}
	default:
		action = "update"
		err = dm.reg.storage.Update(ctx, dm.schema.Table, m.UID(), row)
	}
	dm.observe(ctx, action, start, zap.Uint64("uid", m.UID()))
	if err != nil {
		dm.reportSys(ctx, "mapper."+action, err)
		return err
	}
	return nil
}

func (dm *DataMapper) withDeletedFlag(row port.Row) {
	if dm.schema.DeletedColumn != "" {
		row[dm.schema.DeletedColumn] = int64(0)
	}
}

// syncLinks 同步 mm 关系；还有成员没有 uid 时推迟到 finish。
func (s *saveSession) syncLinks(ctx context.Context, dm *DataMapper, m *entity.Model, d *entity.Def, wasStored bool) error {
	v, lazy := m.Peek(d)
	if lazy != nil {
		return nil
	}
	c, _ := v.(*entity.Collection)
	if c == nil {
		return nil
	}
	if _, missing := liveUIDs(c); missing {
		s.links = append(s.links, pendingLink{dm: dm, m: m, d: d, c: c, wasStored: wasStored})
		return nil
	}
	return dm.syncMM(ctx, m, d, c, wasStored)
}

// syncMM 按差集增删关联行。已落库列表未知时（集合不是从存储解析的）先查一次现有关联行。
// 排序关系里保留下来的成员顺序变了，整组重写。
func (dm *DataMapper) syncMM(ctx context.Context, m *entity.Model, d *entity.Def, c *entity.Collection, wasStored bool) error {
	local, foreign, sorting := d.LinkColumns()
	current, _ := liveUIDs(c)

	persisted, known := c.Persisted()
	if !known && wasStored {
		rows, err := dm.linkRows(ctx, m.UID(), d)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if fuid, err := entity.ToUID(row[foreign]); err == nil && fuid != 0 {
				persisted = append(persisted, fuid)
			}
		}
	}

	var (
		toDelete []uint64
		toInsert []int // current 里的下标
	)
	if d.MMSorted && !sameRelativeOrder(persisted, current) {
		if len(persisted) > 0 {
			if err := dm.deleteLinks(ctx, d, port.Where{local: int64(m.UID())}); err != nil {
				return err
			}
		}
		for i := range current {
			toInsert = append(toInsert, i)
		}
	} else {
		had := setOf(persisted)
		has := setOf(current)
		for _, uid := range persisted {
			if _, ok := has[uid]; !ok {
				toDelete = append(toDelete, uid)
			}
		}
		for i, uid := range current {
			if _, ok := had[uid]; !ok {
				had[uid] = struct{}{}
				toInsert = append(toInsert, i)
			}
		}
	}

	for _, uid := range toDelete {
		if err := dm.deleteLinks(ctx, d, port.Where{local: int64(m.UID()), foreign: int64(uid)}); err != nil {
			return err
		}
	}
	for _, i := range toInsert {
		row := port.Row{local: int64(m.UID()), foreign: int64(current[i])}
		if d.MMSorted {
			row[sorting] = int64(i + 1)
		}
		start := time.Now()
		err := dm.reg.storage.InsertLink(ctx, d.MMTable, row)
		dm.observe(ctx, "insert_mm", start, zap.String("mm_table", d.MMTable))
		if err != nil {
			dm.reportSys(ctx, "mapper.insert_mm", err)
			return err
		}
	}
	c.MarkPersisted()
	return nil
}

func (dm *DataMapper) deleteLinks(ctx context.Context, d *entity.Def, where port.Where) error {
	start := time.Now()
	_, err := dm.reg.storage.Delete(ctx, d.MMTable, where)
	dm.observe(ctx, "delete_mm", start, zap.String("mm_table", d.MMTable))
	if err != nil {
		dm.reportSys(ctx, "mapper.delete_mm", err)
		return err
	}
	return nil
}

// saveChildren 让每个子记录的外键指向本模型再保存；已落库但不在集合里的子记录删除。
func (s *saveSession) saveChildren(ctx context.Context, dm *DataMapper, m *entity.Model, d *entity.Def, wasStored bool) error {
	v, lazy := m.Peek(d)
	if lazy != nil {
		return nil
	}
	c, _ := v.(*entity.Collection)
	if c == nil {
		return nil
	}
	t, err := dm.target(d)
	if err != nil {
		return err
	}
	fd := t.schema.ForeignField(d.ForeignColumn, dm.schema.Type)

	for _, child := range c.Models() {
		if child == nil || child.IsDead() {
			continue
		}
		if fd != nil {
			var ref any = int64(m.UID())
			if fd.Kind == entity.KindToOne {
				ref = m
			}
			if err := child.SetValue(fd, ref); err != nil {
				return err
			}
		}
		if s.extra[child] == nil {
			s.extra[child] = port.Row{}
		}
		s.extra[child][d.ForeignColumn] = int64(m.UID())
		if !wasStored {
			child.MarkDirty()
		}
		if _, saved := s.seen[child]; saved {
			s.rewrite = append(s.rewrite, child)
			continue
		}
		if err := s.save(ctx, child); err != nil {
			return err
		}
	}

	persisted, known := c.Persisted()
	if !known && wasStored {
		rows, err := t.reg.storage.Select(ctx, port.Query{
			Table: t.schema.Table,
			Where: t.mergeLive(port.Where{d.ForeignColumn: int64(m.UID())}),
		})
		if err != nil {
			t.reportSys(ctx, "mapper.select_children", err)
			return err
		}
		for _, row := range rows {
			if uid, err := entity.ToUID(row[port.UIDColumn]); err == nil && uid != 0 {
				persisted = append(persisted, uid)
			}
		}
	}
	current := setOf(c.UIDs())
	for _, uid := range persisted {
		if _, ok := current[uid]; ok {
			continue
		}
		orphan, err := t.Find(ctx, uid)
		if err != nil {
			return err
		}
		if orphan.IsDead() {
			continue
		}
		if err := t.delete(ctx, orphan, make(map[*entity.Model]struct{})); err != nil {
			return err
		}
	}
	c.MarkPersisted()
	return nil
}

// finish 补写环上引用了当时还没有 uid 的行，以及推迟的 mm 同步。
func (s *saveSession) finish(ctx context.Context) error {
	for _, m := range s.rewrite {
		if m.IsDead() || !m.HasUID() {
			continue
		}
		dm, err := s.reg.Get(m.Type())
		if err != nil {
			return err
		}
		row, _ := s.dehydrate(dm, m)
		start := time.Now()
		err = dm.reg.storage.Update(ctx, dm.schema.Table, m.UID(), row)
		dm.observe(ctx, "update", start, zap.Uint64("uid", m.UID()))
		if err != nil {
			dm.reportSys(ctx, "mapper.update", err)
			return err
		}
	}
	for _, p := range s.links {
		if err := p.dm.syncMM(ctx, p.m, p.d, p.c, p.wasStored); err != nil {
			return err
		}
	}
	return nil
}

// liveUIDs 返回集合里未删除成员的 uid；missing 表示有成员还没有 uid。
func liveUIDs(v any) (uids []uint64, missing bool) {
	c, _ := v.(*entity.Collection)
	if c == nil {
		return nil, false
	}
	for m := range c.All() {
		if m == nil || m.IsDead() {
			continue
		}
		if !m.HasUID() {
			missing = true
			continue
		}
		uids = append(uids, m.UID())
	}
	return uids, missing
}

func liveCount(v any) int {
	c, _ := v.(*entity.Collection)
	if c == nil {
		return 0
	}
	n := 0
	for m := range c.All() {
		if m != nil && !m.IsDead() {
			n++
		}
	}
	return n
}

func joinUIDs(uids []uint64) string {
	parts := make([]string, len(uids))
	for i, uid := range uids {
		parts[i] = strconv.FormatUint(uid, 10)
	}
	return strings.Join(parts, ",")
}

func zeroValue(k entity.Kind) any {
	switch k {
	case entity.KindString:
		return ""
	case entity.KindInt:
		return int64(0)
	case entity.KindFloat:
		return float64(0)
	case entity.KindBool:
		return false
	default:
		return nil
	}
}

func setOf(uids []uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(uids))
	for _, uid := range uids {
		out[uid] = struct{}{}
	}
	return out
}

// sameRelativeOrder 判断两个列表共同拥有的元素相对顺序是否一致。
func sameRelativeOrder(a, b []uint64) bool {
	inB := setOf(b)
	inA := setOf(a)
	var x, y []uint64
	for _, uid := range a {
		if _, ok := inB[uid]; ok {
			x = append(x, uid)
		}
	}
	for _, uid := range b {
		if _, ok := inA[uid]; ok {
			y = append(y, uid)
		}
	}
	return slices.Equal(x, y)
}
