package mapper

import (
	"context"
	"errors"
	"time"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"
	"ModelMapper/modules/kit/logx"

	"go.uber.org/zap"
)

// DataMapper 负责一种实体类型：分配 uid、查找、加载、保存、删除，并持有 identity map。
// 四种关系编码的解析和回写都按 schema 里的声明完成。
type DataMapper struct {
	reg      *Registry
	schema   *entity.Schema
	identity *IdentityMap
	// issued 是本 mapper 发出过的最大 uid，保证 GetNewGhost 不重复。
	issued uint64
	log    logx.Logger
}

func newDataMapper(reg *Registry, s *entity.Schema) *DataMapper {
	return &DataMapper{
		reg:      reg,
		schema:   s,
		identity: NewIdentityMap(),
		log:      reg.logger.With(zap.String("entity", string(s.Type))),
	}
}

func (dm *DataMapper) Schema() *entity.Schema { return dm.schema }

func (dm *DataMapper) IdentityMap() *IdentityMap { return dm.identity }

func (dm *DataMapper) typeLabel() string { return string(dm.schema.Type) }

// Find 返回 uid 对应的唯一实例：identity map 命中直接返回，否则登记一个 Ghost。
// 不访问存储，记录是否存在要到第一次访问字段时才知道。
func (dm *DataMapper) Find(ctx context.Context, uid uint64) (*entity.Model, error) {
	if uid == 0 {
		return nil, ErrInvalidID.WithData("type", dm.typeLabel()).WithData("uid", uid)
	}
	if m, ok := dm.identity.Get(uid); ok {
		dm.reg.metrics.hit(dm.typeLabel())
		return m, nil
	}
	m := entity.NewGhost(dm.schema, uid, dm)
	if err := dm.identity.Register(uid, m); err != nil {
		return nil, err
	}
	dm.reg.metrics.miss(dm.typeLabel())
	return m, nil
}

// Load 按 uid 取行并填充模型；没有这一行时返回 ErrNotFound。
func (dm *DataMapper) Load(ctx context.Context, m *entity.Model) error {
	if m.Schema() != dm.schema {
		return ErrUnknownType.WithData("type", string(m.Type())).WithData("mapper", dm.typeLabel())
	}
	if m.IsDead() {
		return ErrModelDead.WithData("type", dm.typeLabel()).WithData("uid", m.UID())
	}
	if !m.HasUID() {
		return ErrInvalidID.WithData("type", dm.typeLabel()).WithData("uid", m.UID())
	}
	// GetNewGhost 发出的 Ghost 还没落库，直接在内存里置为 Loaded，Set 过的值保留。
	if !m.IsStored() {
		m.Materialize()
		m.SetLoader(dm)
		return nil
	}

	start := time.Now()
	row, err := dm.reg.storage.Find(ctx, dm.schema.Table, m.UID(), dm.liveWhere())
	dm.observe(ctx, "load", start, zap.Uint64("uid", m.UID()))
	if err != nil {
		if errors.Is(err, port.ErrNoRow) {
			// 技术错误 → 语义错误
			return ErrNotFound.WithData("type", dm.typeLabel()).WithData("uid", m.UID()).WithCause(err)
		}
		dm.reportSys(ctx, "mapper.load", err)
		return err
	}
	values, err := dm.hydrate(ctx, m, row)
	if err != nil {
		return err
	}
	m.Hydrate(values)
	m.SetStored(true)
	m.SetLoader(dm)
	dm.reg.metrics.load(dm.typeLabel())
	return nil
}

// GetNewGhost 分配一个从未发出过、存储里也没用过的 uid，返回登记好的 Ghost。
// 这个 Ghost 还没有落库：Save 时按这个 uid 插入。
func (dm *DataMapper) GetNewGhost(ctx context.Context) (*entity.Model, error) {
	uid, err := dm.allocateUID(ctx)
	if err != nil {
		return nil, err
	}
	m := entity.NewGhost(dm.schema, uid, dm)
	m.SetStored(false)
	if err := dm.identity.Register(uid, m); err != nil {
		return nil, err
	}
	dm.track(uid)
	return m, nil
}

// GetLoadedTestingModel 分配 uid，直接用 values 构造 Loaded 模型并登记，不走查询。
func (dm *DataMapper) GetLoadedTestingModel(ctx context.Context, values map[string]any) (*entity.Model, error) {
	uid, err := dm.allocateUID(ctx)
	if err != nil {
		return nil, err
	}
	m := entity.New(dm.schema)
	m.AssignUID(uid)
	m.SetLoader(dm)
	if err := m.SetData(values); err != nil {
		return nil, err
	}
	if err := dm.identity.Register(uid, m); err != nil {
		return nil, err
	}
	dm.track(uid)
	return m, nil
}

// FindBy 按等值条件查询，结果经过 identity map：已加载的实例原样复用。
func (dm *DataMapper) FindBy(ctx context.Context, where port.Where) (*entity.Collection, error) {
	return dm.selectModels(ctx, port.Query{Table: dm.schema.Table, Where: dm.mergeLive(where)})
}

// FindOneBy 返回第一个匹配的模型，没有时返回 ErrNotFound。
func (dm *DataMapper) FindOneBy(ctx context.Context, where port.Where) (*entity.Model, error) {
	c, err := dm.FindBy(ctx, where)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrNotFound.WithData("type", dm.typeLabel()).WithData("where", map[string]any(where))
	}
	return c.First(), nil
}

// FindAll 返回全部未删除的记录；orderBy 为空时按存储顺序。
func (dm *DataMapper) FindAll(ctx context.Context, orderBy string) (*entity.Collection, error) {
	return dm.selectModels(ctx, port.Query{Table: dm.schema.Table, Where: dm.liveWhere(), OrderBy: orderBy})
}

func (dm *DataMapper) CountBy(ctx context.Context, where port.Where) (int, error) {
	start := time.Now()
	n, err := dm.reg.storage.Count(ctx, port.Query{Table: dm.schema.Table, Where: dm.mergeLive(where)})
	dm.observe(ctx, "count", start)
	if err != nil {
		dm.reportSys(ctx, "mapper.count", err)
		return 0, err
	}
	return n, nil
}

// Existing 判断存储里是否有这一行（软删除的不算）。
func (dm *DataMapper) Existing(ctx context.Context, uid uint64) (bool, error) {
	if uid == 0 {
		return false, nil
	}
	_, err := dm.reg.storage.Find(ctx, dm.schema.Table, uid, dm.liveWhere())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, port.ErrNoRow) {
		return false, nil
	}
	dm.reportSys(ctx, "mapper.existing", err)
	return false, err
}

func (dm *DataMapper) selectModels(ctx context.Context, q port.Query) (*entity.Collection, error) {
	start := time.Now()
	rows, err := dm.reg.storage.Select(ctx, q)
	dm.observe(ctx, "select", start, zap.Int("rows", len(rows)))
	if err != nil {
		dm.reportSys(ctx, "mapper.select", err)
		return nil, err
	}
	out := entity.NewCollection()
	for _, row := range rows {
		m, err := dm.fromRow(ctx, row)
		if err != nil {
			return nil, err
		}
		out.Add(m)
	}
	return out, nil
}

// fromRow 把一行查询结果变成模型：identity map 里已加载（或有未保存改动）的实例不动，
// Ghost 用这一行填充，不在 identity map 里的新建并登记。
func (dm *DataMapper) fromRow(ctx context.Context, row port.Row) (*entity.Model, error) {
	uid, err := entity.ToUID(row[port.UIDColumn])
	if err != nil {
		return nil, err
	}
	if uid == 0 {
		return nil, ErrInvalidID.WithData("type", dm.typeLabel()).WithData("uid", uid)
	}
	m, ok := dm.identity.Get(uid)
	if ok && !m.IsGhost() {
		dm.reg.metrics.hit(dm.typeLabel())
		return m, nil
	}
	if !ok {
		m = entity.NewGhost(dm.schema, uid, dm)
		if err := dm.identity.Register(uid, m); err != nil {
			return nil, err
		}
		dm.reg.metrics.miss(dm.typeLabel())
	}
	values, err := dm.hydrate(ctx, m, row)
	if err != nil {
		return nil, err
	}
	m.Hydrate(values)
	m.SetStored(true)
	dm.reg.metrics.load(dm.typeLabel())
	return m, nil
}

// allocateUID：测试模式下由协作者预留，否则取 存储最大值/已登记最大值/已发出最大值 之后的下一个。
func (dm *DataMapper) allocateUID(ctx context.Context) (uint64, error) {
	if c := dm.reg.testing; c != nil {
		uid, err := c.ReserveUID(ctx, dm.schema.Table)
		if err != nil {
			return 0, err
		}
		if uid == 0 {
			return 0, ErrInvalidID.WithData("type", dm.typeLabel()).WithData("uid", uid)
		}
		if _, taken := dm.identity.Get(uid); taken || uid <= dm.issued {
			return 0, ErrIdentityConflict.WithData("type", dm.typeLabel()).WithData("uid", uid)
		}
		dm.issued = uid
		return uid, nil
	}
	stored, err := dm.reg.storage.MaxUID(ctx, dm.schema.Table)
	if err != nil {
		dm.reportSys(ctx, "mapper.allocate_uid", err)
		return 0, err
	}
	next := max(stored, dm.identity.MaxUID(), dm.issued) + 1
	dm.issued = next
	return next, nil
}

func (dm *DataMapper) track(uid uint64) {
	if c := dm.reg.testing; c != nil {
		c.Track(dm.schema.Table, uid)
	}
}

// liveWhere 是排除软删除行的条件；没有软删除列时为 nil。
func (dm *DataMapper) liveWhere() port.Where {
	if dm.schema.DeletedColumn == "" {
		return nil
	}
	return port.Where{dm.schema.DeletedColumn: 0}
}

func (dm *DataMapper) mergeLive(where port.Where) port.Where {
	live := dm.liveWhere()
	if len(live) == 0 {
		return where
	}
	out := make(port.Where, len(where)+len(live))
	for k, v := range where {
		out[k] = v
	}
	for k, v := range live {
		out[k] = v
	}
	return out
}

func (dm *DataMapper) observe(ctx context.Context, action string, start time.Time, fields ...zap.Field) {
	fields = append(fields, zap.String("table", dm.schema.Table))
	logx.ReportSlowWithLoggerContext(ctx, dm.log, action, time.Since(start), dm.reg.slow, fields...)
}

func (dm *DataMapper) reportSys(ctx context.Context, action string, err error) {
	logx.ReportSysErrorWithLoggerContext(ctx, dm.log, logx.NewSysLog(action, err),
		zap.String("type", dm.typeLabel()))
}
