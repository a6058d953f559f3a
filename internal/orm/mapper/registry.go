package mapper

import (
	"context"
	"fmt"
	"time"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"
	"ModelMapper/modules/kit/logx"
)

// Collaborator 是测试模式下的夹具协作者：GetNewGhost/GetLoadedTestingModel
// 通过它拿 uid，新插入的行也会登记给它，方便测试结束时清理。
type Collaborator interface {
	ReserveUID(ctx context.Context, table string) (uint64, error)
	Track(table string, uid uint64)
}

// Registry 是映射上下文：每种实体类型一个 DataMapper 单例（以及它的 identity map）。
// 显式构造、显式传递；一个请求或一个测试用例持有一个，不做并发保护。
type Registry struct {
	storage port.Storage
	schemas map[entity.Type]*entity.Schema
	mappers map[entity.Type]*DataMapper

	testing Collaborator
	logger  logx.Logger
	metrics *Metrics
	slow    time.Duration
}

type Option func(*Registry)

func WithLogger(l logx.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithSlowThreshold 存储往返超过该阈值时打 WARN；0 表示只打 DEBUG。
func WithSlowThreshold(d time.Duration) Option {
	return func(r *Registry) { r.slow = d }
}

func NewRegistry(storage port.Storage, opts ...Option) *Registry {
	r := &Registry{
		storage: storage,
		schemas: make(map[entity.Type]*entity.Schema),
		mappers: make(map[entity.Type]*DataMapper),
		logger:  logx.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 声明实体类型。同一类型注册两个不同的 schema 属于编程错误。
func (r *Registry) Register(schemas ...*entity.Schema) *Registry {
	for _, s := range schemas {
		if cur, ok := r.schemas[s.Type]; ok && cur != s {
			panic(fmt.Sprintf("mapper: entity type %s registered twice", s.Type))
		}
		r.schemas[s.Type] = s
	}
	return r
}

// Get 返回实体类型的 DataMapper，第一次访问时创建。
func (r *Registry) Get(t entity.Type) (*DataMapper, error) {
	if dm, ok := r.mappers[t]; ok {
		return dm, nil
	}
	s, ok := r.schemas[t]
	if !ok {
		return nil, ErrUnknownType.WithData("type", string(t))
	}
	dm := newDataMapper(r, s)
	r.mappers[t] = dm
	return dm, nil
}

func (r *Registry) MustGet(t entity.Type) *DataMapper {
	dm, err := r.Get(t)
	if err != nil {
		panic(err)
	}
	return dm
}

// ActivateTestingMode 注入夹具协作者；传 nil 关闭测试模式。
func (r *Registry) ActivateTestingMode(c Collaborator) {
	r.testing = c
}

func (r *Registry) TestingMode() Collaborator { return r.testing }

// Purge 丢弃所有 DataMapper 单例和它们的 identity map。
func (r *Registry) Purge() {
	for _, dm := range r.mappers {
		dm.identity.Purge()
	}
	clear(r.mappers)
}

func (r *Registry) Storage() port.Storage { return r.storage }

func (r *Registry) Logger() logx.Logger { return r.logger }
