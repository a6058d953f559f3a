package dc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/modules/kit/logx"
)

// DataCenter 是一组模型的工作单元：登记根模型，Flush 时把脏的逐个保存。
//
// Registry 本身不加锁，所有对模型和映射器的访问都应该经由 Do，
// 这样后台定时 Flush 与调用方的读写不会交错。
type DataCenter struct {
	reg        *mapper.Registry
	log        logx.Logger
	flushEvery time.Duration

	mu      sync.Mutex
	tracked []*entity.Model
	index   map[*entity.Model]struct{}
	closed  bool

	stop chan struct{}
	done chan struct{}
}

type Option func(*DataCenter)

// WithFlushEvery 开启后台定时 Flush；0 表示只在调用方显式 Flush/Close 时写库。
func WithFlushEvery(d time.Duration) Option {
	return func(dc *DataCenter) { dc.flushEvery = d }
}

func New(reg *mapper.Registry, opts ...Option) *DataCenter {
	d := &DataCenter{
		reg:   reg,
		log:   reg.Logger(),
		index: make(map[*entity.Model]struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.flushEvery > 0 {
		go d.flushLoop()
	} else {
		close(d.done)
	}
	return d
}

// Do 在持有锁的情况下访问映射器。
func (d *DataCenter) Do(ctx context.Context, fn func(ctx context.Context, reg *mapper.Registry) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(ctx, d.reg)
}

// Track 登记根模型，重复登记忽略。只需登记根：保存会沿关系带上脏的关联模型。
func (d *DataCenter) Track(models ...*entity.Model) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.track(models...)
}

func (d *DataCenter) track(models ...*entity.Model) {
	for _, m := range models {
		if m == nil {
			continue
		}
		if _, ok := d.index[m]; ok {
			continue
		}
		d.index[m] = struct{}{}
		d.tracked = append(d.tracked, m)
	}
}

func (d *DataCenter) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.tracked {
		if !m.IsDead() && m.IsDirty() {
			return true
		}
	}
	return false
}

// Flush 按登记顺序保存脏模型。某个模型失败不影响其它模型，失败的仍然是脏的，下次 Flush 重试。
// 已删除的模型从登记里移除。
func (d *DataCenter) Flush(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flush(ctx)
}

func (d *DataCenter) flush(ctx context.Context) error {
	var errs error
	live := d.tracked[:0]
	for _, m := range d.tracked {
		if m.IsDead() {
			delete(d.index, m)
			continue
		}
		live = append(live, m)
		if !m.IsDirty() {
			continue
		}
		dm, err := d.reg.Get(m.Type())
		if err == nil {
			err = dm.Save(ctx, m)
		}
		if err != nil {
			d.log.WithContext(ctx).Warn("flush model failed",
				zap.String("type", string(m.Type())), zap.Uint64("uid", m.UID()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	clear(d.tracked[len(live):])
	d.tracked = live
	return errs
}

// Close 最后 Flush 一次，停掉后台循环并清空映射上下文。Flush 失败时不清空，调用方还能重试。
func (d *DataCenter) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		if d.flushEvery > 0 {
			close(d.stop)
		}
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flush(ctx); err != nil {
		return err
	}
	d.tracked = nil
	clear(d.index)
	d.reg.Purge()
	return nil
}

func (d *DataCenter) flushLoop() {
	defer close(d.done)
	ticker := time.NewTicker(d.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// 失败已在 flush 里记日志，模型保持脏，下个周期重试
			_ = d.Flush(context.Background())
		case <-d.stop:
			return
		}
	}
}
