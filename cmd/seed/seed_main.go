package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ModelMapper/internal/account/domain"
	"ModelMapper/internal/orm/dc"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/shared/appconfig"
	"ModelMapper/internal/shared/logs"
	"ModelMapper/modules/kit/logx"
	"ModelMapper/modules/kit/tracex"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，默认向上查找 configs/conf.yml")
	flag.Parse()

	cfg, err := appconfig.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if _, err := logs.Init("seed", cfg.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	logs.Info("conf", zap.String("store", cfg.Store), zap.Duration("slow_threshold", cfg.Mapper.SlowThreshold))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, scope := tracex.EnsureScopeID(ctx)

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logs.Fatal("open storage failed", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStorage()

	promReg := prometheus.NewRegistry()
	logger := logx.NewZapLogger(logs.L())
	reg := mapper.NewRegistry(storage,
		mapper.WithLogger(logger),
		mapper.WithMetrics(mapper.NewMetrics(promReg)),
		mapper.WithSlowThreshold(cfg.Mapper.SlowThreshold),
	).Register(domain.Schemas()...)
	center := dc.New(reg)

	if err := seed(ctx, center, logger); err != nil {
		logs.Error("seed failed", zap.String("scope", scope), zap.Error(err))
		os.Exit(1)
	}
	if err := center.Flush(ctx); err != nil {
		logs.Error("flush failed", zap.Error(err))
		os.Exit(1)
	}
	if err := report(ctx, center, os.Stdout); err != nil {
		logs.Error("report failed", zap.Error(err))
		os.Exit(1)
	}
	logMetrics(promReg)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := center.Close(closeCtx); err != nil {
		logs.Error("close data center failed", zap.Error(err))
	}
}

// logMetrics 把映射层计数器汇总打一行日志。
func logMetrics(g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logs.Warn("gather metrics failed", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		fields = append(fields, zap.Float64(mf.GetName(), total))
	}
	logs.Info("mapper metrics", fields...)
}
