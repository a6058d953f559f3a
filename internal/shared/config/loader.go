package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultConfigRelPath = "configs/conf.yml"

// Load 读取配置文件并解码到 out（必须是指针），之后文件变更时重新解码。
//
// 约定：
// 1) 传入 cfgName（相对/绝对路径）则优先使用；
// 2) 否则从当前目录开始向上查找 `configs/conf.yml`。
func Load(cfgName string, out any) (*viper.Viper, error) {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("config: out must be a non-nil pointer, got %T", out)
	}
	path, err := Resolve(cfgName)
	if err != nil {
		return nil, err
	}
	return load(path, out)
}

// Resolve 返回最终使用的配置文件路径。
func Resolve(cfgName string) (string, error) {
	curDir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if cfgName != "" {
		path := cfgName
		if !filepath.IsAbs(path) {
			path = filepath.Join(curDir, cfgName)
		}
		if !fileExist(path) {
			return "", fmt.Errorf("config file not exist, configPath=%v", path)
		}
		return path, nil
	}
	return findConfigUpward(curDir)
}

func load(configPath string, out any) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(out, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("viper unmarshal config data: %w", err)
	}
	// TODO 热更新直接覆盖 out，读方没有加锁；目前只有 slow_threshold 这类只读开关依赖它。
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := v.Unmarshal(out, viper.DecodeHook(decodeHook())); err != nil {
			zap.L().Error("reload config failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()
	return v, nil
}

// decodeHook 支持 "200ms" 这样的时长和逗号分隔的列表。
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func findConfigUpward(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config file not exist, searched %s from: %s", defaultConfigRelPath, startDir)
		}
		dir = parent
	}
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
