package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Log    LogConfig `mapstructure:"log"`
	Mapper struct {
		SlowThreshold time.Duration `mapstructure:"slow_threshold"`
		Tables        []string      `mapstructure:"tables"`
	} `mapstructure:"mapper"`
}

func writeConf(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "configs", "conf.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_解码时长和列表(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "log:\n  level: debug\nmapper:\n  slow_threshold: 250ms\n  tables: fe_users,fe_groups\n")
	var out sample
	if _, err := Load(path, &out); err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if out.Log.Level != "debug" {
		t.Fatalf("got level=%q", out.Log.Level)
	}
	if out.Mapper.SlowThreshold != 250*time.Millisecond {
		t.Fatalf("期望 250ms, got=%v", out.Mapper.SlowThreshold)
	}
	if len(out.Mapper.Tables) != 2 || out.Mapper.Tables[1] != "fe_groups" {
		t.Fatalf("期望逗号列表被拆开, got=%v", out.Mapper.Tables)
	}
}

func TestLoad_out必须是指针(t *testing.T) {
	if _, err := Load("whatever.yml", sample{}); err == nil {
		t.Fatalf("期望非指针报错")
	}
}

func TestFindConfigUpward_向上查找(t *testing.T) {
	dir := t.TempDir()
	want := writeConf(t, dir, "log:\n  level: info\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := findConfigUpward(nested)
	if err != nil || got != want {
		t.Fatalf("got=%q err=%v want=%q", got, err, want)
	}
	if _, err := findConfigUpward(t.TempDir()); err == nil {
		t.Fatalf("期望找不到时报错")
	}
}
