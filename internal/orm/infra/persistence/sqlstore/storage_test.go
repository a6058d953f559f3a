package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/infra/persistence/sqlstore"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/orm/port"
)

const ddl = `
CREATE TABLE tx_notes (
	uid INTEGER PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	pinned INTEGER NOT NULL DEFAULT 0,
	labels INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE tx_labels (
	uid INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE tx_note_label_mm (
	uid_local INTEGER NOT NULL,
	uid_foreign INTEGER NOT NULL,
	sorting INTEGER NOT NULL DEFAULT 0,
	sorting_foreign INTEGER NOT NULL DEFAULT 0
);`

func openStore(t *testing.T) *sqlstore.Storage {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return sqlstore.New(db, sqlstore.SQLite)
}

func TestStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	uid, err := st.Insert(ctx, "tx_notes", port.Row{"title": "a", "pinned": true})
	if err != nil || uid != 1 {
		t.Fatalf("Insert got uid=%d err=%v", uid, err)
	}
	if _, err := st.Insert(ctx, "tx_notes", port.Row{"uid": uint64(10), "title": "b"}); err != nil {
		t.Fatalf("显式 uid 插入失败: %v", err)
	}
	if _, err := st.Insert(ctx, "tx_notes", port.Row{"uid": uint64(10)}); err == nil {
		t.Fatalf("期望重复 uid 报错")
	}

	row, err := st.Find(ctx, "tx_notes", 1, port.Where{"deleted": 0})
	if err != nil {
		t.Fatalf("Find 失败: %v", err)
	}
	if row["title"] != "a" || row["pinned"] != int64(1) {
		t.Fatalf("got row=%v", row)
	}
	if _, err := st.Find(ctx, "tx_notes", 99, nil); !errors.Is(err, port.ErrNoRow) {
		t.Fatalf("期望 ErrNoRow, got=%v", err)
	}

	if err := st.Update(ctx, "tx_notes", 1, port.Row{"title": "a2", "uid": int64(5)}); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if err := st.Update(ctx, "tx_notes", 77, port.Row{"title": "x"}); !errors.Is(err, port.ErrNoRow) {
		t.Fatalf("期望更新不存在的行返回 ErrNoRow, got=%v", err)
	}

	rows, err := st.Select(ctx, port.Query{Table: "tx_notes", OrderBy: "title"})
	if err != nil || len(rows) != 2 || rows[0]["title"] != "a2" {
		t.Fatalf("Select got=%v err=%v", rows, err)
	}
	n, err := st.Count(ctx, port.Query{Table: "tx_notes", Where: port.Where{"title": "b"}})
	if err != nil || n != 1 {
		t.Fatalf("Count got=%d err=%v", n, err)
	}
	top, err := st.MaxUID(ctx, "tx_notes")
	if err != nil || top != 10 {
		t.Fatalf("MaxUID got=%d err=%v", top, err)
	}
	deleted, err := st.Delete(ctx, "tx_notes", port.Where{"uid": 10})
	if err != nil || deleted != 1 {
		t.Fatalf("Delete got=%d err=%v", deleted, err)
	}
	if top, _ := st.MaxUID(ctx, "tx_labels"); top != 0 {
		t.Fatalf("空表 MaxUID 期望 0, got=%d", top)
	}
}

func TestStorage_拒绝非法标识符(t *testing.T) {
	st := openStore(t)
	_, err := st.Select(context.Background(), port.Query{Table: "tx_notes", Where: port.Where{"title; DROP TABLE tx_notes": 1}})
	if err == nil {
		t.Fatalf("期望非法列名报错")
	}
}

func TestStorage_通过映射层读写mm(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	title := entity.String("title")
	pinned := entity.Bool("pinned")
	labels := entity.MM("labels", "label", "tx_note_label_mm")
	name := entity.String("name")
	reg := mapper.NewRegistry(st).Register(
		entity.NewSchema("note", "tx_notes", title, pinned, labels).WithDeletedColumn("deleted"),
		entity.NewSchema("label", "tx_labels", name),
	)
	notes := reg.MustGet("note")
	lbls := reg.MustGet("label")

	l1, _ := lbls.GetNewGhost(ctx)
	entity.Set(l1, name, "go")
	note, _ := notes.GetNewGhost(ctx)
	entity.Set(note, title, "hello")
	entity.Set(note, pinned, true)
	entity.Set(note, labels, entity.NewCollection(l1))
	if err := notes.Save(ctx, note); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	reg.Purge()
	got, err := reg.MustGet("note").Find(ctx, note.UID())
	if err != nil {
		t.Fatalf("Find 失败: %v", err)
	}
	if v, err := entity.Get(ctx, got, pinned); err != nil || !v {
		t.Fatalf("pinned got=%v err=%v", v, err)
	}
	c, err := entity.Get(ctx, got, labels)
	if err != nil || c.Count() != 1 || c.First().UID() != l1.UID() {
		t.Fatalf("labels got=%v err=%v", c, err)
	}

	if err := reg.MustGet("note").Delete(ctx, got); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	links, _ := st.Select(ctx, port.Query{Table: "tx_note_label_mm"})
	if len(links) != 0 {
		t.Fatalf("期望关联行被删除, got=%v", links)
	}
	row, err := st.Find(ctx, "tx_notes", note.UID(), nil)
	if err != nil || row["deleted"] != int64(1) {
		t.Fatalf("期望软删除, got=%v err=%v", row, err)
	}
}

func TestDialect_占位符(t *testing.T) {
	if got := sqlstore.Postgres.Placeholder(3); got != "$3" {
		t.Fatalf("got=%q", got)
	}
	if got := sqlstore.SQLite.Placeholder(3); got != "?" {
		t.Fatalf("got=%q", got)
	}
}
