package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ModelMapper/internal/orm/port"
)

// 需要真实的 mongod：MODELMAPPER_MONGO_URI=mongodb://localhost:27017 go test ./...
func openTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MODELMAPPER_MONGO_URI")
	if uri == "" {
		t.Skip("MODELMAPPER_MONGO_URI 未设置")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping 失败: %v", err)
	}
	db := client.Database("modelmapper_test_" + time.Now().Format("150405.000000"))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestStorage_自增与显式uid(t *testing.T) {
	ctx := context.Background()
	st := New(openTestDB(t))

	uid, err := st.Insert(ctx, "fe_groups", port.Row{"title": "a"})
	if err != nil || uid != 1 {
		t.Fatalf("Insert got=%d err=%v", uid, err)
	}
	if _, err := st.Insert(ctx, "fe_groups", port.Row{"uid": uint64(20), "title": "b"}); err != nil {
		t.Fatalf("显式 uid 插入失败: %v", err)
	}
	next, err := st.Insert(ctx, "fe_groups", port.Row{"title": "c"})
	if err != nil || next != 21 {
		t.Fatalf("期望计数器越过显式 uid, got=%d err=%v", next, err)
	}
	top, err := st.MaxUID(ctx, "fe_groups")
	if err != nil || top != 21 {
		t.Fatalf("MaxUID got=%d err=%v", top, err)
	}
}

func TestStorage_查询更新删除(t *testing.T) {
	ctx := context.Background()
	st := New(openTestDB(t))

	uid, _ := st.Insert(ctx, "fe_users", port.Row{"username": "kasper", "deleted": 0})
	row, err := st.Find(ctx, "fe_users", uid, port.Where{"deleted": 0})
	if err != nil || row["username"] != "kasper" {
		t.Fatalf("Find got=%v err=%v", row, err)
	}
	if _, err := st.Find(ctx, "fe_users", 999, nil); !errors.Is(err, port.ErrNoRow) {
		t.Fatalf("期望 ErrNoRow, got=%v", err)
	}
	if err := st.Update(ctx, "fe_users", uid, port.Row{"deleted": 1}); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if err := st.Update(ctx, "fe_users", 999, port.Row{"deleted": 1}); !errors.Is(err, port.ErrNoRow) {
		t.Fatalf("期望 ErrNoRow, got=%v", err)
	}
	if n, _ := st.Count(ctx, port.Query{Table: "fe_users", Where: port.Where{"deleted": 0}}); n != 0 {
		t.Fatalf("Count got=%d", n)
	}

	for i, f := range []uint64{5, 3} {
		if err := st.InsertLink(ctx, "fe_users_mm", port.Row{"uid_local": uid, "uid_foreign": f, "sorting": i + 1}); err != nil {
			t.Fatalf("InsertLink 失败: %v", err)
		}
	}
	links, err := st.Select(ctx, port.Query{Table: "fe_users_mm", Where: port.Where{"uid_local": uid}, OrderBy: "sorting"})
	if err != nil || len(links) != 2 || links[0]["uid_foreign"] != int64(5) {
		t.Fatalf("Select got=%v err=%v", links, err)
	}
	n, err := st.Delete(ctx, "fe_users_mm", port.Where{"uid_local": uid})
	if err != nil || n != 2 {
		t.Fatalf("Delete got=%d err=%v", n, err)
	}
}
