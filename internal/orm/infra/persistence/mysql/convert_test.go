package mysql

import "testing"

func TestFromDriver_字节转字符串(t *testing.T) {
	row := fromDriver(map[string]any{"title": []byte("hi"), "uid": int64(3), "nil": nil})
	if row["title"] != "hi" {
		t.Fatalf("got title=%#v", row["title"])
	}
	if row["uid"] != int64(3) || row["nil"] != nil {
		t.Fatalf("其余值应原样保留, got=%v", row)
	}
}

func TestToUint(t *testing.T) {
	if n, ok := toUint("42"); !ok || n != 42 {
		t.Fatalf("got n=%d ok=%v", n, ok)
	}
	if _, ok := toUint("abc"); ok {
		t.Fatalf("期望非数字失败")
	}
}
