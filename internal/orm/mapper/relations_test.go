package mapper

import (
	"context"
	"testing"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/infra/persistence/memory"
	"ModelMapper/internal/orm/port"
)

func linkPairs(rows []port.Row) map[[2]int64]int {
	out := make(map[[2]int64]int)
	for _, row := range rows {
		l, _ := entity.ToInt(row["uid_local"])
		f, _ := entity.ToInt(row["uid_foreign"])
		out[[2]int64{l, f}]++
	}
	return out
}

func TestSave_关联关系只写一行关联记录(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)

	b := entity.New(tagSchema)
	_ = entity.Set(b, tName, "go")
	if err := reg.MustGet(typeTag).Save(ctx, b); err != nil {
		t.Fatalf("保存 tag 失败: %v", err)
	}
	a := entity.New(articleSchema)
	_ = entity.Set(a, aTags, entity.NewCollection(b))
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	rows := st.Rows(articleTagMM)
	if len(rows) != 1 {
		t.Fatalf("期望恰好一行关联记录, got=%v", rows)
	}
	if linkPairs(rows)[[2]int64{int64(a.UID()), int64(b.UID())}] != 1 {
		t.Fatalf("期望关联 a->b, got=%v", rows)
	}
	// 再保存一次不应重复写
	a.MarkDirty()
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if rows := st.Rows(articleTagMM); len(rows) != 1 {
		t.Fatalf("期望仍然只有一行, got=%v", rows)
	}
}

func TestSave_mm关系按差集增删(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)

	t1, t2 := entity.New(tagSchema), entity.New(tagSchema)
	a := entity.New(articleSchema)
	_ = entity.Set(a, aTags, entity.NewCollection(t1, t2))
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	uid := a.UID()

	reg.Purge()
	dm = reg.MustGet(typeArticle)
	again, _ := dm.Find(ctx, uid)
	tags, err := entity.Get(ctx, again, aTags)
	if err != nil || tags.Count() != 2 {
		t.Fatalf("期望解析出 2 个 tag, got=%d err=%v", tags.Count(), err)
	}
	removed := tags.First()
	tags.Remove(removed)
	t3 := entity.New(tagSchema)
	tags.Add(t3)
	if !again.IsDirty() {
		t.Fatalf("期望改集合后模型变脏")
	}
	if err := dm.Save(ctx, again); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	pairs := linkPairs(st.Rows(articleTagMM))
	if len(pairs) != 2 {
		t.Fatalf("期望 2 行, got=%v", pairs)
	}
	if pairs[[2]int64{int64(uid), int64(removed.UID())}] != 0 {
		t.Fatalf("期望被移除的关联被删除, got=%v", pairs)
	}
	if pairs[[2]int64{int64(uid), int64(t3.UID())}] != 1 {
		t.Fatalf("期望新关联被插入, got=%v", pairs)
	}
}

func TestSave_双向关系从反向一侧写入(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)

	a := entity.New(articleSchema)
	tag := entity.New(tagSchema)
	_ = entity.Set(a, aTags, entity.NewCollection(tag))
	if err := reg.MustGet(typeArticle).Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	reg.Purge()
	tagAgain, _ := reg.MustGet(typeTag).Find(ctx, tag.UID())
	articles, err := entity.Get(ctx, tagAgain, tArticles)
	if err != nil || articles.Count() != 1 || articles.First().UID() != a.UID() {
		t.Fatalf("期望从反向一侧解析到文章, got=%v err=%v", articles.Models(), err)
	}

	b := entity.New(articleSchema)
	_ = entity.Set(b, aTitle, "b")
	articles.Add(b)
	if err := reg.MustGet(typeTag).Save(ctx, tagAgain); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	pairs := linkPairs(st.Rows(articleTagMM))
	if len(pairs) != 2 || pairs[[2]int64{int64(b.UID()), int64(tag.UID())}] != 1 {
		t.Fatalf("期望写入 uid_local=文章 uid_foreign=tag 的行, got=%v", pairs)
	}

	reg.Purge()
	bAgain, _ := reg.MustGet(typeArticle).Find(ctx, b.UID())
	tags, _ := entity.Get(ctx, bAgain, aTags)
	if tags.Count() != 1 || tags.First().UID() != tag.UID() {
		t.Fatalf("期望正向一侧也能看到, got=%v", tags.Models())
	}
}

func TestSave_排序mm关系顺序变化时重写(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)

	x, y, z := entity.New(articleSchema), entity.New(articleSchema), entity.New(articleSchema)
	a := entity.New(articleSchema)
	_ = entity.Set(a, aRelated, entity.NewCollection(x, y, z))
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	related, _ := entity.Get(ctx, a, aRelated)
	related.SortBy(func(p, q *entity.Model) int { return int(q.UID()) - int(p.UID()) })
	a.MarkDirty()
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	reg.Purge()
	again, _ := reg.MustGet(typeArticle).Find(ctx, a.UID())
	got, _ := entity.Get(ctx, again, aRelated)
	want := []uint64{z.UID(), y.UID(), x.UID()}
	uids := got.UIDs()
	if len(uids) != 3 || uids[0] != want[0] || uids[1] != want[1] || uids[2] != want[2] {
		t.Fatalf("期望按 sorting 读出新顺序, got=%v want=%v", uids, want)
	}
	if rows := st.Rows(articleRelatedMM); len(rows) != 3 {
		t.Fatalf("期望仍然 3 行, got=%d", len(rows))
	}
}

func TestSave_组合关系子记录外键指向父记录(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)

	a := entity.New(articleSchema)
	comments, _ := entity.Get(ctx, a, aComments)
	for i, text := range []string{"first", "second"} {
		c := entity.New(commentSchema)
		_ = entity.Set(c, cText, text)
		_ = entity.Set(c, cSorting, int64(i+1))
		comments.Add(c)
	}
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	for _, row := range st.Rows("tx_comments") {
		if fk, _ := entity.ToUID(row["article"]); fk != a.UID() {
			t.Fatalf("期望外键=%d, got=%v", a.UID(), row["article"])
		}
	}

	reg.Purge()
	dm = reg.MustGet(typeArticle)
	again, _ := dm.Find(ctx, a.UID())
	n, err := entity.RelationCount(ctx, again, aComments)
	if err != nil || n != 2 {
		t.Fatalf("期望计数 2, got=%d err=%v", n, err)
	}
	children, _ := entity.Get(ctx, again, aComments)
	if text, _ := entity.Get(ctx, children.First(), cText); text != "first" {
		t.Fatalf("期望按 sorting 排序, got=%q", text)
	}
	parent, _ := entity.Get(ctx, children.First(), cArticle)
	if parent != again {
		t.Fatalf("期望子记录的反向引用是同一个父实例")
	}

	children.Remove(children.At(1))
	if err := dm.Save(ctx, again); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if rows := st.Rows("tx_comments"); len(rows) != 1 {
		t.Fatalf("期望被移出的子记录删除, got=%v", rows)
	}
}

func TestLoad_csv为0时关系为空(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	uid, _ := st.Insert(ctx, "fe_groups", port.Row{"title": "g", "subgroup": "0"})
	dm := newTestRegistry(st).MustGet(typeGroup)
	g, _ := dm.Find(ctx, uid)
	sub, err := entity.Get(ctx, g, gSub)
	if err != nil || !sub.IsEmpty() {
		t.Fatalf("期望空关系且不报错, got=%v err=%v", sub.Models(), err)
	}
}

func TestLoad_to_one为0时无关系(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	uid, _ := st.Insert(ctx, "tx_articles", port.Row{"title": "t", "country": 0, "deleted": 0})
	dm := newTestRegistry(st).MustGet(typeArticle)
	a, _ := dm.Find(ctx, uid)
	c, err := entity.Get(ctx, a, aCountry)
	if err != nil || c != nil {
		t.Fatalf("期望无关系, got=%v err=%v", c, err)
	}
}

func TestLoad_关系目标共享identity(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	country, _ := st.Insert(ctx, "static_countries", port.Row{"name": "DE"})
	a1, _ := st.Insert(ctx, "tx_articles", port.Row{"country": country, "deleted": 0})
	a2, _ := st.Insert(ctx, "tx_articles", port.Row{"country": country, "deleted": 0})
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)
	m1, _ := dm.Find(ctx, a1)
	m2, _ := dm.Find(ctx, a2)
	c1, _ := entity.Get(ctx, m1, aCountry)
	c2, _ := entity.Get(ctx, m2, aCountry)
	if c1 == nil || c1 != c2 {
		t.Fatalf("期望两个文章指向同一个国家实例")
	}
	if !c1.IsGhost() {
		t.Fatalf("期望关系目标不被提前加载, state=%s", c1.State())
	}
	if name, _ := entity.Get(ctx, c1, coName); name != "DE" {
		t.Fatalf("got=%q", name)
	}
}

func TestLoad_延迟关系计数不查询关联表(t *testing.T) {
	ctx := context.Background()
	st := &countingStorage{Storage: memory.NewStorage()}
	reg := newTestRegistry(st)
	a := entity.New(articleSchema)
	_ = entity.Set(a, aTags, entity.NewCollection(entity.New(tagSchema), entity.New(tagSchema)))
	if err := reg.MustGet(typeArticle).Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	reg.Purge()
	st.selects = 0

	again, _ := reg.MustGet(typeArticle).Find(ctx, a.UID())
	n, err := entity.RelationCount(ctx, again, aTags)
	if err != nil || n != 2 {
		t.Fatalf("期望计数 2, got=%d err=%v", n, err)
	}
	if st.selects != 0 {
		t.Fatalf("期望不查询关联表, selects=%d", st.selects)
	}
	tags, _ := entity.Get(ctx, again, aTags)
	if tags.Count() != 2 || st.selects != 1 {
		t.Fatalf("期望第一次访问时查询一次, count=%d selects=%d", tags.Count(), st.selects)
	}
}

func TestSave_互相引用的新模型都能落库(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	a, b := entity.New(groupSchema), entity.New(groupSchema)
	_ = entity.Set(a, gTitle, "a")
	_ = entity.Set(b, gTitle, "b")
	_ = entity.Set(a, gSub, entity.NewCollection(b))
	_ = entity.Set(b, gSub, entity.NewCollection(a))
	if err := reg.MustGet(typeGroup).Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if !a.HasUID() || !b.HasUID() || a.IsDirty() || b.IsDirty() {
		t.Fatalf("期望两个都落库, a=%v b=%v", a, b)
	}

	reg.Purge()
	again, _ := reg.MustGet(typeGroup).Find(ctx, a.UID())
	all, err := entity.Closure(ctx, again, gSub)
	if err != nil || len(all) != 2 {
		t.Fatalf("期望闭包 2 个节点, got=%v err=%v", all, err)
	}
	bAgain, _ := reg.MustGet(typeGroup).Find(ctx, b.UID())
	sub, _ := entity.Get(ctx, bAgain, gSub)
	if sub.First() != again {
		t.Fatalf("期望 b 的 subgroup 补写成 a 的 uid, got=%v", sub.Models())
	}
}

func TestClone_保存后得到独立的子记录(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	reg := newTestRegistry(st)
	dm := reg.MustGet(typeArticle)

	tag := entity.New(tagSchema)
	a := entity.New(articleSchema)
	_ = entity.Set(a, aTitle, "orig")
	_ = entity.Set(a, aTags, entity.NewCollection(tag))
	comments, _ := entity.Get(ctx, a, aComments)
	c := entity.New(commentSchema)
	_ = entity.Set(c, cText, "hello")
	comments.Add(c)
	if err := dm.Save(ctx, a); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	clone, err := entity.Clone(ctx, a)
	if err != nil {
		t.Fatalf("Clone 失败: %v", err)
	}
	if err := dm.Save(ctx, clone); err != nil {
		t.Fatalf("保存副本失败: %v", err)
	}
	if clone.UID() == a.UID() || !clone.HasUID() {
		t.Fatalf("期望副本有新 uid, got=%d", clone.UID())
	}
	if rows := st.Rows("tx_comments"); len(rows) != 2 {
		t.Fatalf("期望子记录被复制, got=%v", rows)
	}
	pairs := linkPairs(st.Rows(articleTagMM))
	if pairs[[2]int64{int64(clone.UID()), int64(tag.UID())}] != 1 {
		t.Fatalf("期望副本共享同一个 tag, got=%v", pairs)
	}
	if rows := st.Rows("tx_tags"); len(rows) != 1 {
		t.Fatalf("期望 tag 不被复制, got=%d", len(rows))
	}
}
