package mapper

import (
	"context"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/port"
)

const (
	typeArticle entity.Type = "article"
	typeTag     entity.Type = "tag"
	typeComment entity.Type = "comment"
	typeGroup   entity.Type = "group"
	typeCountry entity.Type = "country"

	articleTagMM     = "tx_article_tag_mm"
	articleRelatedMM = "tx_article_related_mm"
)

var (
	aTitle    = entity.String("title")
	aScore    = entity.Int("score")
	aRating   = entity.Float("rating")
	aHidden   = entity.Bool("hidden")
	aCountry  = entity.ToOne("country", typeCountry)
	aTags     = entity.MM("tags", typeTag, articleTagMM)
	aRelated  = entity.MM("related", typeArticle, articleRelatedMM, entity.Sorted())
	aComments = entity.Composition("comments", typeComment, "article", entity.SortBy("sorting"))

	tName     = entity.String("name")
	tArticles = entity.MM("articles", typeArticle, articleTagMM, entity.OppositeField("tags"))

	cText    = entity.String("text")
	cSorting = entity.Int("sorting")
	cArticle = entity.ToOne("article", typeArticle)

	gTitle = entity.String("title")
	gSub   = entity.CSV("subgroup", typeGroup)

	coName = entity.String("name")

	articleSchema = entity.NewSchema(typeArticle, "tx_articles",
		aTitle, aScore, aRating, aHidden, aCountry, aTags, aRelated, aComments,
	).WithDeletedColumn("deleted")
	tagSchema     = entity.NewSchema(typeTag, "tx_tags", tName, tArticles)
	commentSchema = entity.NewSchema(typeComment, "tx_comments", cText, cSorting, cArticle)
	groupSchema   = entity.NewSchema(typeGroup, "fe_groups", gTitle, gSub)
	countrySchema = entity.NewSchema(typeCountry, "static_countries", coName).AsReadOnly()
)

func newTestRegistry(st port.Storage, opts ...Option) *Registry {
	return NewRegistry(st, opts...).Register(articleSchema, tagSchema, commentSchema, groupSchema, countrySchema)
}

// countingStorage 统计存储调用次数，用来断言“不访问存储”。
type countingStorage struct {
	port.Storage
	finds   int
	selects int
}

func (c *countingStorage) Find(ctx context.Context, table string, uid uint64, where port.Where) (port.Row, error) {
	c.finds++
	return c.Storage.Find(ctx, table, uid, where)
}

func (c *countingStorage) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	c.selects++
	return c.Storage.Select(ctx, q)
}

type fakeCollaborator struct {
	next    uint64
	tracked map[string][]uint64
}

func newFakeCollaborator(start uint64) *fakeCollaborator {
	return &fakeCollaborator{next: start, tracked: make(map[string][]uint64)}
}

func (f *fakeCollaborator) ReserveUID(context.Context, string) (uint64, error) {
	f.next++
	return f.next, nil
}

func (f *fakeCollaborator) Track(table string, uid uint64) {
	f.tracked[table] = append(f.tracked[table], uid)
}
