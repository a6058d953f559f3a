package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/errs"
	"ModelMapper/internal/orm/port"
)

const (
	OpFind       = "storage.mongo.Find"
	OpSelect     = "storage.mongo.Select"
	OpCount      = "storage.mongo.Count"
	OpInsert     = "storage.mongo.Insert"
	OpUpdate     = "storage.mongo.Update"
	OpDelete     = "storage.mongo.Delete"
	OpInsertLink = "storage.mongo.InsertLink"
	OpMaxUID     = "storage.mongo.MaxUID"

	// CountersCollection 保存每张表的自增序号：{_id: 表名, seq: 当前最大 uid}。
	CountersCollection = "mapper_counters"
)

// Storage 一张表对应一个集合。实体文档的 _id 与 uid 相同；mm 关联文档用驱动生成的 ObjectID。
type Storage struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Find(ctx context.Context, table string, uid uint64, where port.Where) (port.Row, error) {
	filter := toFilter(where)
	filter[port.UIDColumn] = int64(uid)
	var doc bson.M
	if err := s.db.Collection(table).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, port.ErrNoRow
		}
		return nil, errs.Wrap(OpFind, errs.KindInfra, err, map[string]any{"table": table, "uid": uid})
	}
	return toRow(doc), nil
}

func (s *Storage) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: 1}, {Key: "_id", Value: 1}})
	}
	meta := map[string]any{"table": q.Table, "order_by": q.OrderBy}
	cur, err := s.db.Collection(q.Table).Find(ctx, toFilter(q.Where), opts)
	if err != nil {
		return nil, errs.Wrap(OpSelect, errs.KindInfra, err, meta)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(OpSelect, errs.KindCodec, err, meta)
	}
	out := make([]port.Row, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toRow(doc))
	}
	return out, nil
}

func (s *Storage) Count(ctx context.Context, q port.Query) (int, error) {
	n, err := s.db.Collection(q.Table).CountDocuments(ctx, toFilter(q.Where))
	if err != nil {
		return 0, errs.Wrap(OpCount, errs.KindInfra, err, map[string]any{"table": q.Table})
	}
	return int(n), nil
}

// Insert 没带 uid 时从计数器取下一个；带 uid 时把计数器推到不小于它，后续自增不会撞号。
func (s *Storage) Insert(ctx context.Context, table string, row port.Row) (uint64, error) {
	meta := map[string]any{"table": table}
	uid, _ := entity.ToUID(row[port.UIDColumn])
	var err error
	if uid == 0 {
		uid, err = s.nextSeq(ctx, table)
	} else {
		err = s.raiseSeq(ctx, table, uid)
	}
	if err != nil {
		return 0, errs.Wrap(OpInsert, errs.KindInfra, err, meta)
	}
	doc := toFilter(port.Where(row))
	doc["_id"] = int64(uid)
	doc[port.UIDColumn] = int64(uid)
	if _, err := s.db.Collection(table).InsertOne(ctx, doc); err != nil {
		meta["uid"] = uid
		return 0, errs.Wrap(OpInsert, errs.KindInfra, err, meta)
	}
	return uid, nil
}

func (s *Storage) Update(ctx context.Context, table string, uid uint64, row port.Row) error {
	meta := map[string]any{"table": table, "uid": uid}
	set := toFilter(port.Where(row))
	delete(set, port.UIDColumn)
	delete(set, "_id")
	filter := bson.M{port.UIDColumn: int64(uid)}
	if len(set) == 0 {
		n, err := s.db.Collection(table).CountDocuments(ctx, filter)
		if err != nil {
			return errs.Wrap(OpUpdate, errs.KindInfra, err, meta)
		}
		if n == 0 {
			return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, meta)
		}
		return nil
	}
	res, err := s.db.Collection(table).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return errs.Wrap(OpUpdate, errs.KindInfra, err, meta)
	}
	if res.MatchedCount == 0 {
		return errs.Wrap(OpUpdate, errs.KindInfra, port.ErrNoRow, meta)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, table string, where port.Where) (int64, error) {
	res, err := s.db.Collection(table).DeleteMany(ctx, toFilter(where))
	if err != nil {
		return 0, errs.Wrap(OpDelete, errs.KindInfra, err, map[string]any{"table": table})
	}
	return res.DeletedCount, nil
}

func (s *Storage) InsertLink(ctx context.Context, table string, row port.Row) error {
	if _, err := s.db.Collection(table).InsertOne(ctx, toFilter(port.Where(row))); err != nil {
		return errs.Wrap(OpInsertLink, errs.KindInfra, err, map[string]any{"table": table})
	}
	return nil
}

func (s *Storage) MaxUID(ctx context.Context, table string) (uint64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: port.UIDColumn, Value: -1}})
	var doc bson.M
	err := s.db.Collection(table).FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(OpMaxUID, errs.KindInfra, err, map[string]any{"table": table})
	}
	uid, _ := entity.ToUID(doc[port.UIDColumn])
	return uid, nil
}

func (s *Storage) nextSeq(ctx context.Context, table string) (uint64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(CountersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": table}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&doc)
	if err != nil {
		return 0, err
	}
	return uint64(doc.Seq), nil
}

func (s *Storage) raiseSeq(ctx context.Context, table string, uid uint64) error {
	_, err := s.db.Collection(CountersCollection).UpdateOne(ctx,
		bson.M{"_id": table},
		bson.M{"$max": bson.M{"seq": int64(uid)}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}
