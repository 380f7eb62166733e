package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/pkg/models"
)

const verificationCollection = "verification"

// Mongo stores each collection as a MongoDB collection of the same name.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	now    func() time.Time
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Mongo{
		Client: client,
		DB:     client.Database(database),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) coll(c models.Collection) *mongo.Collection {
	return m.DB.Collection(string(c))
}

// idFilter matches both string ids and the ObjectIDs of older documents.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (m *Mongo) Create(ctx context.Context, coll models.Collection, rec models.CatalogRecord) (*models.CatalogRecord, error) {
	now := m.now()
	rec.ID = primitive.NewObjectID().Hex()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.EnsureSlices()

	if _, err := m.coll(coll).InsertOne(ctx, rec); err != nil {
		return nil, catalog.WrapStoreError("insert record", err)
	}
	return &rec, nil
}

func (m *Mongo) Get(ctx context.Context, coll models.Collection, id string) (*models.CatalogRecord, error) {
	var rec models.CatalogRecord
	if err := m.coll(coll).FindOne(ctx, idFilter(id)).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, catalog.WrapStoreError("get record", err)
	}
	rec.EnsureSlices()
	return &rec, nil
}

func (m *Mongo) List(ctx context.Context, coll models.Collection, q catalog.ListQuery) (catalog.Page, error) {
	q = q.Normalized()
	page := catalog.Page{Items: []models.CatalogRecord{}, Limit: q.Limit, Offset: q.Offset}

	total, err := m.Count(ctx, coll)
	if err != nil {
		return page, err
	}
	page.Total = total

	opts := options.Find().
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	if q.Sort == catalog.SortTitle {
		opts.SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}).
			SetCollation(&options.Collation{Locale: "en", Strength: 2})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	}

	cur, err := m.coll(coll).Find(ctx, bson.M{}, opts)
	if err != nil {
		return page, catalog.WrapStoreError("list records", err)
	}
	defer cur.Close(ctx)

	var items []models.CatalogRecord
	if err := cur.All(ctx, &items); err != nil {
		return page, catalog.WrapStoreError("list decode", err)
	}
	for i := range items {
		items[i].EnsureSlices()
	}
	if items != nil {
		page.Items = items
	}
	return page, nil
}

func (m *Mongo) Update(ctx context.Context, coll models.Collection, id string, patch models.RecordPatch) (*models.CatalogRecord, error) {
	set := bson.M{}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	set["updatedAt"] = m.now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec models.CatalogRecord
	err := m.coll(coll).FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": set}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, catalog.WrapStoreError("update record", err)
	}
	rec.EnsureSlices()
	return &rec, nil
}

func (m *Mongo) Delete(ctx context.Context, coll models.Collection, id string) error {
	res, err := m.coll(coll).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return catalog.WrapStoreError("delete record", err)
	}
	if res.DeletedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (m *Mongo) Count(ctx context.Context, coll models.Collection) (int, error) {
	n, err := m.coll(coll).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, catalog.WrapStoreError("count records", err)
	}
	return int(n), nil
}

// MigrateLegacyFields rewrites documents written by the previous admin
// app into the current field layout (see upgradeLegacyDocument).
func (m *Mongo) MigrateLegacyFields(ctx context.Context) (int, error) {
	total := 0
	for _, c := range []models.Collection{models.CollectionMovies, models.CollectionWebSeries} {
		coll := m.coll(c)

		cur, err := coll.Find(ctx, legacyFilter(c))
		if err != nil {
			return total, catalog.WrapStoreError("scan legacy fields", err)
		}
		for cur.Next(ctx) {
			var doc bson.M
			if err := cur.Decode(&doc); err != nil {
				_ = cur.Close(ctx)
				return total, catalog.WrapStoreError("decode legacy document", err)
			}
			if !upgradeLegacyDocument(c, doc) {
				continue
			}
			if _, err := coll.ReplaceOne(ctx, bson.M{"_id": doc["_id"]}, doc); err != nil {
				_ = cur.Close(ctx)
				return total, catalog.WrapStoreError("rewrite legacy document", err)
			}
			total++
		}
		err = cur.Err()
		_ = cur.Close(ctx)
		if err != nil {
			return total, catalog.WrapStoreError("scan legacy fields", err)
		}
	}
	return total, nil
}

// --- admin credentials --------------------------------------------------

// verificationDoc keeps the field names of the existing verification collection.
type verificationDoc struct {
	Email     string    `bson:"useremail"`
	Password  string    `bson:"password"`
	Role      string    `bson:"userrole"`
	CreatedAt time.Time `bson:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty"`
}

func (d verificationDoc) user() auth.User {
	role := d.Role
	if role == "" {
		role = auth.RoleUser
	}
	return auth.User{
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (m *Mongo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var doc verificationDoc
	err := m.DB.Collection(verificationCollection).FindOne(ctx, bson.M{"useremail": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	u := doc.user()
	return &u, nil
}

func (m *Mongo) UpsertUser(ctx context.Context, u auth.User) error {
	now := m.now()
	_, err := m.DB.Collection(verificationCollection).UpdateOne(ctx,
		bson.M{"useremail": strings.TrimSpace(strings.ToLower(u.Email))},
		bson.M{
			"$set": bson.M{
				"password":  u.PasswordHash,
				"userrole":  u.Role,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (m *Mongo) ListUsers(ctx context.Context) ([]auth.User, error) {
	cur, err := m.DB.Collection(verificationCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "useremail", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var out []auth.User
	for cur.Next(ctx) {
		var doc verificationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("list users decode: %w", err)
		}
		out = append(out, doc.user())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor err: %w", err)
	}
	return out, nil
}

func (m *Mongo) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	res, err := m.DB.Collection(verificationCollection).UpdateOne(ctx,
		bson.M{"useremail": strings.TrimSpace(strings.ToLower(email))},
		bson.M{"$set": bson.M{"password": hash, "updatedAt": m.now()}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update password: user not found")
	}
	return nil
}
