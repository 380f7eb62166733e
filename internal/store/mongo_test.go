package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/pkg/models"
)

func TestIDFilter(t *testing.T) {
	assert.Equal(t, bson.M{"_id": "not-hex"}, idFilter("not-hex"))

	hex := "64b7f0c2a1b2c3d4e5f60718"
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{hex, oid}}}, idFilter(hex))
}

func TestVerificationDocDefaultsRole(t *testing.T) {
	u := verificationDoc{Email: "a@b.c", Password: "x"}.user()
	assert.Equal(t, auth.RoleUser, u.Role)
}

// Runs against a live server when SLICEMEOW_TEST_MONGO_URI is set.
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("SLICEMEOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SLICEMEOW_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := OpenMongo(ctx, uri, "slicemeow_test_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.DB.Drop(context.Background())
		_ = m.Close()
	})

	rec, err := m.Create(ctx, models.CollectionMovies, movie("Mongo"))
	require.NoError(t, err)

	off := false
	got, err := m.Update(ctx, models.CollectionMovies, rec.ID, models.RecordPatch{ShowInHero: &off})
	require.NoError(t, err)
	assert.False(t, got.ShowInHero)
	assert.Equal(t, "Mongo", got.Title)

	// documents written before ids became strings
	oid := primitive.NewObjectID()
	_, err = m.coll(models.CollectionMovies).InsertOne(ctx, bson.M{
		"_id": oid, "title": "Old", "isFeatured": true,
		"image": "old.jpg", "genre": bson.A{"Drama"}, "format": "Episodic",
	})
	require.NoError(t, err)

	n, err := m.MigrateLegacyFields(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	old, err := m.Get(ctx, models.CollectionMovies, oid.Hex())
	require.NoError(t, err)
	assert.True(t, old.ShowInHero)
	assert.Equal(t, "old.jpg", old.PosterImage)
	assert.Equal(t, []string{"Drama"}, old.Genres)
	assert.Equal(t, models.FormatStandalone, old.Format)
	assert.Equal(t, oid.Hex(), old.ID)

	page, err := m.List(ctx, models.CollectionMovies, catalog.ListQuery{Sort: catalog.SortTitle})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	require.NoError(t, m.Delete(ctx, models.CollectionMovies, oid.Hex()))
	assert.ErrorIs(t, m.Delete(ctx, models.CollectionMovies, oid.Hex()), catalog.ErrNotFound)

	require.NoError(t, m.UpsertUser(ctx, auth.User{Email: "Admin@x.io", PasswordHash: "h", Role: auth.RoleAdmin}))
	u, err := m.GetByEmail(ctx, "admin@x.io")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, auth.RoleAdmin, u.Role)
}
