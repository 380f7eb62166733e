package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSlices(t *testing.T) {
	r := CatalogRecord{Seasons: []Season{{SeasonNumber: 1}}}
	r.EnsureSlices()
	assert.NotNil(t, r.Genres)
	assert.NotNil(t, r.ExternalLinks)
	assert.NotNil(t, r.Seasons[0].Episodes)
}

func TestEpisodeCount(t *testing.T) {
	r := CatalogRecord{Seasons: []Season{
		{SeasonNumber: 1, Episodes: []Episode{{Number: 1}, {Number: 2}}},
		{SeasonNumber: 2, Episodes: []Episode{{Number: 1}}},
	}}
	assert.Equal(t, 3, r.EpisodeCount())
}

func TestPatchApplyTouchesOnlySetFields(t *testing.T) {
	year := 1999
	r := CatalogRecord{Title: "Old", Description: "keep", Genres: []string{"A"}, ReleaseYear: &year, ShowInHero: true}

	title := "New"
	hidden := false
	genres := []string{"B", "C"}
	p := RecordPatch{Title: &title, ShowInHero: &hidden, Genres: &genres}
	p.Apply(&r)

	assert.Equal(t, "New", r.Title)
	assert.Equal(t, "keep", r.Description)
	assert.Equal(t, []string{"B", "C"}, r.Genres)
	assert.Equal(t, 1999, *r.ReleaseYear)
	assert.False(t, r.ShowInHero)

	genres[0] = "mutated"
	assert.Equal(t, "B", r.Genres[0])
}

func TestPatchFields(t *testing.T) {
	assert.True(t, RecordPatch{}.Empty())

	kind := KindOVA
	rating := 7.5
	f := RecordPatch{Kind: &kind, Rating: &rating}.Fields()
	assert.Equal(t, map[string]any{"type": KindOVA, "rating": 7.5}, f)
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, KindTVShort.Valid())
	assert.False(t, Kind("Movies").Valid())
	assert.True(t, StatusHiatus.Valid())
	assert.False(t, Status("Paused").Valid())
	assert.True(t, CollectionWebSeries.Valid())
	assert.False(t, Collection("verification").Valid())
}
