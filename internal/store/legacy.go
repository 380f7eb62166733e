package store

import (
	"go.mongodb.org/mongo-driver/bson"

	"slicemeow/internal/catalog"
	"slicemeow/pkg/models"
)

// upgradeLegacyDocument rewrites a raw stored document into the current
// field layout and reports whether anything changed. Both backends run it:
// SQLite on decoded JSON bodies, Mongo on bson.M documents.
//
//   - isFeatured becomes showInHero; a missing flag defaults to shown
//   - image becomes posterImage, titleJapanese becomes titleNative
//   - genre and genres fold into genres by the collection's alias priority
//   - movies are Standalone with no seasons, web series are Episodic
func upgradeLegacyDocument(coll models.Collection, doc map[string]any) bool {
	changed := false

	if legacy, ok := doc["isFeatured"]; ok {
		if b, isBool := legacy.(bool); isBool {
			doc["showInHero"] = b
		}
		delete(doc, "isFeatured")
		changed = true
	}
	if _, ok := doc["showInHero"]; !ok {
		doc["showInHero"] = true
		changed = true
	}

	if renameField(doc, "image", "posterImage") {
		changed = true
	}
	if renameField(doc, "titleJapanese", "titleNative") {
		changed = true
	}

	if _, ok := doc["genre"]; ok {
		aliases := catalog.MovieAliases
		if coll == models.CollectionWebSeries {
			aliases = catalog.SeriesAliases
		}
		first, second := "genre", "genres"
		if aliases.Genres == catalog.PreferGenres {
			first, second = second, first
		}
		// stored arrays default to [], so an empty list counts as unset
		genres := listValue(doc[first])
		if len(genres) == 0 {
			genres = listValue(doc[second])
		}
		if genres == nil {
			genres = []any{}
		}
		doc["genres"] = genres
		delete(doc, "genre")
		changed = true
	}

	switch coll {
	case models.CollectionMovies:
		if doc["format"] != string(models.FormatStandalone) {
			doc["format"] = string(models.FormatStandalone)
			changed = true
		}
		if s, ok := doc["seasons"]; !ok || len(listValue(s)) > 0 {
			doc["seasons"] = []any{}
			changed = true
		}
	case models.CollectionWebSeries:
		if doc["format"] != string(models.FormatEpisodic) {
			doc["format"] = string(models.FormatEpisodic)
			changed = true
		}
	}
	return changed
}

// renameField moves from into to unless to already holds a non-empty string.
func renameField(doc map[string]any, from, to string) bool {
	v, ok := doc[from]
	if !ok {
		return false
	}
	if cur, _ := doc[to].(string); cur == "" {
		if s, isString := v.(string); isString {
			doc[to] = s
		}
	}
	delete(doc, from)
	return true
}

func listValue(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case bson.A:
		return []any(l)
	}
	return nil
}

// legacyFilter selects the Mongo documents upgradeLegacyDocument would change.
func legacyFilter(coll models.Collection) bson.M {
	exists := func(field string, yes bool) bson.M {
		return bson.M{field: bson.M{"$exists": yes}}
	}
	or := bson.A{
		exists("isFeatured", true),
		exists("showInHero", false),
		exists("image", true),
		exists("titleJapanese", true),
		exists("genre", true),
	}
	switch coll {
	case models.CollectionMovies:
		or = append(or,
			bson.M{"format": bson.M{"$ne": string(models.FormatStandalone)}},
			exists("seasons", false),
			exists("seasons.0", true))
	case models.CollectionWebSeries:
		or = append(or, bson.M{"format": bson.M{"$ne": string(models.FormatEpisodic)}})
	}
	return bson.M{"$or": or}
}
