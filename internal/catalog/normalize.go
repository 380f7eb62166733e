package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"slicemeow/pkg/models"
)

// Shape is the content shape a resource writes.
type Shape int

const (
	ShapeMovie Shape = iota
	ShapeSeries
)

func (s Shape) String() string {
	if s == ShapeSeries {
		return "series"
	}
	return "movie"
}

// Release years outside this range are rejected.
const (
	MinReleaseYear = 1800
	MaxReleaseYear = 9999
)

type DescriptionAlias int

const (
	PreferDescription DescriptionAlias = iota // description ?? synopsis
	PreferSynopsis                            // synopsis ?? description
)

type GenreAlias int

const (
	PreferGenre  GenreAlias = iota // genre ?? genres
	PreferGenres                   // genres ?? genre
)

// Aliases decides which spelling wins when a client sends both.
// The first defined value wins; values are never merged.
type Aliases struct {
	Description DescriptionAlias
	Genres      GenreAlias
}

// Alias priority per resource. The movie admin form sends "genre", the
// series form sends "genres".
var (
	MovieAliases  = Aliases{Description: PreferDescription, Genres: PreferGenre}
	SeriesAliases = Aliases{Description: PreferDescription, Genres: PreferGenres}
)

// StringList accepts either a JSON array of strings or a comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = strings.Split(s, ",")
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*l = arr
	return nil
}

// Input is the loosely typed body of a create or update call. Every
// accepted spelling has its own field; nil means "not supplied".
type Input struct {
	ID            *string                `json:"id"`
	Title         *string                `json:"title"`
	TitleNative   *string                `json:"titleNative"`
	TitleJapanese *string                `json:"titleJapanese"`
	Description   *string                `json:"description"`
	Synopsis      *string                `json:"synopsis"`
	Genre         *StringList            `json:"genre"`
	Genres        *StringList            `json:"genres"`
	Type          *string                `json:"type"`
	Status        *string                `json:"status"`
	ReleaseYear   json.RawMessage        `json:"releaseYear"`
	Rating        json.RawMessage        `json:"rating"`
	Duration      *string                `json:"duration"`
	PosterImage   *string                `json:"posterImage"`
	Image         *string                `json:"image"`
	BannerImage   *string                `json:"bannerImage"`
	VideoURL      *string                `json:"videoUrl"`
	ExternalLinks *[]models.ExternalLink `json:"externalLinks"`
	Seasons       *[]models.Season       `json:"seasons"`
	ShowInHero    *bool                  `json:"showInHero"`
	IsFeatured    *bool                  `json:"isFeatured"`
}

// Toggle is the body of the narrow PATCH path.
type Toggle struct {
	ID         *string `json:"id"`
	ShowInHero *bool   `json:"showInHero"`
	IsFeatured *bool   `json:"isFeatured"`
}

// Normalizer turns client input into canonical records for one resource.
type Normalizer struct {
	Shape   Shape
	Aliases Aliases
}

func NewMovieNormalizer() Normalizer {
	return Normalizer{Shape: ShapeMovie, Aliases: MovieAliases}
}

func NewSeriesNormalizer() Normalizer {
	return Normalizer{Shape: ShapeSeries, Aliases: SeriesAliases}
}

// Create builds a complete record. Id and timestamps are left for the store.
func (n Normalizer) Create(in Input) (models.CatalogRecord, error) {
	rec := models.CatalogRecord{ShowInHero: true}

	title := trimPtr(in.Title)
	if title == "" {
		return rec, invalid("title required")
	}
	rec.Title = title
	rec.TitleNative = trimPtr(firstString(in.TitleNative, in.TitleJapanese))
	rec.Description = trimPtr(n.description(in))
	rec.Genres = cleanTags(n.genres(in))

	kind, err := n.kind(in.Type)
	if err != nil {
		return rec, err
	}
	rec.Kind = kind

	if in.Status != nil {
		st, err := parseStatus(*in.Status)
		if err != nil {
			return rec, err
		}
		rec.Status = st
	}

	if rec.ReleaseYear, err = parseYear(in.ReleaseYear); err != nil {
		return rec, err
	}
	if rec.Rating, err = parseRating(in.Rating); err != nil {
		return rec, err
	}

	rec.Duration = trimPtr(in.Duration)
	rec.PosterImage = trimPtr(firstString(in.PosterImage, in.Image))
	rec.BannerImage = trimPtr(in.BannerImage)
	rec.VideoURL = trimPtr(in.VideoURL)
	if in.ExternalLinks != nil {
		rec.ExternalLinks = cleanLinks(*in.ExternalLinks)
	}

	if b := firstBool(in.ShowInHero, in.IsFeatured); b != nil {
		rec.ShowInHero = *b
	}

	switch n.Shape {
	case ShapeSeries:
		rec.Format = models.FormatEpisodic
		if in.Seasons != nil {
			seasons, err := cleanSeasons(*in.Seasons)
			if err != nil {
				return rec, err
			}
			rec.Seasons = seasons
		}
	default:
		rec.Format = models.FormatStandalone
		rec.Seasons = nil
	}

	rec.EnsureSlices()
	return rec, nil
}

// Update builds a partial patch: only supplied fields are set. The
// format/seasons pair is re-derived whenever the type is re-submitted.
func (n Normalizer) Update(in Input) (models.RecordPatch, error) {
	var p models.RecordPatch

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return p, invalid("title required")
		}
		p.Title = &title
	}
	if s := firstString(in.TitleNative, in.TitleJapanese); s != nil {
		p.TitleNative = strPtr(strings.TrimSpace(*s))
	}
	if s := n.description(in); s != nil {
		p.Description = strPtr(strings.TrimSpace(*s))
	}
	if g := n.genres(in); g != nil {
		tags := cleanTags(g)
		p.Genres = &tags
	}

	if in.Type != nil {
		kind, err := n.kind(in.Type)
		if err != nil {
			return p, err
		}
		p.Kind = &kind
		format := models.FormatStandalone
		if n.Shape == ShapeSeries {
			format = models.FormatEpisodic
		}
		p.Format = &format
		if n.Shape == ShapeMovie {
			empty := []models.Season{}
			p.Seasons = &empty
		}
	}

	if in.Status != nil {
		st, err := parseStatus(*in.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}

	year, err := parseYear(in.ReleaseYear)
	if err != nil {
		return p, err
	}
	p.ReleaseYear = year
	rating, err := parseRating(in.Rating)
	if err != nil {
		return p, err
	}
	p.Rating = rating

	if in.Duration != nil {
		p.Duration = strPtr(strings.TrimSpace(*in.Duration))
	}
	if s := firstString(in.PosterImage, in.Image); s != nil {
		p.PosterImage = strPtr(strings.TrimSpace(*s))
	}
	if in.BannerImage != nil {
		p.BannerImage = strPtr(strings.TrimSpace(*in.BannerImage))
	}
	if in.VideoURL != nil {
		p.VideoURL = strPtr(strings.TrimSpace(*in.VideoURL))
	}
	if in.ExternalLinks != nil {
		links := cleanLinks(*in.ExternalLinks)
		p.ExternalLinks = &links
	}

	if in.Seasons != nil {
		seasons := []models.Season{}
		if n.Shape == ShapeSeries {
			if seasons, err = cleanSeasons(*in.Seasons); err != nil {
				return p, err
			}
		}
		p.Seasons = &seasons
	}

	p.ShowInHero = firstBool(in.ShowInHero, in.IsFeatured)
	return p, nil
}

// Patch validates a toggle body. It never produces anything but the
// carousel flag; isFeatured is the legacy spelling of showInHero.
func (t Toggle) Patch() (models.RecordPatch, error) {
	b := firstBool(t.ShowInHero, t.IsFeatured)
	if b == nil {
		return models.RecordPatch{}, invalid("no valid fields")
	}
	v := *b
	return models.RecordPatch{ShowInHero: &v}, nil
}

func (n Normalizer) description(in Input) *string {
	if n.Aliases.Description == PreferSynopsis {
		return firstString(in.Synopsis, in.Description)
	}
	return firstString(in.Description, in.Synopsis)
}

func (n Normalizer) genres(in Input) []string {
	first, second := in.Genre, in.Genres
	if n.Aliases.Genres == PreferGenres {
		first, second = in.Genres, in.Genre
	}
	if first != nil {
		return nonNil(*first)
	}
	if second != nil {
		return nonNil(*second)
	}
	return nil
}

func (n Normalizer) kind(raw *string) (models.Kind, error) {
	def := models.KindMovie
	if n.Shape == ShapeSeries {
		def = models.KindTV
	}
	s := trimPtr(raw)
	if s == "" {
		return def, nil
	}
	k := models.Kind(s)
	if !k.Valid() {
		return "", invalid("invalid type")
	}
	if n.Shape == ShapeSeries && k == models.KindMovie {
		return models.KindTV, nil
	}
	return k, nil
}

func parseStatus(s string) (models.Status, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	st := models.Status(s)
	if !st.Valid() {
		return "", invalid("invalid status")
	}
	return st, nil
}

// rawScalar unwraps a JSON number or string. ok is false for absent,
// null and blank values.
func rawScalar(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(raw), true, nil
}

func parseYear(raw json.RawMessage) (*int, error) {
	s, ok, err := rawScalar(raw)
	if err != nil {
		return nil, invalid("invalid releaseYear")
	}
	if !ok {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < MinReleaseYear || n > MaxReleaseYear {
			return nil, invalid("invalid releaseYear")
		}
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < MinReleaseYear || f > MaxReleaseYear {
		return nil, invalid("invalid releaseYear")
	}
	n := int(f)
	return &n, nil
}

func parseRating(raw json.RawMessage) (*float64, error) {
	s, ok, err := rawScalar(raw)
	if err != nil {
		return nil, invalid("invalid rating")
	}
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid("invalid rating")
	}
	return &f, nil
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func cleanLinks(in []models.ExternalLink) []models.ExternalLink {
	out := make([]models.ExternalLink, 0, len(in))
	for _, l := range in {
		l.Platform = strings.TrimSpace(l.Platform)
		l.URL = strings.TrimSpace(l.URL)
		if l.URL == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func cleanSeasons(in []models.Season) ([]models.Season, error) {
	out := make([]models.Season, 0, len(in))
	seen := make(map[int]struct{}, len(in))
	for _, s := range in {
		if s.SeasonNumber <= 0 {
			return nil, invalid("invalid season")
		}
		if _, dup := seen[s.SeasonNumber]; dup {
			return nil, invalid("duplicate season")
		}
		seen[s.SeasonNumber] = struct{}{}

		eps := make([]models.Episode, 0, len(s.Episodes))
		for _, e := range s.Episodes {
			if e.Number <= 0 {
				return nil, invalid("invalid episode")
			}
			e.Title = strings.TrimSpace(e.Title)
			e.StreamingURL = strings.TrimSpace(e.StreamingURL)
			eps = append(eps, e)
		}
		out = append(out, models.Season{SeasonNumber: s.SeasonNumber, Episodes: eps})
	}
	return out, nil
}

func firstString(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			b := *v
			return &b
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func strPtr(s string) *string { return &s }
