package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"slicemeow/pkg/models"
)

var csvHeader = []string{
	"id", "title", "titleNative", "description", "genres", "type", "format",
	"status", "releaseYear", "rating", "duration", "posterImage", "bannerImage",
	"videoUrl", "showInHero", "episodes", "createdAt", "seasons",
}

// genres are joined with '|' so commas stay free for descriptions
const genreSep = "|"

// ExportCSV pages through coll and writes one row per record.
func ExportCSV(ctx context.Context, store Store, coll models.Collection, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	n := 0
	for offset := 0; ; offset += MaxLimit {
		page, err := store.List(ctx, coll, ListQuery{Limit: MaxLimit, Offset: offset})
		if err != nil {
			return n, err
		}
		for _, r := range page.Items {
			if err := w.Write(csvRow(r)); err != nil {
				return n, err
			}
			n++
		}
		if len(page.Items) < MaxLimit {
			break
		}
	}

	w.Flush()
	return n, w.Error()
}

func csvRow(r models.CatalogRecord) []string {
	year, rating := "", ""
	if r.ReleaseYear != nil {
		year = strconv.Itoa(*r.ReleaseYear)
	}
	if r.Rating != nil {
		rating = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
	}
	return []string{
		r.ID,
		r.Title,
		r.TitleNative,
		r.Description,
		strings.Join(r.Genres, genreSep),
		string(r.Kind),
		string(r.Format),
		string(r.Status),
		year,
		rating,
		r.Duration,
		r.PosterImage,
		r.BannerImage,
		r.VideoURL,
		strconv.FormatBool(r.ShowInHero),
		strconv.Itoa(r.EpisodeCount()),
		r.CreatedAt.UTC().Format(time.RFC3339),
		seasonsJSON(r.Seasons),
	}
}

// seasonsJSON keeps the episode tree in a single cell.
func seasonsJSON(seasons []models.Season) string {
	if len(seasons) == 0 {
		return ""
	}
	b, err := json.Marshal(seasons)
	if err != nil {
		return ""
	}
	return string(b)
}

// ImportResult counts imported rows and the rows rejected by validation.
type ImportResult struct {
	Imported int
	Skipped  []string
}

// ImportCSV creates one record per row through the resource normalizer.
// Ids in the file are ignored; rows failing validation are skipped and
// reported, store errors abort the import.
func ImportCSV(ctx context.Context, store Store, res Resource, in io.Reader) (ImportResult, error) {
	var out ImportResult

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return out, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		line++

		rec, err := rowRecord(res.Normalizer, idx, row)
		if err != nil {
			out.Skipped = append(out.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if _, err := store.Create(ctx, res.Collection, rec); err != nil {
			return out, err
		}
		out.Imported++
	}
	return out, nil
}

func rowRecord(n Normalizer, idx map[string]int, row []string) (models.CatalogRecord, error) {
	in, err := csvInput(idx, row)
	if err != nil {
		return models.CatalogRecord{}, err
	}
	return n.Create(in)
}

func csvInput(idx map[string]int, row []string) (Input, error) {
	get := func(name string) *string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return nil
		}
		v := row[i]
		return &v
	}
	raw := func(name string) json.RawMessage {
		v := get(name)
		if v == nil {
			return nil
		}
		b, _ := json.Marshal(*v)
		return b
	}

	in := Input{
		Title:       get("title"),
		TitleNative: get("titleNative"),
		Description: get("description"),
		Type:        get("type"),
		ReleaseYear: raw("releaseYear"),
		Rating:      raw("rating"),
		Duration:    get("duration"),
		PosterImage: get("posterImage"),
		BannerImage: get("bannerImage"),
		VideoURL:    get("videoUrl"),
	}
	if s := get("status"); s != nil && strings.TrimSpace(*s) != "" {
		in.Status = s
	}
	if s := get("genres"); s != nil {
		g := StringList(strings.Split(*s, genreSep))
		in.Genres = &g
	}
	if s := get("showInHero"); s != nil {
		if b, err := strconv.ParseBool(strings.TrimSpace(*s)); err == nil {
			in.ShowInHero = &b
		}
	}
	if s := get("seasons"); s != nil && strings.TrimSpace(*s) != "" {
		var seasons []models.Season
		if err := json.Unmarshal([]byte(*s), &seasons); err != nil {
			return in, invalid("invalid seasons")
		}
		in.Seasons = &seasons
	}
	return in, nil
}
