package models

import "time"

// Kind is the broadcast/release type of a title.
type Kind string

const (
	KindTV      Kind = "TV"
	KindTVShort Kind = "TV_Short"
	KindMovie   Kind = "Movie"
	KindOVA     Kind = "OVA"
	KindONA     Kind = "ONA"
	KindSpecial Kind = "Special"
	KindMusic   Kind = "Music"
)

var kinds = map[Kind]struct{}{
	KindTV: {}, KindTVShort: {}, KindMovie: {}, KindOVA: {},
	KindONA: {}, KindSpecial: {}, KindMusic: {},
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Format separates single films from seasoned shows.
// A Standalone record never carries seasons.
type Format string

const (
	FormatStandalone Format = "Standalone"
	FormatEpisodic   Format = "Episodic"
)

type Status string

const (
	StatusOngoing   Status = "Ongoing"
	StatusCompleted Status = "Completed"
	StatusUpcoming  Status = "Upcoming"
	StatusHiatus    Status = "Hiatus"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusUpcoming, StatusHiatus:
		return true
	}
	return false
}

// Collection names the physical collection a record lives in.
type Collection string

const (
	CollectionMovies    Collection = "movies"
	CollectionWebSeries Collection = "webseries"
)

func (c Collection) Valid() bool {
	return c == CollectionMovies || c == CollectionWebSeries
}

type ExternalLink struct {
	Platform string `json:"platform" bson:"platform"`
	URL      string `json:"url" bson:"url"`
}

type Episode struct {
	Number       int    `json:"number" bson:"number"`
	Title        string `json:"title" bson:"title"`
	StreamingURL string `json:"streamingUrl,omitempty" bson:"streamingUrl,omitempty"`
}

type Season struct {
	SeasonNumber int       `json:"seasonNumber" bson:"seasonNumber"`
	Episodes     []Episode `json:"episodes" bson:"episodes"`
}

// CatalogRecord is the document shared by movies and web series.
type CatalogRecord struct {
	ID            string         `json:"id" bson:"_id"`
	Title         string         `json:"title" bson:"title"`
	TitleNative   string         `json:"titleNative,omitempty" bson:"titleNative,omitempty"`
	Description   string         `json:"description" bson:"description"`
	Genres        []string       `json:"genres" bson:"genres"`
	Kind          Kind           `json:"type" bson:"type"`
	Format        Format         `json:"format" bson:"format"`
	Status        Status         `json:"status,omitempty" bson:"status,omitempty"`
	ReleaseYear   *int           `json:"releaseYear,omitempty" bson:"releaseYear,omitempty"`
	Rating        *float64       `json:"rating,omitempty" bson:"rating,omitempty"`
	Duration      string         `json:"duration,omitempty" bson:"duration,omitempty"`
	PosterImage   string         `json:"posterImage,omitempty" bson:"posterImage,omitempty"`
	BannerImage   string         `json:"bannerImage,omitempty" bson:"bannerImage,omitempty"`
	VideoURL      string         `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
	ExternalLinks []ExternalLink `json:"externalLinks" bson:"externalLinks"`
	Seasons       []Season       `json:"seasons" bson:"seasons"`
	ShowInHero    bool           `json:"showInHero" bson:"showInHero"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// EnsureSlices replaces nil slices with empty ones so JSON renders [] rather than null.
func (r *CatalogRecord) EnsureSlices() {
	if r.Genres == nil {
		r.Genres = []string{}
	}
	if r.ExternalLinks == nil {
		r.ExternalLinks = []ExternalLink{}
	}
	if r.Seasons == nil {
		r.Seasons = []Season{}
	}
	for i := range r.Seasons {
		if r.Seasons[i].Episodes == nil {
			r.Seasons[i].Episodes = []Episode{}
		}
	}
}

// EpisodeCount sums episodes across all seasons.
func (r CatalogRecord) EpisodeCount() int {
	n := 0
	for _, s := range r.Seasons {
		n += len(s.Episodes)
	}
	return n
}
