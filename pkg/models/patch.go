package models

// RecordPatch carries the fields an update touches. Nil fields keep their stored value.
type RecordPatch struct {
	Title         *string
	TitleNative   *string
	Description   *string
	Genres        *[]string
	Kind          *Kind
	Format        *Format
	Status        *Status
	ReleaseYear   *int
	Rating        *float64
	Duration      *string
	PosterImage   *string
	BannerImage   *string
	VideoURL      *string
	ExternalLinks *[]ExternalLink
	Seasons       *[]Season
	ShowInHero    *bool
}

func (p RecordPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Apply copies every set field onto r.
func (p RecordPatch) Apply(r *CatalogRecord) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.TitleNative != nil {
		r.TitleNative = *p.TitleNative
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Genres != nil {
		r.Genres = append([]string{}, (*p.Genres)...)
	}
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.Format != nil {
		r.Format = *p.Format
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.ReleaseYear != nil {
		y := *p.ReleaseYear
		r.ReleaseYear = &y
	}
	if p.Rating != nil {
		v := *p.Rating
		r.Rating = &v
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.PosterImage != nil {
		r.PosterImage = *p.PosterImage
	}
	if p.BannerImage != nil {
		r.BannerImage = *p.BannerImage
	}
	if p.VideoURL != nil {
		r.VideoURL = *p.VideoURL
	}
	if p.ExternalLinks != nil {
		r.ExternalLinks = append([]ExternalLink{}, (*p.ExternalLinks)...)
	}
	if p.Seasons != nil {
		r.Seasons = append([]Season{}, (*p.Seasons)...)
	}
	if p.ShowInHero != nil {
		r.ShowInHero = *p.ShowInHero
	}
}

// Fields returns the set fields keyed by their stored (bson/json) names.
func (p RecordPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.TitleNative != nil {
		out["titleNative"] = *p.TitleNative
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Genres != nil {
		out["genres"] = *p.Genres
	}
	if p.Kind != nil {
		out["type"] = *p.Kind
	}
	if p.Format != nil {
		out["format"] = *p.Format
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.ReleaseYear != nil {
		out["releaseYear"] = *p.ReleaseYear
	}
	if p.Rating != nil {
		out["rating"] = *p.Rating
	}
	if p.Duration != nil {
		out["duration"] = *p.Duration
	}
	if p.PosterImage != nil {
		out["posterImage"] = *p.PosterImage
	}
	if p.BannerImage != nil {
		out["bannerImage"] = *p.BannerImage
	}
	if p.VideoURL != nil {
		out["videoUrl"] = *p.VideoURL
	}
	if p.ExternalLinks != nil {
		out["externalLinks"] = *p.ExternalLinks
	}
	if p.Seasons != nil {
		out["seasons"] = *p.Seasons
	}
	if p.ShowInHero != nil {
		out["showInHero"] = *p.ShowInHero
	}
	return out
}
