package catalog

import (
	"context"

	"slicemeow/pkg/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type SortOrder string

const (
	SortRecent SortOrder = "recent" // createdAt desc
	SortTitle  SortOrder = "title"
)

// ListQuery always pages; Normalized fills in the defaults.
type ListQuery struct {
	Limit  int
	Offset int
	Sort   SortOrder
}

func (q ListQuery) Normalized() ListQuery {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Sort != SortTitle {
		q.Sort = SortRecent
	}
	return q
}

type Page struct {
	Items  []models.CatalogRecord
	Total  int
	Limit  int
	Offset int
}

// Store is the document-store adapter. Implementations assign ids and
// timestamps, return ErrNotFound for unknown ids and wrap everything else
// in a StoreError.
type Store interface {
	Create(ctx context.Context, coll models.Collection, rec models.CatalogRecord) (*models.CatalogRecord, error)
	Get(ctx context.Context, coll models.Collection, id string) (*models.CatalogRecord, error)
	List(ctx context.Context, coll models.Collection, q ListQuery) (Page, error)
	Update(ctx context.Context, coll models.Collection, id string, patch models.RecordPatch) (*models.CatalogRecord, error)
	Delete(ctx context.Context, coll models.Collection, id string) error
	Count(ctx context.Context, coll models.Collection) (int, error)
}
