package catalog

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slicemeow/pkg/models"
)

const (
	homeLatest   = 20
	homeFeatured = 5
	statsRecent  = 5
)

// HomeHandler serves the aggregated landing page and admin dashboard data.
type HomeHandler struct {
	Store Store
	Log   *zap.Logger
}

func NewHomeHandler(store Store, log *zap.Logger) *HomeHandler {
	return &HomeHandler{Store: store, Log: log}
}

func (h *HomeHandler) RegisterRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	rg.GET("/home", h.home)
	rg.GET("/admin/stats", guard, h.stats)
}

type HomeContent struct {
	Movies   []models.CatalogRecord `json:"movies"`
	Series   []models.CatalogRecord `json:"webseries"`
	Featured []models.CatalogRecord `json:"featured"`
}

// Home loads the newest titles of both collections. Legacy documents
// missing type or format get the defaults of their collection.
func Home(ctx context.Context, store Store) (HomeContent, error) {
	var out HomeContent

	movies, err := store.List(ctx, models.CollectionMovies, ListQuery{Limit: homeLatest})
	if err != nil {
		return out, err
	}
	series, err := store.List(ctx, models.CollectionWebSeries, ListQuery{Limit: homeLatest})
	if err != nil {
		return out, err
	}

	out.Movies = withDefaults(movies.Items, models.KindMovie, models.FormatStandalone)
	out.Series = withDefaults(series.Items, models.KindTV, models.FormatEpisodic)

	out.Featured = []models.CatalogRecord{}
	for _, r := range append(append([]models.CatalogRecord{}, out.Movies...), out.Series...) {
		if len(out.Featured) == homeFeatured {
			break
		}
		if r.ShowInHero {
			out.Featured = append(out.Featured, r)
		}
	}
	return out, nil
}

func withDefaults(items []models.CatalogRecord, kind models.Kind, format models.Format) []models.CatalogRecord {
	out := make([]models.CatalogRecord, 0, len(items))
	for _, r := range items {
		if r.Kind == "" {
			r.Kind = kind
		}
		if r.Format == "" {
			r.Format = format
		}
		out = append(out, r)
	}
	return out
}

type Stats struct {
	TotalMovies int                    `json:"totalMovies"`
	TotalSeries int                    `json:"totalSeries"`
	RecentItems []models.CatalogRecord `json:"recentItems"`
}

func AdminStats(ctx context.Context, store Store) (Stats, error) {
	var st Stats
	var err error

	if st.TotalMovies, err = store.Count(ctx, models.CollectionMovies); err != nil {
		return st, err
	}
	if st.TotalSeries, err = store.Count(ctx, models.CollectionWebSeries); err != nil {
		return st, err
	}

	movies, err := store.List(ctx, models.CollectionMovies, ListQuery{Limit: statsRecent})
	if err != nil {
		return st, err
	}
	series, err := store.List(ctx, models.CollectionWebSeries, ListQuery{Limit: statsRecent})
	if err != nil {
		return st, err
	}

	recent := append(append([]models.CatalogRecord{}, movies.Items...), series.Items...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > statsRecent {
		recent = recent[:statsRecent]
	}
	st.RecentItems = recent
	return st, nil
}

func (h *HomeHandler) home(c *gin.Context) {
	content, err := Home(c.Request.Context(), h.Store)
	if err != nil {
		writeError(c, h.Log, err, "Content")
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *HomeHandler) stats(c *gin.Context) {
	st, err := AdminStats(c.Request.Context(), h.Store)
	if err != nil {
		writeError(c, h.Log, err, "Stats")
		return
	}
	c.JSON(http.StatusOK, st)
}
