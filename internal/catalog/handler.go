package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slicemeow/internal/sync"
	"slicemeow/pkg/models"
)

// Resource binds one collection to its route, normalizer and response keys.
type Resource struct {
	Path       string
	Collection models.Collection
	Normalizer Normalizer
	ItemKey    string
	ListKey    string
	Noun       string
}

var (
	MovieResource = Resource{
		Path:       "/movie",
		Collection: models.CollectionMovies,
		Normalizer: NewMovieNormalizer(),
		ItemKey:    "movie",
		ListKey:    "movies",
		Noun:       "Movie",
	}
	SeriesResource = Resource{
		Path:       "/webseries",
		Collection: models.CollectionWebSeries,
		Normalizer: NewSeriesNormalizer(),
		ItemKey:    "webseries",
		ListKey:    "webseries",
		Noun:       "Web series",
	}
)

type Handler struct {
	Store    Store
	Resource Resource
	Hub      *sync.Hub
	Log      *zap.Logger
}

func NewHandler(store Store, res Resource, hub *sync.Hub, log *zap.Logger) *Handler {
	return &Handler{Store: store, Resource: res, Hub: hub, Log: log}
}

// RegisterRoutes mounts the resource on rg. Writes go through guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	p := h.Resource.Path
	rg.GET(p, h.get)
	rg.POST(p, guard, h.create)
	rg.PUT(p, guard, h.update)
	rg.PATCH(p, guard, h.toggle)
	rg.DELETE(p, guard, h.remove)
}

func (h *Handler) get(c *gin.Context) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		rec, err := h.Store.Get(c.Request.Context(), h.Resource.Collection, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{h.Resource.ItemKey: rec})
		return
	}

	q := ListQuery{
		Limit:  parseInt(c.Query("limit"), DefaultLimit),
		Offset: parseInt(c.Query("offset"), 0),
		Sort:   SortOrder(strings.ToLower(strings.TrimSpace(c.Query("sort")))),
	}
	page, err := h.Store.List(c.Request.Context(), h.Resource.Collection, q)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		h.Resource.ListKey: page.Items,
		"total":            page.Total,
		"limit":            page.Limit,
		"offset":           page.Offset,
	})
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rec, err := h.Resource.Normalizer.Create(in)
	if err != nil {
		h.fail(c, err)
		return
	}

	saved, err := h.Store.Create(c.Request.Context(), h.Resource.Collection, rec)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.Hub.Publish(sync.NewEvent(sync.EventCreate, string(h.Resource.Collection), saved.ID, saved.Title))
	c.JSON(http.StatusCreated, gin.H{
		"message":          h.Resource.Noun + " created successfully",
		h.Resource.ItemKey: saved,
	})
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := resolveID(c, in.ID)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	patch, err := h.Resource.Normalizer.Update(in)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.apply(c, id, patch, sync.EventUpdate, "updated")
}

func (h *Handler) toggle(c *gin.Context) {
	var t Toggle
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := resolveID(c, t.ID)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	patch, err := t.Patch()
	if err != nil {
		h.fail(c, err)
		return
	}

	h.apply(c, id, patch, sync.EventUpdate, "updated")
}

func (h *Handler) apply(c *gin.Context, id string, patch models.RecordPatch, event, verb string) {
	ctx := c.Request.Context()

	var (
		rec *models.CatalogRecord
		err error
	)
	if patch.Empty() {
		rec, err = h.Store.Get(ctx, h.Resource.Collection, id)
	} else {
		rec, err = h.Store.Update(ctx, h.Resource.Collection, id, patch)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	// nothing changed, so subscribers hear nothing
	if !patch.Empty() {
		h.Hub.Publish(sync.NewEvent(event, string(h.Resource.Collection), rec.ID, rec.Title))
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          h.Resource.Noun + " " + verb + " successfully",
		h.Resource.ItemKey: rec,
	})
}

func (h *Handler) remove(c *gin.Context) {
	id := resolveID(c, nil)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	if err := h.Store.Delete(c.Request.Context(), h.Resource.Collection, id); err != nil {
		h.fail(c, err)
		return
	}

	h.Hub.Publish(sync.NewEvent(sync.EventDelete, string(h.Resource.Collection), id, ""))
	c.JSON(http.StatusOK, gin.H{"message": h.Resource.Noun + " deleted successfully"})
}

// fail maps domain errors onto status codes. Store details are logged only.
func (h *Handler) fail(c *gin.Context, err error) {
	writeError(c, h.Log, err, h.Resource.Noun)
}

func writeError(c *gin.Context, log *zap.Logger, err error, noun string) {
	switch {
	case IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": noun + " not found"})
	default:
		log.Error("catalog request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// resolveID prefers the query parameter over an id sent in the body.
func resolveID(c *gin.Context, bodyID *string) string {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		return id
	}
	if bodyID != nil {
		return strings.TrimSpace(*bodyID)
	}
	return ""
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
