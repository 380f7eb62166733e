package catalog_test

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slicemeow/internal/catalog"
	"slicemeow/internal/store"
	"slicemeow/internal/sync"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.SQLite) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	open := func(c *gin.Context) { c.Next() }
	r := gin.New()
	api := r.Group("/api")
	for _, res := range []catalog.Resource{catalog.MovieResource, catalog.SeriesResource} {
		catalog.NewHandler(s, res, nil, zap.NewNop()).RegisterRoutes(api, open)
	}
	catalog.NewHomeHandler(s, zap.NewNop()).RegisterRoutes(api, open)
	return r, s
}

func do(t *testing.T, r http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func createMovie(t *testing.T, r http.Handler, body string) map[string]any {
	t.Helper()
	code, out := do(t, r, http.MethodPost, "/api/movie", body)
	require.Equal(t, http.StatusCreated, code, out)
	return out["movie"].(map[string]any)
}

func TestCreateMovieStoresCanonicalRecord(t *testing.T) {
	r, _ := newTestRouter(t)

	movie := createMovie(t, r, `{"title":"Test Film","synopsis":"A story","releaseYear":"2020"}`)
	id := movie["id"].(string)
	require.NotEmpty(t, id)

	code, out := do(t, r, http.MethodGet, "/api/movie?id="+id, "")
	require.Equal(t, http.StatusOK, code)
	stored := out["movie"].(map[string]any)

	assert.Equal(t, "A story", stored["description"])
	assert.Equal(t, float64(2020), stored["releaseYear"])
	assert.Equal(t, "Standalone", stored["format"])
	assert.Equal(t, []any{}, stored["seasons"])
	assert.Equal(t, true, stored["showInHero"])
}

func TestCreateSeriesStoresEpisodes(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"title":"Test Show","seasons":[{"seasonNumber":1,"episodes":[{"number":1,"title":"Pilot"}]}]}`
	code, out := do(t, r, http.MethodPost, "/api/webseries", body)
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, "Web series created successfully", out["message"])

	id := out["webseries"].(map[string]any)["id"].(string)
	code, out = do(t, r, http.MethodGet, "/api/webseries?id="+id, "")
	require.Equal(t, http.StatusOK, code)

	stored := out["webseries"].(map[string]any)
	assert.Equal(t, "Episodic", stored["format"])
	assert.Equal(t, "TV", stored["type"])
	seasons := stored["seasons"].([]any)
	require.Len(t, seasons, 1)
	episodes := seasons[0].(map[string]any)["episodes"].([]any)
	assert.Equal(t, "Pilot", episodes[0].(map[string]any)["title"])
}

func TestCreateValidationIs400(t *testing.T) {
	r, _ := newTestRouter(t)

	code, out := do(t, r, http.MethodPost, "/api/movie", `{"synopsis":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "title required", out["error"])

	code, out = do(t, r, http.MethodPost, "/api/movie", `{"title":"x","releaseYear":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid releaseYear", out["error"])

	code, _ = do(t, r, http.MethodPost, "/api/movie", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeleteUnknownIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	code, out := do(t, r, http.MethodDelete, "/api/movie?id=does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Movie not found", out["error"])

	code, _ = do(t, r, http.MethodDelete, "/api/webseries?id=does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteRemovesRecord(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createMovie(t, r, `{"title":"Gone"}`)["id"].(string)

	code, _ := do(t, r, http.MethodDelete, "/api/movie?id="+id, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodGet, "/api/movie?id="+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteRequiresID(t *testing.T) {
	r, _ := newTestRouter(t)
	code, out := do(t, r, http.MethodDelete, "/api/movie", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "id required", out["error"])
}

func TestListEmptyCollection(t *testing.T) {
	r, _ := newTestRouter(t)

	code, out := do(t, r, http.MethodGet, "/api/movie", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, out["movies"])
	assert.Equal(t, float64(0), out["total"])

	code, out = do(t, r, http.MethodGet, "/api/webseries", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, out["webseries"])
}

func TestListPaginatesNewestFirst(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, title := range []string{"A", "B", "C"} {
		createMovie(t, r, `{"title":"`+title+`"}`)
	}

	code, out := do(t, r, http.MethodGet, "/api/movie?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), out["total"])
	assert.Equal(t, float64(2), out["limit"])
	items := out["movies"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].(map[string]any)["title"])
	assert.Equal(t, "B", items[1].(map[string]any)["title"])

	_, out = do(t, r, http.MethodGet, "/api/movie?limit=2&offset=2", "")
	items = out["movies"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].(map[string]any)["title"])

	_, out = do(t, r, http.MethodGet, "/api/movie?sort=title", "")
	items = out["movies"].([]any)
	assert.Equal(t, "A", items[0].(map[string]any)["title"])
}

func TestListClampsOversizedLimit(t *testing.T) {
	r, _ := newTestRouter(t)
	createMovie(t, r, `{"title":"A"}`)

	_, out := do(t, r, http.MethodGet, "/api/movie?limit=500", "")
	assert.Equal(t, float64(catalog.MaxLimit), out["limit"])
	assert.Len(t, out["movies"], 1)

	_, out = do(t, r, http.MethodGet, "/api/movie?limit=0", "")
	assert.Equal(t, float64(catalog.DefaultLimit), out["limit"])
}

func TestPatchTogglesOnlyCarouselFlag(t *testing.T) {
	r, _ := newTestRouter(t)
	movie := createMovie(t, r, `{"title":"Keep Me","genre":["Action","Drama"],"rating":8}`)
	id := movie["id"].(string)

	code, out := do(t, r, http.MethodPatch, "/api/movie?id="+id, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no valid fields", out["error"])

	code, out = do(t, r, http.MethodPatch, "/api/movie?id="+id, `{"showInHero":false,"title":"ignored"}`)
	require.Equal(t, http.StatusOK, code)
	patched := out["movie"].(map[string]any)
	assert.Equal(t, false, patched["showInHero"])
	assert.Equal(t, "Keep Me", patched["title"])
	assert.Equal(t, []any{"Action", "Drama"}, patched["genres"])
	assert.Equal(t, float64(8), patched["rating"])
}

func TestPatchAcceptsLegacyFlagAndBodyID(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createMovie(t, r, `{"title":"Legacy","showInHero":false}`)["id"].(string)

	code, out := do(t, r, http.MethodPatch, "/api/movie", `{"id":"`+id+`","isFeatured":true}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["movie"].(map[string]any)["showInHero"])
}

func TestPatchUnknownIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	code, _ := do(t, r, http.MethodPatch, "/api/webseries?id=nope", `{"showInHero":true}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPutIsPartial(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createMovie(t, r, `{"title":"Before","description":"d","genre":["Action"]}`)["id"].(string)

	code, out := do(t, r, http.MethodPut, "/api/movie?id="+id, `{"rating":"9.5","seasons":[{"seasonNumber":1}]}`)
	require.Equal(t, http.StatusOK, code, out)
	updated := out["movie"].(map[string]any)
	assert.Equal(t, "Before", updated["title"])
	assert.Equal(t, "d", updated["description"])
	assert.Equal(t, []any{"Action"}, updated["genres"])
	assert.Equal(t, 9.5, updated["rating"])
	assert.Equal(t, []any{}, updated["seasons"])
	assert.Equal(t, "Movie updated successfully", out["message"])
}

func TestEmptyPutPublishesNothing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	hub := sync.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)
	r := gin.New()
	catalog.NewHandler(s, catalog.MovieResource, hub, zap.NewNop()).
		RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	hub.Add(<-accepted)

	rd := bufio.NewReader(client)
	next := func() sync.CatalogEvent {
		t.Helper()
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		line, err := rd.ReadBytes('\n')
		require.NoError(t, err)
		var ev sync.CatalogEvent
		require.NoError(t, json.Unmarshal(line, &ev))
		return ev
	}
	assert.Equal(t, "welcome", next().Type)

	id := createMovie(t, r, `{"title":"Before"}`)["id"].(string)
	assert.Equal(t, sync.EventCreate, next().Type)

	code, _ := do(t, r, http.MethodPut, "/api/movie?id="+id, `{}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPut, "/api/movie?id="+id, `{"title":"After"}`)
	require.Equal(t, http.StatusOK, code)

	// events arrive in publish order, so an update from the empty PUT
	// would be read here first
	ev := next()
	assert.Equal(t, sync.EventUpdate, ev.Type)
	assert.Equal(t, "After", ev.Title)
}

func TestPutQueryIDWinsOverBody(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createMovie(t, r, `{"title":"A"}`)["id"].(string)
	b := createMovie(t, r, `{"title":"B"}`)["id"].(string)

	code, _ := do(t, r, http.MethodPut, "/api/movie?id="+a, `{"id":"`+b+`","title":"A2"}`)
	require.Equal(t, http.StatusOK, code)

	_, out := do(t, r, http.MethodGet, "/api/movie?id="+a, "")
	assert.Equal(t, "A2", out["movie"].(map[string]any)["title"])
	_, out = do(t, r, http.MethodGet, "/api/movie?id="+b, "")
	assert.Equal(t, "B", out["movie"].(map[string]any)["title"])
}

func TestPutErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	code, _ := do(t, r, http.MethodPut, "/api/movie?id=missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, out := do(t, r, http.MethodPut, "/api/movie", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "id required", out["error"])

	id := createMovie(t, r, `{"title":"x"}`)["id"].(string)
	code, out = do(t, r, http.MethodPut, "/api/movie?id="+id, `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "title required", out["error"])
}

func TestPutSeriesTypeKeepsEpisodic(t *testing.T) {
	r, _ := newTestRouter(t)
	body := `{"title":"S","seasons":[{"seasonNumber":1,"episodes":[{"number":1}]}]}`
	_, out := do(t, r, http.MethodPost, "/api/webseries", body)
	id := out["webseries"].(map[string]any)["id"].(string)

	code, out := do(t, r, http.MethodPut, "/api/webseries?id="+id, `{"type":"Movie"}`)
	require.Equal(t, http.StatusOK, code)
	updated := out["webseries"].(map[string]any)
	assert.Equal(t, "TV", updated["type"])
	assert.Equal(t, "Episodic", updated["format"])
	assert.Len(t, updated["seasons"].([]any), 1)
}

func TestStoreFailureIs500(t *testing.T) {
	r, s := newTestRouter(t)
	require.NoError(t, s.Close())

	code, out := do(t, r, http.MethodGet, "/api/movie", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", out["error"])
}

func TestHomeFeaturesShownTitles(t *testing.T) {
	r, _ := newTestRouter(t)
	createMovie(t, r, `{"title":"Hidden","showInHero":false}`)
	createMovie(t, r, `{"title":"Shown"}`)
	do(t, r, http.MethodPost, "/api/webseries", `{"title":"Series"}`)

	code, out := do(t, r, http.MethodGet, "/api/home", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["movies"].([]any), 2)
	assert.Len(t, out["webseries"].([]any), 1)

	var titles []string
	for _, f := range out["featured"].([]any) {
		titles = append(titles, f.(map[string]any)["title"].(string))
	}
	assert.Equal(t, []string{"Shown", "Series"}, titles)
}

func TestAdminStats(t *testing.T) {
	r, _ := newTestRouter(t)
	for i := 0; i < 4; i++ {
		createMovie(t, r, `{"title":"m"}`)
	}
	for i := 0; i < 3; i++ {
		do(t, r, http.MethodPost, "/api/webseries", `{"title":"s"}`)
	}

	code, out := do(t, r, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), out["totalMovies"])
	assert.Equal(t, float64(3), out["totalSeries"])
	recent := out["recentItems"].([]any)
	require.Len(t, recent, 5)
	assert.Equal(t, "s", recent[0].(map[string]any)["title"])
}
