package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottosim/internal/lotto"
	"lottosim/internal/models"
	"lottosim/internal/prize"
	"lottosim/internal/services"
	"lottosim/web"
)

type fakeSource struct {
	latest models.LatestNumbers
	err    error
}

func (f *fakeSource) Latest(ctx context.Context) (models.LatestNumbers, error) {
	return f.latest, f.err
}

func setupRouter(t *testing.T, source *fakeSource, maxBatch int) (*gin.Engine, *services.SimulatorService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sampler := lotto.NewSampler(nil)
	svc, err := services.NewSimulatorService(sampler, lotto.NewEngine(sampler), prize.DefaultTable(), maxBatch, 20)
	require.NoError(t, err)

	templates, err := web.ParseTemplates()
	require.NoError(t, err)

	h := NewHTTPHandler(svc, source, templates, 20)
	r := gin.New()
	h.RegisterPageRoutes(r)
	h.RegisterFormRoutes(r)
	h.RegisterAPIRoutes(r.Group("/api"))
	return r, svc
}

func submitForm(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoints(t *testing.T) {
	r, svc := setupRouter(t, &fakeSource{}, 10000)

	t.Run("generate one", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/generate", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res services.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Records, 1)
		assert.Equal(t, res.Records[0].ID, res.Latest.ID)
	})

	t.Run("batch via json body", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/generate/batch", []byte(`{"count":100,"includeRecords":true}`))
		require.Equal(t, http.StatusOK, w.Code)

		var res services.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Len(t, res.Records, 100)
		assert.Equal(t, 101, res.Total)
		assert.Equal(t, res.Records[99].ID, res.Latest.ID)
		require.Len(t, res.History, 20)
		assert.Equal(t, res.Records[:20], res.History)

		sum := 0
		for _, c := range res.Stats.RankCounts {
			sum += c
		}
		assert.Equal(t, 101, sum)
	})

	t.Run("batch via query omits records", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/generate/batch?count=1000", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		_, hasRecords := raw["records"]
		assert.False(t, hasRecords)
		assert.Equal(t, 1101, svc.Snapshot().Trials)
	})

	t.Run("bad counts", func(t *testing.T) {
		for _, target := range []string{
			"/api/generate/batch",
			"/api/generate/batch?count=abc",
			"/api/generate/batch?count=0",
			"/api/generate/batch?count=-4",
			"/api/generate/batch?count=10001",
		} {
			w := do(r, http.MethodPost, target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
		w := do(r, http.MethodPost, "/api/generate/batch", []byte(`{"count":`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStateAndReset(t *testing.T) {
	r, svc := setupRouter(t, &fakeSource{}, 1000)
	_, err := svc.GenerateBatch(context.Background(), 30)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/state?offset=5&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st services.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Len(t, st.History, 10)
	assert.Equal(t, 30, st.Total)
	assert.Equal(t, 5, st.Offset)
	require.NotNil(t, st.Latest)
	assert.Len(t, st.Stats.RankCounts, 6)

	w = do(r, http.MethodGet, "/api/state", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Len(t, st.History, 20, "default page size")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/state?limit=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/state?offset=-1", nil).Code)

	w = do(r, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 0, st.Total)
	assert.Empty(t, st.History)
	assert.Equal(t, models.NoPrize, st.Stats.BestRank)
}

func TestGetLatestNumbers(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		source := &fakeSource{latest: models.LatestNumbers{Numbers: []int{1, 2, 3, 4, 5, 6}, BonusNumber: 7}}
		r, _ := setupRouter(t, source, 10)

		w := do(r, http.MethodGet, "/api/lotto", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"numbers":[1,2,3,4,5,6],"bonusNumber":7}`, w.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		r, _ := setupRouter(t, &fakeSource{err: errors.New("connection refused")}, 10)

		w := do(r, http.MethodGet, "/api/lotto", nil)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch lotto numbers"}`, w.Body.String())
	})
}

func TestGetPrizes(t *testing.T) {
	r, _ := setupRouter(t, &fakeSource{}, 10)
	w := do(r, http.MethodGet, "/api/prizes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"prizes":{"1st":2000000000,"2nd":50000000,"3rd":1500000,"4th":50000,"5th":5000},"ticketPrice":1000}`,
		w.Body.String())
}

func TestShowIndex(t *testing.T) {
	r, svc := setupRouter(t, &fakeSource{}, 10)
	_, err := svc.GenerateBatch(context.Background(), 3)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<h1>Lotto Simulator</h1>")
	assert.Contains(t, body, `<section id="latest">`)
	assert.Contains(t, body, "History (3)")
	assert.Equal(t, 3, strings.Count(body, `<tr class="trial">`))
	assert.Contains(t, body, "3 games, 3000 won spent")

	// ranks are listed best first with "none" last
	prev := -1
	for _, rank := range models.Ranks {
		i := strings.Index(body, "<li>"+rank.String()+": ")
		require.Greater(t, i, prev, rank.String())
		prev = i
	}
	snap := svc.Snapshot()
	assert.Contains(t, body, "<li>none: "+strconv.Itoa(snap.RankCounts[models.NoPrize])+"</li>")
}

func TestShowIndexEmptySession(t *testing.T) {
	r, _ := setupRouter(t, &fakeSource{}, 10)

	w := do(r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, `<section id="latest">`)
	assert.Contains(t, body, "History (0)")
	assert.Contains(t, body, "<li>1st: 0</li>")
	assert.Contains(t, body, `max="10"`)
}

func TestFormCommands(t *testing.T) {
	r, svc := setupRouter(t, &fakeSource{}, 100)

	t.Run("batch redirects to the page", func(t *testing.T) {
		w := submitForm(r, "/generate/batch", url.Values{"count": {"7"}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.NotContains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Equal(t, 7, svc.Snapshot().Trials)

		page := do(r, http.MethodGet, w.Header().Get("Location"), nil)
		require.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), "History (7)")
	})

	t.Run("single ticket", func(t *testing.T) {
		w := submitForm(r, "/generate", url.Values{})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, 8, svc.Snapshot().Trials)
	})

	t.Run("bad counts stay put", func(t *testing.T) {
		for _, count := range []string{"", "abc", "0", "101"} {
			w := submitForm(r, "/generate/batch", url.Values{"count": {count}})
			assert.Equal(t, http.StatusBadRequest, w.Code, count)
			assert.Empty(t, w.Header().Get("Location"))
		}
		assert.Equal(t, 8, svc.Snapshot().Trials)
	})

	t.Run("reset", func(t *testing.T) {
		w := submitForm(r, "/reset", url.Values{})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, 0, svc.Snapshot().Trials)
	})
}

func TestExportHistoryCSV(t *testing.T) {
	r, svc := setupRouter(t, &fakeSource{}, 10)
	res, err := svc.GenerateBatch(context.Background(), 4)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/export-history-csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, "\xef\xbb\xbf"))
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, "\xef\xbb\xbf"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"id", "timestamp", "numbers", "match_count", "bonus_match", "rank"}, rows[0])
	assert.Equal(t, res.Records[0].ID, rows[1][0])
	_, err = time.Parse(time.RFC3339, rows[1][1])
	assert.NoError(t, err)
	assert.Len(t, strings.Fields(rows[1][2]), models.DrawSize)
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, &fakeSource{}, 10)
	w := do(r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","trials":0}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/x", nil).Code)

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	assert.Equal(t, 1, rl.Cleanup(0))
}
