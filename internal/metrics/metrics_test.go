package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottosim/internal/models"
)

func TestRecordBatch(t *testing.T) {
	before := testutil.ToFloat64(trials.WithLabelValues("5th"))
	noneBefore := testutil.ToFloat64(trials.WithLabelValues("none"))

	RecordBatch([]models.TrialRecord{
		{Rank: models.Fifth}, {Rank: models.NoPrize}, {Rank: models.Fifth},
	})

	assert.Equal(t, before+2, testutil.ToFloat64(trials.WithLabelValues("5th")))
	assert.Equal(t, noneBefore+1, testutil.ToFloat64(trials.WithLabelValues("none")))
}

func TestRecordScrape(t *testing.T) {
	okBefore := testutil.ToFloat64(scrapes.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(scrapes.WithLabelValues("error"))

	RecordScrape(nil)
	RecordScrape(errors.New("down"))
	RecordScrape(errors.New("down"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(scrapes.WithLabelValues("ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(scrapes.WithLabelValues("error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping", "200")), 1.0)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "lottosim_http_requests_total"))
	assert.True(t, strings.Contains(body, "lottosim_trials_total"))
}
