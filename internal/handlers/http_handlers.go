package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"lottosim/internal/lotto"
	"lottosim/internal/metrics"
	"lottosim/internal/models"
	"lottosim/internal/scraper"
	"lottosim/internal/services"
)

// fetchFailedMessage is the only error text the scrape endpoint ever returns.
const fetchFailedMessage = "Failed to fetch lotto numbers"

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service   *services.SimulatorService
	latest    scraper.Source
	templates *template.Template
	pageSize  int
}

// NewHTTPHandler creates a new HTTPHandler. pageSize is the default history page length.
func NewHTTPHandler(service *services.SimulatorService, latest scraper.Source, templates *template.Template, pageSize int) *HTTPHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &HTTPHandler{
		service:   service,
		latest:    latest,
		templates: templates,
		pageSize:  pageSize,
	}
}

// renderPage executes the content template into a buffer first, then the layout
// with the rendered content passed in as PageContent.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	buf := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData); err != nil {
		logger.Errorf("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData); err != nil {
		logger.Errorf("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// RegisterPageRoutes registers the HTML page, CSV export and operational endpoints.
func (h *HTTPHandler) RegisterPageRoutes(router gin.IRouter) {
	router.GET("/", h.ShowIndex)
	router.GET("/export-history-csv", h.ExportHistoryCSV)
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// RegisterFormRoutes registers the page's form commands. Each one redirects back to
// the page, so a browser never lands on a JSON document.
func (h *HTTPHandler) RegisterFormRoutes(router gin.IRouter) {
	router.POST("/generate", h.SubmitGenerateOne)
	router.POST("/generate/batch", h.SubmitGenerateBatch)
	router.POST("/reset", h.SubmitReset)
}

// RegisterAPIRoutes registers the JSON command surface.
func (h *HTTPHandler) RegisterAPIRoutes(api gin.IRouter) {
	api.POST("/generate", h.GenerateOne)
	api.POST("/generate/batch", h.GenerateBatch)
	api.GET("/state", h.GetState)
	api.POST("/reset", h.Reset)
	api.GET("/prizes", h.GetPrizes)
	api.GET("/lotto", h.GetLatestNumbers)
}

// ShowIndex renders the simulator page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	state := h.service.State(0, h.pageSize)
	h.renderPage(c, gin.H{
		"title":       "Lotto Simulator",
		"State":       state,
		"Ranks":       models.Ranks,
		"BatchSizes":  []int{100, 1000, 10000},
		"MaxBatch":    h.service.MaxBatch(),
		"TicketPrice": lotto.TicketPrice,
	}, "index.html")
}

// SubmitGenerateOne handles the page's single ticket form.
func (h *HTTPHandler) SubmitGenerateOne(c *gin.Context) {
	_, err := h.service.GenerateOne(c.Request.Context())
	h.backToIndex(c, err)
}

// SubmitGenerateBatch handles the page's batch forms. The size comes from the count form field.
func (h *HTTPHandler) SubmitGenerateBatch(c *gin.Context) {
	count, err := strconv.Atoi(c.PostForm("count"))
	if err != nil {
		c.String(http.StatusBadRequest, "count must be a positive integer")
		return
	}
	_, err = h.service.GenerateBatch(c.Request.Context(), count)
	h.backToIndex(c, err)
}

// SubmitReset handles the page's reset form.
func (h *HTTPHandler) SubmitReset(c *gin.Context) {
	h.backToIndex(c, h.service.Reset())
}

func (h *HTTPHandler) backToIndex(c *gin.Context, err error) {
	if err != nil {
		status, msg := statusFor(c, err)
		c.String(status, "%s", msg)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// GenerateOne handles a single ticket purchase.
func (h *HTTPHandler) GenerateOne(c *gin.Context) {
	res, err := h.service.GenerateOne(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type batchRequest struct {
	Count int `json:"count"`
	// IncludeRecords returns every generated record instead of only the latest
	IncludeRecords bool `json:"includeRecords"`
}

// GenerateBatch handles a batch purchase. The count comes from a JSON body or the count query parameter.
func (h *HTTPHandler) GenerateBatch(c *gin.Context) {
	var req batchRequest
	if c.Request.ContentLength != 0 && strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if req.Count == 0 {
		count, err := strconv.Atoi(c.Query("count"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
			return
		}
		req.Count = count
	}
	if v, ok := c.GetQuery("records"); ok {
		req.IncludeRecords, _ = strconv.ParseBool(v)
	}

	res, err := h.service.GenerateBatch(c.Request.Context(), req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	if !req.IncludeRecords {
		res.Records = nil
	}
	c.JSON(http.StatusOK, res)
}

// GetState returns a page of history with the statistics.
func (h *HTTPHandler) GetState(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}
	limit, err := queryInt(c, "limit", h.pageSize)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	c.JSON(http.StatusOK, h.service.State(offset, limit))
}

// Reset clears the session.
func (h *HTTPHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.State(0, h.pageSize))
}

// GetPrizes returns the prize table in use.
func (h *HTTPHandler) GetPrizes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"prizes":      h.service.PrizeTable(),
		"ticketPrice": lotto.TicketPrice,
	})
}

// GetLatestNumbers scrapes the official site for the latest winning numbers.
// These are not used by the simulation.
func (h *HTTPHandler) GetLatestNumbers(c *gin.Context) {
	latest, err := h.latest.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fetchFailedMessage})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "trials": h.service.Snapshot().Trials})
}

// ExportHistoryCSV streams the whole history as a CSV download.
func (h *HTTPHandler) ExportHistoryCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=lotto_history.csv")

	// BOM so spreadsheet apps pick up UTF-8
	_, _ = c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"id", "timestamp", "numbers", "match_count", "bonus_match", "rank"}); err != nil {
		logger.Errorf("Error writing CSV header: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	for _, r := range h.service.History() {
		nums := make([]string, len(r.Numbers))
		for i, n := range r.Numbers {
			nums[i] = strconv.Itoa(n)
		}
		row := []string{
			r.ID,
			r.Timestamp.Format(time.RFC3339),
			strings.Join(nums, " "),
			strconv.Itoa(r.MatchCount),
			strconv.FormatBool(r.BonusMatch),
			r.Rank.String(),
		}
		if err := w.Write(row); err != nil {
			logger.Errorf("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		logger.Errorf("Error flushing CSV writer: %v", err)
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(c, err)
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, lotto.ErrInvalidParameter):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		logger.Errorf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		return http.StatusInternalServerError, "internal error"
	}
}
