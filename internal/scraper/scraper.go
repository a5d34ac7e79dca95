package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lottosim/internal/config"
	"lottosim/internal/models"
)

// ErrFetchFailed is returned for any failure to obtain the latest numbers.
var ErrFetchFailed = errors.New("LOTTO_300: failed to fetch lotto numbers")

// Source returns the latest official winning numbers.
type Source interface {
	Latest(ctx context.Context) (models.LatestNumbers, error)
}

// HTTPScraper reads the winning numbers off the lottery operator's web page.
type HTTPScraper struct {
	client          *http.Client
	url             string
	numbersSelector string
	bonusSelector   string
	userAgent       string
}

// NewHTTPScraper builds a scraper from config. A nil client gets one with the configured timeout.
func NewHTTPScraper(cfg *config.ScraperConfig, client *http.Client) *HTTPScraper {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPScraper{
		client:          client,
		url:             cfg.URL,
		numbersSelector: cfg.NumbersSelector,
		bonusSelector:   cfg.BonusSelector,
		userAgent:       cfg.UserAgent,
	}
}

// Latest performs a single GET and parses the result. There is no retry.
func (s *HTTPScraper) Latest(ctx context.Context) (models.LatestNumbers, error) {
	var out models.LatestNumbers

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return out, fmt.Errorf("%w: build request: %w", ErrFetchFailed, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return out, fmt.Errorf("%w: parse page: %w", ErrFetchFailed, err)
	}
	return Parse(doc, s.numbersSelector, s.bonusSelector)
}

// Parse extracts the six main numbers and the bonus number from doc.
func Parse(doc *goquery.Document, numbersSelector, bonusSelector string) (models.LatestNumbers, error) {
	var out models.LatestNumbers

	var parseErr error
	doc.Find(numbersSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		n, err := parseNumber(sel.Text())
		if err != nil {
			parseErr = err
			return false
		}
		out.Numbers = append(out.Numbers, n)
		return true
	})
	if parseErr != nil {
		return models.LatestNumbers{}, fmt.Errorf("%w: numbers: %w", ErrFetchFailed, parseErr)
	}
	if len(out.Numbers) != models.DrawSize {
		return models.LatestNumbers{}, fmt.Errorf("%w: selector %q matched %d numbers, want %d",
			ErrFetchFailed, numbersSelector, len(out.Numbers), models.DrawSize)
	}

	bonus := doc.Find(bonusSelector)
	if bonus.Length() == 0 {
		return models.LatestNumbers{}, fmt.Errorf("%w: selector %q matched nothing", ErrFetchFailed, bonusSelector)
	}
	n, err := parseNumber(bonus.First().Text())
	if err != nil {
		return models.LatestNumbers{}, fmt.Errorf("%w: bonus: %w", ErrFetchFailed, err)
	}
	out.BonusNumber = n
	return out, nil
}

func parseNumber(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if n < 1 || n > models.PoolSize {
		return 0, fmt.Errorf("number %d out of range", n)
	}
	return n, nil
}
