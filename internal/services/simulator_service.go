package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/logger"

	"lottosim/internal/lotto"
	"lottosim/internal/metrics"
	"lottosim/internal/models"
)

// Result is what a generate command returns to the UI.
type Result struct {
	// Latest is the most recently generated record, the one shown as the current ticket.
	Latest models.TrialRecord `json:"latest"`
	// Records holds the new records in generation order.
	Records []models.TrialRecord `json:"records,omitempty"`
	// History is the first page of the updated history, newest batch first.
	History  []models.TrialRecord `json:"history"`
	Stats    models.Snapshot      `json:"stats"`
	Total    int                  `json:"total"`
	MaxBatch int                  `json:"maxBatch"`
}

// State is a read-only view of the session.
type State struct {
	Winning    models.WinningDraw   `json:"winning"`
	Latest     *models.TrialRecord  `json:"latest,omitempty"`
	History    []models.TrialRecord `json:"history"`
	Offset     int                  `json:"offset"`
	Total      int                  `json:"total"`
	Stats      models.Snapshot      `json:"stats"`
	PrizeTable models.PrizeTable    `json:"prizeTable"`
}

// SimulatorService holds the single in-memory simulation session.
type SimulatorService struct {
	mu      sync.RWMutex
	sampler *lotto.Sampler
	engine  *lotto.Engine
	winning models.WinningDraw
	// session increments on every reset
	session  uint64
	history  lotto.History
	tally    lotto.Tally
	prizes   models.PrizeTable
	maxBatch int
	pageSize int
}

// NewSimulatorService draws the session's winning numbers and returns a ready service.
// prizes is the table loaded once at startup; a nil table pays nothing. pageSize is
// the length of the history page returned with every generate result.
func NewSimulatorService(sampler *lotto.Sampler, engine *lotto.Engine, prizes models.PrizeTable,
	maxBatch, pageSize int) (*SimulatorService, error) {
	if maxBatch <= 0 {
		return nil, fmt.Errorf("%w: max batch must be positive", lotto.ErrInvalidParameter)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: history page size must be positive", lotto.ErrInvalidParameter)
	}
	if prizes == nil {
		prizes = models.PrizeTable{}
	}
	winning, err := sampler.DrawWithBonus()
	if err != nil {
		return nil, fmt.Errorf("draw winning numbers: %w", err)
	}
	return &SimulatorService{
		sampler:  sampler,
		engine:   engine,
		winning:  winning,
		prizes:   prizes,
		maxBatch: maxBatch,
		pageSize: pageSize,
	}, nil
}

// GenerateOne buys and checks a single ticket.
func (s *SimulatorService) GenerateOne(ctx context.Context) (Result, error) {
	return s.GenerateBatch(ctx, 1)
}

// GenerateBatch buys and checks n tickets. The batch goes in front of the history
// as one block and its last record becomes the latest result.
func (s *SimulatorService) GenerateBatch(ctx context.Context, n int) (Result, error) {
	s.mu.RLock()
	maxBatch := s.maxBatch
	winning := s.winning
	session := s.session
	s.mu.RUnlock()

	if n <= 0 || n > maxBatch {
		return Result{}, fmt.Errorf("%w: batch size must be between 1 and %d, got %d",
			lotto.ErrInvalidParameter, maxBatch, n)
	}

	records, err := s.engine.RunTrials(ctx, n, winning)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != session {
		return Result{}, fmt.Errorf("%w: session was reset during generation", context.Canceled)
	}
	s.history.PrependBatch(records)
	s.tally.Add(records...)
	metrics.RecordBatch(records)

	stats := s.tally.Snapshot(s.prizes)
	logger.V(1).Infof("Generated %d trials, session total %d, best rank %s", n, stats.Trials, stats.BestRank)

	return Result{
		Latest:   records[len(records)-1],
		Records:  records,
		History:  s.history.Page(0, s.pageSize),
		Stats:    stats,
		Total:    s.history.Len(),
		MaxBatch: s.maxBatch,
	}, nil
}

// Reset clears the history and statistics and draws new winning numbers, as a fresh session would.
func (s *SimulatorService) Reset() error {
	winning, err := s.sampler.DrawWithBonus()
	if err != nil {
		return fmt.Errorf("draw winning numbers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.history.Len()
	s.history.Reset()
	s.tally.Reset()
	s.winning = winning
	s.session++
	logger.Infof("Session reset, dropped %d trials", dropped)
	return nil
}

// State returns a page of history, newest first, along with the statistics.
func (s *SimulatorService) State(offset, limit int) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Winning:    s.winning,
		History:    s.history.Page(offset, limit),
		Offset:     offset,
		Total:      s.history.Len(),
		Stats:      s.tally.Snapshot(s.prizes),
		PrizeTable: clonePrizes(s.prizes),
	}
	if latest, ok := s.history.Latest(); ok {
		st.Latest = &latest
	}
	return st
}

// Snapshot returns the current statistics.
func (s *SimulatorService) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tally.Snapshot(s.prizes)
}

// Winning returns the session's winning draw.
func (s *SimulatorService) Winning() models.WinningDraw {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.winning
}

// PrizeTable returns a copy of the table in use.
func (s *SimulatorService) PrizeTable() models.PrizeTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePrizes(s.prizes)
}

// History returns every record, newest batch first.
func (s *SimulatorService) History() []models.TrialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.All()
}

// MaxBatch returns the current batch size limit.
func (s *SimulatorService) MaxBatch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBatch
}

// SetMaxBatch changes the batch size limit, for config reloads.
func (s *SimulatorService) SetMaxBatch(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxBatch = n
}

func clonePrizes(t models.PrizeTable) models.PrizeTable {
	out := make(models.PrizeTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
