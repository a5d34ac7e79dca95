package lotto

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"lottosim/internal/models"
)

// yieldEvery is how many trials a batch runs between context checks.
const yieldEvery = 1024

// Engine runs simulated ticket purchases against a winning draw.
type Engine struct {
	sampler *Sampler
	now     func() time.Time
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid generator for record IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates an Engine drawing tickets from sampler.
func NewEngine(sampler *Sampler, opts ...Option) *Engine {
	e := &Engine{
		sampler: sampler,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check builds the record for a given ticket without drawing anything.
func (e *Engine) Check(ticket models.Draw, winning models.WinningDraw) models.TrialRecord {
	matchCount := CountMatches(ticket, winning.Numbers)
	bonusMatch := ticket.Contains(winning.Bonus)
	return models.TrialRecord{
		ID:         e.newID(),
		Numbers:    ticket,
		Timestamp:  e.now(),
		MatchCount: matchCount,
		BonusMatch: bonusMatch,
		Rank:       Classify(matchCount, bonusMatch),
	}
}

// RunTrial draws one ticket and checks it.
func (e *Engine) RunTrial(winning models.WinningDraw) (models.TrialRecord, error) {
	ticket, err := e.sampler.DrawTicket()
	if err != nil {
		return models.TrialRecord{}, err
	}
	return e.Check(ticket, winning), nil
}

// RunTrials runs n trials and returns them in generation order, so the last
// element is the most recently generated record.
func (e *Engine) RunTrials(ctx context.Context, n int, winning models.WinningDraw) ([]models.TrialRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: trial count must be positive, got %d", ErrInvalidParameter, n)
	}

	records := make([]models.TrialRecord, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && i%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}
		record, err := e.RunTrial(winning)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}
