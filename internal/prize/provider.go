package prize

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/logger"

	"lottosim/internal/config"
	"lottosim/internal/models"
)

// ErrDataUnavailable indicates the prize source could not supply a table
var ErrDataUnavailable = errors.New("LOTTO_200: prize data unavailable")

// Provider supplies the payout for each prize rank.
type Provider interface {
	PrizeTable(ctx context.Context) (models.PrizeTable, error)
}

// DefaultTable returns the example payouts used when nothing else is configured.
func DefaultTable() models.PrizeTable {
	return models.PrizeTable{
		models.First:  2_000_000_000,
		models.Second: 50_000_000,
		models.Third:  1_500_000,
		models.Fourth: 50_000,
		models.Fifth:  5_000,
	}
}

// StaticProvider always returns the same table.
type StaticProvider struct {
	table models.PrizeTable
}

// NewStaticProvider returns a provider for table, or for DefaultTable when table is nil.
func NewStaticProvider(table models.PrizeTable) *StaticProvider {
	if table == nil {
		table = DefaultTable()
	}
	return &StaticProvider{table: table}
}

func (p *StaticProvider) PrizeTable(ctx context.Context) (models.PrizeTable, error) {
	return clone(p.table), nil
}

// ConfigProvider builds the table from the prizes section of the config.
type ConfigProvider struct {
	cfg *config.PrizesConfig
}

func NewConfigProvider(cfg *config.PrizesConfig) *ConfigProvider {
	return &ConfigProvider{cfg: cfg}
}

// PrizeTable returns the configured amounts. Unset ranks are left out and pay 0.
// If no rank is configured at all it returns ErrDataUnavailable.
func (p *ConfigProvider) PrizeTable(ctx context.Context) (models.PrizeTable, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("%w: no prizes section", ErrDataUnavailable)
	}
	table := models.PrizeTable{}
	for rank, amount := range map[models.Rank]int64{
		models.First:  p.cfg.First,
		models.Second: p.cfg.Second,
		models.Third:  p.cfg.Third,
		models.Fourth: p.cfg.Fourth,
		models.Fifth:  p.cfg.Fifth,
	} {
		if amount > 0 {
			table[rank] = amount
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: no prize amounts configured", ErrDataUnavailable)
	}
	return table, nil
}

// FallbackProvider tries each provider in order and returns the first table obtained.
type FallbackProvider []Provider

func (f FallbackProvider) PrizeTable(ctx context.Context) (models.PrizeTable, error) {
	errs := make([]error, 0, len(f))
	for _, p := range f {
		table, err := p.PrizeTable(ctx)
		if err == nil {
			return table, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, errors.Join(errs...))
}

// Load fetches the table and degrades any failure to an empty table, which makes
// every rank pay 0. The failure is logged and never returned.
func Load(ctx context.Context, provider Provider) models.PrizeTable {
	table, err := provider.PrizeTable(ctx)
	if err != nil {
		logger.Errorf("Failed to load prize table, all payouts will be 0: %v", err)
		return models.PrizeTable{}
	}
	return table
}

// Cache fetches from its provider once and serves that table for the rest of the process.
type Cache struct {
	provider Provider
	once     sync.Once
	table    models.PrizeTable
}

func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider}
}

// Table loads the table on first use via Load and returns a copy of it.
func (c *Cache) Table(ctx context.Context) models.PrizeTable {
	c.once.Do(func() {
		c.table = Load(ctx, c.provider)
	})
	return clone(c.table)
}

// PrizeTable satisfies Provider. The error is always nil.
func (c *Cache) PrizeTable(ctx context.Context) (models.PrizeTable, error) {
	return c.Table(ctx), nil
}

func clone(t models.PrizeTable) models.PrizeTable {
	out := make(models.PrizeTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
