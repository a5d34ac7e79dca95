package models

import (
	"fmt"
	"time"
)

const (
	// PoolSize is the highest number that can be drawn.
	PoolSize = 45
	// DrawSize is the number of main numbers in a draw or ticket.
	DrawSize = 6
)

// Rank is the prize tier a ticket lands in.
// The zero value is NoPrize.
type Rank int

const (
	NoPrize Rank = iota
	First
	Second
	Third
	Fourth
	Fifth
)

// Ranks lists every rank from most to least desirable.
var Ranks = []Rank{First, Second, Third, Fourth, Fifth, NoPrize}

var rankLabels = map[Rank]string{
	First:   "1st",
	Second:  "2nd",
	Third:   "3rd",
	Fourth:  "4th",
	Fifth:   "5th",
	NoPrize: "none",
}

// String returns the label used in JSON and CSV output.
func (r Rank) String() string {
	if label, ok := rankLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("Rank(%d)", int(r))
}

// Valid reports whether r is one of the six known ranks.
func (r Rank) Valid() bool {
	_, ok := rankLabels[r]
	return ok
}

// order maps a rank onto its position in the desirability ordering, 1st being 0.
func (r Rank) order() int {
	if r == NoPrize {
		return len(Ranks) - 1
	}
	return int(r) - 1
}

// Better reports whether r is strictly more desirable than other.
func (r Rank) Better(other Rank) bool {
	return r.order() < other.order()
}

// MarshalText implements encoding.TextMarshaler so ranks serialise as labels,
// including when used as map keys.
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRank converts a label produced by Rank.String back into a Rank.
func ParseRank(label string) (Rank, error) {
	for rank, l := range rankLabels {
		if l == label {
			return rank, nil
		}
	}
	return NoPrize, fmt.Errorf("unknown rank %q", label)
}

// Draw is a set of six distinct numbers in [1, PoolSize], kept in draw order.
type Draw [DrawSize]int

// NewDraw builds a Draw from the given numbers and validates it.
func NewDraw(numbers []int) (Draw, error) {
	var d Draw
	if len(numbers) != DrawSize {
		return d, fmt.Errorf("draw needs %d numbers, got %d", DrawSize, len(numbers))
	}
	copy(d[:], numbers)
	return d, d.Validate()
}

// Validate checks range and uniqueness.
func (d Draw) Validate() error {
	var seen [PoolSize + 1]bool
	for _, n := range d {
		if n < 1 || n > PoolSize {
			return fmt.Errorf("number %d out of range [1,%d]", n, PoolSize)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// Contains reports whether n is one of the draw's numbers.
func (d Draw) Contains(n int) bool {
	for _, v := range d {
		if v == n {
			return true
		}
	}
	return false
}

// Numbers returns a copy of the draw as a slice.
func (d Draw) Numbers() []int {
	out := make([]int, DrawSize)
	copy(out, d[:])
	return out
}

// WinningDraw is the simulated winning combination: six numbers plus the bonus.
type WinningDraw struct {
	Numbers Draw `json:"numbers"`
	Bonus   int  `json:"bonusNumber"`
}

// TrialRecord is the outcome of checking one simulated ticket.
type TrialRecord struct {
	ID         string    `json:"id"`
	Numbers    Draw      `json:"numbers"`
	Timestamp  time.Time `json:"timestamp"`
	MatchCount int       `json:"matchCount"`
	BonusMatch bool      `json:"bonusMatch"`
	Rank       Rank      `json:"rank"`
}

// PrizeTable maps each prize rank to its payout in won.
type PrizeTable map[Rank]int64

// Payout returns the amount paid for rank; missing ranks and NoPrize pay nothing.
func (t PrizeTable) Payout(rank Rank) int64 {
	if rank == NoPrize {
		return 0
	}
	return t[rank]
}

// Snapshot is the statistics view of a history.
type Snapshot struct {
	BestRank      Rank         `json:"bestRank"`
	TotalProfit   int64        `json:"totalProfit"`
	TotalWinnings int64        `json:"totalWinnings"`
	TotalSpent    int64        `json:"totalSpent"`
	Trials        int          `json:"trials"`
	RankCounts    map[Rank]int `json:"rankCounts"`
}

// LatestNumbers is the most recent official result scraped from the lottery site.
type LatestNumbers struct {
	Numbers     []int `json:"numbers"`
	BonusNumber int   `json:"bonusNumber"`
}
