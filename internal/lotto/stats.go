package lotto

import "lottosim/internal/models"

// TicketPrice is what a single simulated ticket costs, in won.
const TicketPrice int64 = 1000

// Aggregate folds a history into a statistics snapshot. It is a pure function of
// its arguments.
func Aggregate(records []models.TrialRecord, table models.PrizeTable) models.Snapshot {
	var t Tally
	t.Add(records...)
	return t.Snapshot(table)
}

// Tally keeps running totals so statistics do not need a full pass over the
// history after every batch. The zero value is an empty tally.
type Tally struct {
	trials int
	counts [len(rankSlots)]int
}

// rankSlots fixes the index of each rank inside Tally.counts.
var rankSlots = [...]models.Rank{
	models.First, models.Second, models.Third, models.Fourth, models.Fifth, models.NoPrize,
}

func slotOf(rank models.Rank) int {
	switch rank {
	case models.First:
		return 0
	case models.Second:
		return 1
	case models.Third:
		return 2
	case models.Fourth:
		return 3
	case models.Fifth:
		return 4
	default:
		return 5
	}
}

// Add counts the given records.
func (t *Tally) Add(records ...models.TrialRecord) {
	for _, r := range records {
		t.counts[slotOf(r.Rank)]++
	}
	t.trials += len(records)
}

// Reset clears all totals.
func (t *Tally) Reset() {
	*t = Tally{}
}

// Trials returns how many records have been counted.
func (t *Tally) Trials() int {
	return t.trials
}

// Snapshot computes the statistics for everything counted so far. Prizes are
// looked up in table at call time, so a table loaded late still applies to
// earlier trials.
func (t *Tally) Snapshot(table models.PrizeTable) models.Snapshot {
	snap := models.Snapshot{
		BestRank:   models.NoPrize,
		Trials:     t.trials,
		TotalSpent: int64(t.trials) * TicketPrice,
		RankCounts: make(map[models.Rank]int, len(rankSlots)),
	}
	for i, rank := range rankSlots {
		count := t.counts[i]
		snap.RankCounts[rank] = count
		if count == 0 {
			continue
		}
		if rank.Better(snap.BestRank) {
			snap.BestRank = rank
		}
		snap.TotalWinnings += int64(count) * table.Payout(rank)
	}
	snap.TotalProfit = snap.TotalWinnings - snap.TotalSpent
	return snap
}
