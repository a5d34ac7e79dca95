package lotto

import "lottosim/internal/models"

// History is the session's record of trials, newest batch first.
//
// Internally the batches are kept in the order they were added. Reads reverse
// the batch order but keep each batch's own generation order, which is the
// layout produced by prepending a whole batch to the front of the list.
type History struct {
	batches [][]models.TrialRecord
	length  int
}

// PrependBatch adds a batch, given in generation order, in front of all earlier
// records. The batch slice must not be modified afterwards.
func (h *History) PrependBatch(batch []models.TrialRecord) {
	if len(batch) == 0 {
		return
	}
	h.batches = append(h.batches, batch)
	h.length += len(batch)
}

// Len returns the number of records.
func (h *History) Len() int {
	return h.length
}

// Latest returns the most recently generated record, which is the last record of
// the most recent batch.
func (h *History) Latest() (models.TrialRecord, bool) {
	if len(h.batches) == 0 {
		return models.TrialRecord{}, false
	}
	last := h.batches[len(h.batches)-1]
	return last[len(last)-1], true
}

// Page returns up to limit records starting at offset in newest-batch-first order.
// A non-positive limit means no limit.
func (h *History) Page(offset, limit int) []models.TrialRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= h.length {
		return []models.TrialRecord{}
	}
	remaining := h.length - offset
	if limit <= 0 || limit > remaining {
		limit = remaining
	}

	out := make([]models.TrialRecord, 0, limit)
	skip := offset
	for i := len(h.batches) - 1; i >= 0 && len(out) < limit; i-- {
		batch := h.batches[i]
		if skip >= len(batch) {
			skip -= len(batch)
			continue
		}
		end := skip + (limit - len(out))
		if end > len(batch) {
			end = len(batch)
		}
		out = append(out, batch[skip:end]...)
		skip = 0
	}
	return out
}

// All returns every record in newest-batch-first order.
func (h *History) All() []models.TrialRecord {
	return h.Page(0, 0)
}

// Reset drops every record.
func (h *History) Reset() {
	h.batches = nil
	h.length = 0
}
