package lotto

import "lottosim/internal/models"

// Classify maps a match count and bonus flag onto a prize rank.
// The bonus only matters at five matches, where it separates 2nd from 3rd.
func Classify(matchCount int, bonusMatch bool) models.Rank {
	switch matchCount {
	case 6:
		return models.First
	case 5:
		if bonusMatch {
			return models.Second
		}
		return models.Third
	case 4:
		return models.Fourth
	case 3:
		return models.Fifth
	default:
		return models.NoPrize
	}
}

// CountMatches returns how many numbers of ticket also appear in winning.
func CountMatches(ticket, winning models.Draw) int {
	matches := 0
	for _, n := range ticket {
		if winning.Contains(n) {
			matches++
		}
	}
	return matches
}
