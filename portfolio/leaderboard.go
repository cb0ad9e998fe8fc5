package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// AgentStanding is one row of the collections leaderboard.
type AgentStanding struct {
	Rank      int
	Agent     string
	Collected decimal.Decimal
	Payments  int
}

// Leaderboard ranks agents by the amount they recorded as collected.
// Ties keep the order in which agents first appear in items.
func Leaderboard(items []finance.Installment) []AgentStanding {
	var standings []AgentStanding
	pos := make(map[string]int)

	for _, item := range items {
		if !item.Paid || item.RecordedBy == "" {
			continue
		}
		i, ok := pos[item.RecordedBy]
		if !ok {
			i = len(standings)
			pos[item.RecordedBy] = i
			standings = append(standings, AgentStanding{Agent: item.RecordedBy, Collected: decimal.Zero})
		}
		standings[i].Collected = standings[i].Collected.Add(item.PaidAmount)
		standings[i].Payments++
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Collected.GreaterThan(standings[j].Collected)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
