package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is an amount aggregated under one category name.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary aggregates the entries of one period.
type Summary struct {
	Total      decimal.Decimal
	ByCategory []CategoryTotal
	Count      int
	EarliestAt time.Time
}

// Aggregate sums entries into a Summary. Category totals accumulate in
// first-appearance order and are then sorted by descending total; the sort
// is stable, so categories with equal totals keep their first-seen order.
func Aggregate(entries []Entry) Summary {
	s := Summary{Total: decimal.Zero, Count: len(entries)}
	index := make(map[string]int)
	for _, e := range entries {
		s.Total = s.Total.Add(e.Amount)
		i, ok := index[e.Category]
		if !ok {
			i = len(s.ByCategory)
			index[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		s.ByCategory[i].Total = s.ByCategory[i].Total.Add(e.Amount)
		if s.EarliestAt.IsZero() || e.CapturedAt.Before(s.EarliestAt) {
			s.EarliestAt = e.CapturedAt
		}
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Total.GreaterThan(s.ByCategory[j].Total)
	})
	return s
}
