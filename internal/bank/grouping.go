package bank

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LabelToday     = "TODAY"
	LabelYesterday = "YESTERDAY"
	labelLayout    = "Jan 2, 2006"
)

// SortNewestFirst orders transactions by date descending. Ties break on ID so
// the order is stable across runs.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].Date.After(txs[j].Date)
	})
}

// GroupByDate buckets transactions by calendar day in now's location. Buckets
// and the transactions inside them are newest first. Days equal to now and the
// day before are labeled TODAY and YESTERDAY.
func GroupByDate(txs []Transaction, now time.Time) []TransactionDateGroup {
	groups := []TransactionDateGroup{}
	if len(txs) == 0 {
		return groups
	}

	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	SortNewestFirst(sorted)

	loc := now.Location()
	today := startOfDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)

	for _, tx := range sorted {
		day := startOfDay(tx.Date, loc)
		n := len(groups)
		if n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Transactions = append(groups[n-1].Transactions, tx)
			continue
		}
		groups = append(groups, TransactionDateGroup{
			Label:        dayLabel(day, today, yesterday),
			Date:         day,
			Transactions: []Transaction{tx},
		})
	}
	return groups
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return startOfDay(a, loc).Equal(startOfDay(b, loc))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func dayLabel(day, today, yesterday time.Time) string {
	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(yesterday):
		return LabelYesterday
	default:
		return day.Format(labelLayout)
	}
}

// SumCategories totals outgoing spend per category. Incoming money is ignored
// and blank categories count toward CategoryOther. Results are ordered by
// total descending, then by category name.
func SumCategories(txs []Transaction) []CategoryTotal {
	byCategory := map[string]*CategoryTotal{}
	for _, tx := range txs {
		if tx.Direction != DirectionOutgoing {
			continue
		}
		category := strings.TrimSpace(tx.Category)
		if category == "" {
			category = CategoryOther
		}
		ct, ok := byCategory[category]
		if !ok {
			ct = &CategoryTotal{Category: category, Total: decimal.Zero}
			byCategory[category] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount.Abs())
		ct.Count++
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		totals = append(totals, *ct)
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}
