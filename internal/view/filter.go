// Package view derives the per-session slice of a dataset.
package view

import (
	"time"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/session"
)

// Filter derives UserViews. It keeps no state between calls; every view is
// rebuilt from the dataset and selection it is given.
type Filter struct {
	// Now is the clock used for TODAY/YESTERDAY labels. Nil means time.Now.
	Now func() time.Time
}

// FilterForUser derives the view for sel using the wall clock.
func FilterForUser(ds *bank.Dataset, sel session.Selection) bank.UserView {
	return Filter{}.ForUser(ds, sel)
}

// ForUser derives the view for sel:
//
//   - None: no user, every account, card and loan in the dataset, and no
//     transactions.
//   - NewUser: an entirely empty view.
//   - User: only records owned by that ID. An unknown ID yields a nil User
//     and empty collections.
//
// The returned view never aliases the dataset's slices.
func (f Filter) ForUser(ds *bank.Dataset, sel session.Selection) bank.UserView {
	v := bank.EmptyView()
	if ds == nil {
		return v
	}

	switch sel.Kind {
	case session.KindNew:
		return v
	case session.KindNone:
		// Unscoped products with no activity is the admin switcher's view.
		v.Accounts = append(v.Accounts, ds.Accounts...)
		v.Cards = append(v.Cards, ds.Cards...)
		v.Loans = append(v.Loans, ds.Loans...)
		return v
	case session.KindUser:
		return f.forUserID(ds, sel.UserID)
	default:
		return v
	}
}

func (f Filter) forUserID(ds *bank.Dataset, userID string) bank.UserView {
	v := bank.EmptyView()
	if u, ok := ds.FindUser(userID); ok {
		v.User = u
	}

	for _, a := range ds.Accounts {
		if a.UserID == userID {
			v.Accounts = append(v.Accounts, a)
			v.Transactions[a.ID] = []bank.Transaction{}
		}
	}
	for _, c := range ds.Cards {
		if c.UserID == userID {
			v.Cards = append(v.Cards, c)
		}
	}
	for _, l := range ds.Loans {
		if l.UserID == userID {
			v.Loans = append(v.Loans, l)
		}
	}

	var all []bank.Transaction
	for accountID, txs := range ds.Transactions[userID] {
		owned := make([]bank.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.UserID == userID {
				owned = append(owned, tx)
			}
		}
		v.Transactions[accountID] = owned
		all = append(all, owned...)
	}

	now := f.now()
	if cached, ok := ds.GroupedTransactions[userID]; ok && bank.SameDay(ds.GeneratedAt, now, now.Location()) {
		v.GroupedTransactions = copyGroups(cached, userID)
	} else {
		v.GroupedTransactions = bank.GroupByDate(all, now)
	}

	if totals, ok := ds.CategoryTotals[userID]; ok {
		v.CategoryTotals = append(v.CategoryTotals, totals...)
	} else {
		v.CategoryTotals = bank.SumCategories(all)
	}
	return v
}

func (f Filter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func copyGroups(groups []bank.TransactionDateGroup, userID string) []bank.TransactionDateGroup {
	out := make([]bank.TransactionDateGroup, 0, len(groups))
	for _, g := range groups {
		txs := make([]bank.Transaction, 0, len(g.Transactions))
		for _, tx := range g.Transactions {
			if tx.UserID == userID {
				txs = append(txs, tx)
			}
		}
		if len(txs) == 0 {
			continue
		}
		out = append(out, bank.TransactionDateGroup{Label: g.Label, Date: g.Date, Transactions: txs})
	}
	return out
}
