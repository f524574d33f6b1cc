// Package search finds transactions within the active session's view.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlemilk/demobank/internal/bank"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Params defines a transaction search.
type Params struct {
	Query     string
	AccountID string
	Category  string
	Direction bank.Direction
	// Amount range in dollars, compared against the absolute amount.
	AmountMin float64
	AmountMax float64
	StartDate *time.Time
	EndDate   *time.Time
	// Pagination (offset-based, zero-indexed pages)
	Page     int
	PageSize int
}

// Result is one matching transaction.
type Result struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Merchant  string          `json:"merchant"`
	Category  string          `json:"category"`
	Icon      string          `json:"icon"`
	Amount    decimal.Decimal `json:"amount"`
	Direction bank.Direction  `json:"direction"`
	Date      time.Time       `json:"date"`
}

// Response is one page of results.
type Response struct {
	Results    []Result `json:"results"`
	TotalCount int      `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
	Page       int      `json:"page"`
}

// Searcher searches the transactions of the user in view. Implementations
// never return transactions belonging to another user.
type Searcher interface {
	Search(ctx context.Context, v bank.UserView, params Params) (*Response, error)
}

// LocalSearcher searches the view in memory.
type LocalSearcher struct{}

// NewLocalSearcher returns an in-memory Searcher.
func NewLocalSearcher() *LocalSearcher {
	return &LocalSearcher{}
}

// Search filters the view's transactions, newest first.
func (s *LocalSearcher) Search(ctx context.Context, v bank.UserView, params Params) (*Response, error) {
	page, pageSize := normalizePage(params)
	if v.User == nil {
		return &Response{Results: []Result{}, Page: page}, nil
	}

	txs := v.AllTransactions()
	bank.SortNewestFirst(txs)

	matched := make([]Result, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID != v.User.ID || !matches(tx, params) {
			continue
		}
		matched = append(matched, toResult(tx))
	}

	total := len(matched)
	start := page * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &Response{
		Results:    matched[start:end],
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
	}, nil
}

func matches(tx bank.Transaction, params Params) bool {
	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		if !strings.Contains(strings.ToLower(tx.Merchant), q) && !strings.Contains(strings.ToLower(tx.Category), q) {
			return false
		}
	}
	if params.AccountID != "" && tx.AccountID != params.AccountID {
		return false
	}
	if params.Category != "" && !strings.EqualFold(tx.Category, params.Category) {
		return false
	}
	if params.Direction != "" && tx.Direction != params.Direction {
		return false
	}

	amount := tx.Amount.Abs()
	if params.AmountMin > 0 && amount.LessThan(decimal.NewFromFloat(params.AmountMin)) {
		return false
	}
	if params.AmountMax > 0 && amount.GreaterThan(decimal.NewFromFloat(params.AmountMax)) {
		return false
	}
	if params.StartDate != nil && tx.Date.Before(*params.StartDate) {
		return false
	}
	if params.EndDate != nil && tx.Date.After(*params.EndDate) {
		return false
	}
	return true
}

func normalizePage(params Params) (page, pageSize int) {
	pageSize = params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page = params.Page
	if page < 0 {
		page = 0
	}
	return page, pageSize
}

func toResult(tx bank.Transaction) Result {
	return Result{
		ID:        tx.ID,
		AccountID: tx.AccountID,
		Merchant:  tx.Merchant,
		Category:  tx.Category,
		Icon:      tx.Icon,
		Amount:    tx.Amount,
		Direction: tx.Direction,
		Date:      tx.Date,
	}
}
