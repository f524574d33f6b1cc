package service

import (
	"time"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/search"
	"github.com/castlemilk/demobank/internal/session"
)

type GetStateRequest struct{}

// StateResponse is returned by every call that can change provider state.
type StateResponse struct {
	Generation  uint64            `json:"generation"`
	Seed        int64             `json:"seed,omitempty"`
	GeneratedAt *time.Time        `json:"generatedAt,omitempty"`
	Selection   session.Selection `json:"selection"`
	View        bank.UserView     `json:"view"`
	Status      StatusMessage     `json:"status"`
}

// StatusMessage mirrors provider.Status for the wire.
type StatusMessage struct {
	Loading         bool   `json:"loading"`
	FirstRun        bool   `json:"firstRun"`
	DataUnavailable bool   `json:"dataUnavailable"`
	Error           string `json:"error,omitempty"`
}

// SelectUserRequest carries null for no user, "new" for signup, or a user ID.
type SelectUserRequest struct {
	Selection session.Selection `json:"selection"`
}

type RefreshRequest struct{}

type ClearRequest struct{}

type ListTransactionsRequest struct {
	// AccountID limits results to one account. Empty means all accounts in view.
	AccountID string `json:"accountId,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions  []bank.Transaction `json:"transactions"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

type SearchTransactionsRequest struct {
	Query     string         `json:"query,omitempty"`
	AccountID string         `json:"accountId,omitempty"`
	Category  string         `json:"category,omitempty"`
	Direction bank.Direction `json:"direction,omitempty"`
	AmountMin float64        `json:"amountMin,omitempty"`
	AmountMax float64        `json:"amountMax,omitempty"`
	StartDate *time.Time     `json:"startDate,omitempty"`
	EndDate   *time.Time     `json:"endDate,omitempty"`
	Page      int            `json:"page,omitempty"`
	PageSize  int            `json:"pageSize,omitempty"`
}

type SearchTransactionsResponse = search.Response

type ListUsersRequest struct{}

// UserSummary is one row of the admin profile switcher.
type UserSummary struct {
	User         bank.User `json:"user"`
	AccountCount int       `json:"accountCount"`
	CardCount    int       `json:"cardCount"`
	LoanCount    int       `json:"loanCount"`
	// TotalBalance is the summed deposit balance, formatted for display.
	TotalBalance string `json:"totalBalance"`
	Selected     bool   `json:"selected"`
}

type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}
