// Package bank holds the records that make up a demo banking dataset and the
// derived views built from them.
package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// DatasetVersion is bumped whenever the serialized Dataset shape changes.
const DatasetVersion = 1

// AccountKind identifies a deposit product.
type AccountKind string

const (
	AccountKindChecking    AccountKind = "checking"
	AccountKindSavings     AccountKind = "savings"
	AccountKindMoneyMarket AccountKind = "money_market"
	AccountKindCD          AccountKind = "certificate_of_deposit"
)

// Direction tells whether money moved into or out of an account.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
)

// CategoryOther collects outgoing transactions with no category.
const CategoryOther = "other"

// User is a demo bank customer.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Occupation  string    `json:"occupation"`
	City        string    `json:"city"`
	MemberSince time.Time `json:"memberSince"`
	LastLogin   time.Time `json:"lastLogin"`
}

// Account is a deposit account owned by a User.
type Account struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Kind             AccountKind     `json:"kind"`
	Nickname         string          `json:"nickname"`
	Number           string          `json:"number"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	InterestRate     decimal.Decimal `json:"interestRate"`
	OpenedAt         time.Time       `json:"openedAt"`
	MaturityDate     *time.Time      `json:"maturityDate,omitempty"`
}

// CreditCard is a revolving credit line owned by a User.
//
// AvailableCredit + CurrentBalance must equal CreditLimit. Build cards with
// NewCreditCard so the invariant holds at construction.
type CreditCard struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Name            string           `json:"name"`
	Network         string           `json:"network"`
	Last4           string           `json:"last4"`
	CreditLimit     decimal.Decimal  `json:"creditLimit"`
	CurrentBalance  decimal.Decimal  `json:"currentBalance"`
	AvailableCredit decimal.Decimal  `json:"availableCredit"`
	DueDate         time.Time        `json:"dueDate"`
	MinimumPayment  decimal.Decimal  `json:"minimumPayment"`
	RewardsProgram  string           `json:"rewardsProgram,omitempty"`
	RewardsBalance  *decimal.Decimal `json:"rewardsBalance,omitempty"`
}

// NewCreditCard returns a card whose AvailableCredit is derived from the limit
// and balance.
func NewCreditCard(id, userID string, limit, balance decimal.Decimal) CreditCard {
	return CreditCard{
		ID:              id,
		UserID:          userID,
		CreditLimit:     limit,
		CurrentBalance:  balance,
		AvailableCredit: limit.Sub(balance),
	}
}

// Loan is an installment loan owned by a User.
type Loan struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Kind              string          `json:"kind"`
	OriginalAmount    decimal.Decimal `json:"originalAmount"`
	CurrentBalance    decimal.Decimal `json:"currentBalance"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	MonthlyPayment    decimal.Decimal `json:"monthlyPayment"`
	NextPaymentDate   time.Time       `json:"nextPaymentDate"`
	TermPayments      int             `json:"termPayments"`
	PaymentsMade      int             `json:"paymentsMade"`
	PaymentsRemaining int             `json:"paymentsRemaining"`
}

// Transaction is a single posted or pending movement on an Account.
// Amount is negative for outgoing money.
type Transaction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	AccountID string            `json:"accountId"`
	Date      time.Time         `json:"date"`
	Merchant  string            `json:"merchant"`
	Category  string            `json:"category"`
	Icon      string            `json:"icon"`
	Amount    decimal.Decimal   `json:"amount"`
	Direction Direction         `json:"direction"`
	Status    TransactionStatus `json:"status"`
}

// TransactionDateGroup buckets transactions that happened on the same calendar day.
type TransactionDateGroup struct {
	Label        string        `json:"label"`
	Date         time.Time     `json:"date"`
	Transactions []Transaction `json:"transactions"`
}

// CategoryTotal is the outgoing spend for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Dataset is the aggregate root for all synthesized banking data.
type Dataset struct {
	Version     int       `json:"version"`
	Seed        int64     `json:"seed"`
	GeneratedAt time.Time `json:"generatedAt"`

	Users    []User       `json:"users"`
	Accounts []Account    `json:"accounts"`
	Cards    []CreditCard `json:"cards"`
	Loans    []Loan       `json:"loans"`

	// Transactions is keyed by user ID, then account ID.
	Transactions map[string]map[string][]Transaction `json:"transactions"`

	// GroupedTransactions and CategoryTotals are keyed by user ID and derived
	// from Transactions at GeneratedAt.
	GroupedTransactions map[string][]TransactionDateGroup `json:"groupedTransactions"`
	CategoryTotals      map[string][]CategoryTotal        `json:"categoryTotals,omitempty"`
}

// NewDataset returns an empty dataset with every collection allocated.
func NewDataset(seed int64, generatedAt time.Time) *Dataset {
	return &Dataset{
		Version:             DatasetVersion,
		Seed:                seed,
		GeneratedAt:         generatedAt,
		Users:               []User{},
		Accounts:            []Account{},
		Cards:               []CreditCard{},
		Loans:               []Loan{},
		Transactions:        map[string]map[string][]Transaction{},
		GroupedTransactions: map[string][]TransactionDateGroup{},
		CategoryTotals:      map[string][]CategoryTotal{},
	}
}

// FindUser returns the user with the given ID.
func (d *Dataset) FindUser(id string) (*User, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Users {
		if d.Users[i].ID == id {
			u := d.Users[i]
			return &u, true
		}
	}
	return nil, false
}

// UserTransactions flattens one user's transactions across accounts.
func (d *Dataset) UserTransactions(userID string) []Transaction {
	if d == nil {
		return nil
	}
	var out []Transaction
	for _, txs := range d.Transactions[userID] {
		out = append(out, txs...)
	}
	return out
}

// UserView is the slice of a Dataset visible to the current session selection.
type UserView struct {
	User                *User                    `json:"user"`
	Accounts            []Account                `json:"accounts"`
	Cards               []CreditCard             `json:"cards"`
	Loans               []Loan                   `json:"loans"`
	Transactions        map[string][]Transaction `json:"transactions"`
	GroupedTransactions []TransactionDateGroup   `json:"groupedTransactions"`
	CategoryTotals      []CategoryTotal          `json:"categoryTotals"`
}

// EmptyView returns a view with no user and empty, non-nil collections.
func EmptyView() UserView {
	return UserView{
		Accounts:            []Account{},
		Cards:               []CreditCard{},
		Loans:               []Loan{},
		Transactions:        map[string][]Transaction{},
		GroupedTransactions: []TransactionDateGroup{},
		CategoryTotals:      []CategoryTotal{},
	}
}

// AllTransactions flattens the view's transactions, newest first.
func (v UserView) AllTransactions() []Transaction {
	var out []Transaction
	for _, g := range v.GroupedTransactions {
		out = append(out, g.Transactions...)
	}
	return out
}
