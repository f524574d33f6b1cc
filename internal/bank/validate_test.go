package bank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDataset() *Dataset {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ds := NewDataset(1, now)
	ds.Users = []User{{ID: "u1"}}
	ds.Accounts = []Account{{ID: "a1", UserID: "u1", Kind: AccountKindChecking}}
	ds.Cards = []CreditCard{NewCreditCard("c1", "u1", decimal.NewFromInt(5000), decimal.RequireFromString("1234.56"))}
	ds.Loans = []Loan{{ID: "l1", UserID: "u1", TermPayments: 60, PaymentsMade: 12, PaymentsRemaining: 48}}
	ds.Transactions["u1"] = map[string][]Transaction{
		"a1": {{ID: "t1", UserID: "u1", AccountID: "a1", Date: now, Amount: decimal.NewFromInt(-5)}},
	}
	return ds
}

func TestNewCreditCardKeepsAvailableCreditInvariant(t *testing.T) {
	card := NewCreditCard("c1", "u1", decimal.NewFromInt(2500), decimal.RequireFromString("812.34"))
	assert.True(t, decimal.RequireFromString("1687.66").Equal(card.AvailableCredit))
	assert.True(t, card.AvailableCredit.Add(card.CurrentBalance).Equal(card.CreditLimit))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(ds *Dataset)
		errContains string
	}{
		{
			name:   "valid dataset",
			mutate: func(ds *Dataset) {},
		},
		{
			name:        "orphan account",
			mutate:      func(ds *Dataset) { ds.Accounts[0].UserID = "ghost" },
			errContains: `account a1 references unknown user "ghost"`,
		},
		{
			name:        "duplicate user",
			mutate:      func(ds *Dataset) { ds.Users = append(ds.Users, User{ID: "u1"}) },
			errContains: "duplicate user u1",
		},
		{
			name:        "broken card arithmetic",
			mutate:      func(ds *Dataset) { ds.Cards[0].AvailableCredit = decimal.NewFromInt(5000) },
			errContains: "card c1",
		},
		{
			name:        "loan payment count mismatch",
			mutate:      func(ds *Dataset) { ds.Loans[0].PaymentsRemaining = 47 },
			errContains: "loan l1: 12 made + 47 remaining != term 60",
		},
		{
			name: "transaction filed under the wrong account",
			mutate: func(ds *Dataset) {
				ds.Transactions["u1"]["a1"][0].AccountID = "a2"
			},
			errContains: "transaction t1 filed under u1/a1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := validDataset()
			tt.mutate(ds)

			err := Validate(ds)
			if tt.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateNilDataset(t *testing.T) {
	assert.Error(t, Validate(nil))
}
