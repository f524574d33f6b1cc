package synth

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/demobank/internal/bank"
)

var fixedNow = time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)

func generate(t *testing.T, seed int64) *bank.Dataset {
	t.Helper()
	ds, err := Generate(Options{Seed: seed, Now: fixedNow})
	require.NoError(t, err)
	return ds
}

func TestGenerateOwnershipInvariant(t *testing.T) {
	ds := generate(t, 7)

	users := map[string]bool{}
	for _, u := range ds.Users {
		users[u.ID] = true
	}
	require.Len(t, users, len(DefaultProfiles))

	for _, a := range ds.Accounts {
		assert.True(t, users[a.UserID], "account %s has unknown owner", a.ID)
	}
	for _, c := range ds.Cards {
		assert.True(t, users[c.UserID], "card %s has unknown owner", c.ID)
	}
	for _, l := range ds.Loans {
		assert.True(t, users[l.UserID], "loan %s has unknown owner", l.ID)
	}
	for userID, byAccount := range ds.Transactions {
		assert.True(t, users[userID])
		for _, txs := range byAccount {
			for _, tx := range txs {
				assert.True(t, users[tx.UserID], "transaction %s has unknown owner", tx.ID)
			}
		}
	}
}

func TestGenerateCardAndLoanInvariants(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 99, 123456789} {
		ds := generate(t, seed)
		require.NotEmpty(t, ds.Cards)
		require.NotEmpty(t, ds.Loans)

		for _, c := range ds.Cards {
			assert.True(t, c.AvailableCredit.Add(c.CurrentBalance).Equal(c.CreditLimit),
				"seed %d card %s: %s + %s != %s", seed, c.ID, c.AvailableCredit, c.CurrentBalance, c.CreditLimit)
			assert.False(t, c.CurrentBalance.IsNegative())
		}
		for _, l := range ds.Loans {
			assert.Equal(t, l.TermPayments, l.PaymentsMade+l.PaymentsRemaining, "seed %d loan %s", seed, l.ID)
			assert.Positive(t, l.PaymentsRemaining)
			assert.True(t, l.CurrentBalance.LessThan(l.OriginalAmount))
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := json.Marshal(generate(t, 42))
	require.NoError(t, err)
	b, err := json.Marshal(generate(t, 42))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	c, err := json.Marshal(generate(t, 43))
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(c))
}

func TestGenerateRandomSeedIsRecorded(t *testing.T) {
	ds, err := Generate(Options{Now: fixedNow})
	require.NoError(t, err)
	assert.NotZero(t, ds.Seed)

	replay, err := Generate(Options{Seed: ds.Seed, Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, ds.Users, replay.Users)
}

func TestGenerateUserWithoutProducts(t *testing.T) {
	ds, err := Generate(Options{
		Seed:     5,
		Now:      fixedNow,
		Profiles: []Profile{{DisplayName: "Empty Pockets", Username: "empty"}},
	})
	require.NoError(t, err)
	require.Len(t, ds.Users, 1)
	id := ds.Users[0].ID

	assert.Empty(t, ds.Accounts)
	assert.Empty(t, ds.Cards)
	assert.Empty(t, ds.Loans)

	require.Contains(t, ds.Transactions, id)
	assert.NotNil(t, ds.Transactions[id])
	require.Contains(t, ds.GroupedTransactions, id)
	assert.NotNil(t, ds.GroupedTransactions[id])
	require.Contains(t, ds.CategoryTotals, id)
	assert.NotNil(t, ds.CategoryTotals[id])

	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"accounts":[]`)
}

func TestGenerateTransactions(t *testing.T) {
	ds := generate(t, 11)

	for _, a := range ds.Accounts {
		txs := ds.Transactions[a.UserID][a.ID]
		require.NotEmpty(t, txs, "account %s has no history", a.ID)

		for i, tx := range txs {
			assert.Equal(t, a.ID, tx.AccountID)
			assert.False(t, tx.Date.After(fixedNow), "transaction %s is in the future", tx.ID)
			if i > 0 {
				assert.False(t, tx.Date.After(txs[i-1].Date), "account %s not newest first", a.ID)
			}
			switch tx.Direction {
			case bank.DirectionOutgoing:
				assert.True(t, tx.Amount.IsNegative())
			case bank.DirectionIncoming:
				assert.True(t, tx.Amount.IsPositive())
			default:
				t.Errorf("transaction %s has direction %q", tx.ID, tx.Direction)
			}
		}
		assert.True(t, bank.SameDay(txs[0].Date, fixedNow, time.UTC), "account %s has nothing today", a.ID)
	}
}

func TestGenerateDerivedViews(t *testing.T) {
	ds := generate(t, 21)

	for _, u := range ds.Users {
		txs := ds.UserTransactions(u.ID)
		groups := ds.GroupedTransactions[u.ID]

		count := 0
		for _, g := range groups {
			count += len(g.Transactions)
		}
		assert.Equal(t, len(txs), count, "user %s groups lose transactions", u.Username)
		if len(groups) > 0 {
			assert.Equal(t, bank.LabelToday, groups[0].Label)
		}

		spent := decimal.Zero
		for _, tx := range txs {
			if tx.Direction == bank.DirectionOutgoing {
				spent = spent.Add(tx.Amount.Abs())
			}
		}
		total := decimal.Zero
		for _, ct := range ds.CategoryTotals[u.ID] {
			total = total.Add(ct.Total)
			assert.NotEqual(t, "income", ct.Category)
			assert.NotEmpty(t, ct.Category)
		}
		assert.True(t, spent.Equal(total), "user %s totals %s, spent %s", u.Username, total, spent)
	}
}

func TestGenerateCertificateOfDepositMaturity(t *testing.T) {
	ds := generate(t, 8)
	found := false
	for _, a := range ds.Accounts {
		if a.Kind != bank.AccountKindCD {
			assert.Nil(t, a.MaturityDate)
			continue
		}
		found = true
		require.NotNil(t, a.MaturityDate)
		assert.True(t, a.MaturityDate.After(fixedNow))
	}
	assert.True(t, found)
}

func TestGenerateSurfacesBugsAsSynthesisError(t *testing.T) {
	ds, err := Generate(Options{
		Seed:     3,
		Now:      fixedNow,
		Profiles: []Profile{{DisplayName: "Broken", Username: "broken", Loans: []string{"timeshare"}}},
	})
	require.Error(t, err)
	assert.Nil(t, ds)

	var synthErr *SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Equal(t, int64(3), synthErr.Seed)
	assert.Contains(t, err.Error(), `unknown loan kind "timeshare"`)
}

func TestUserAndProductIDsSurviveReseed(t *testing.T) {
	first, err := Generate(Options{Seed: 1, Now: fixedNow})
	require.NoError(t, err)
	second, err := Generate(Options{Seed: 2, Now: fixedNow})
	require.NoError(t, err)

	ids := func(ds *bank.Dataset) []string {
		var out []string
		for _, u := range ds.Users {
			out = append(out, u.ID)
		}
		for _, a := range ds.Accounts {
			out = append(out, a.ID)
		}
		for _, c := range ds.Cards {
			out = append(out, c.ID)
		}
		for _, l := range ds.Loans {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Equal(t, ids(first), ids(second))

	// Transactions are still drawn from the seed.
	firstTx := first.UserTransactions(first.Users[0].ID)
	secondTx := second.UserTransactions(second.Users[0].ID)
	require.NotEmpty(t, firstTx)
	require.NotEmpty(t, secondTx)
	assert.NotEqual(t, firstTx[0].ID, secondTx[0].ID)
}

func TestGenerateRejectsDuplicateUsernames(t *testing.T) {
	_, err := Generate(Options{
		Seed: 4,
		Now:  fixedNow,
		Profiles: []Profile{
			{DisplayName: "One", Username: "twin"},
			{DisplayName: "Two", Username: "twin"},
		},
	})
	var synthErr *SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Contains(t, err.Error(), "duplicate user")
}

func TestAmortize(t *testing.T) {
	payment, balance := amortize(12000, 0, 12, 3)
	assert.InDelta(t, 1000, payment, 0.001)
	assert.InDelta(t, 9000, balance, 0.001)

	payment, balance = amortize(30000, 0.06/12, 60, 0)
	assert.InDelta(t, 579.98, payment, 0.01)
	assert.InDelta(t, 30000, balance, 0.01)

	_, balance = amortize(30000, 0.06/12, 60, 60)
	assert.InDelta(t, 0, balance, 0.01)
}

func TestMinimumPayment(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(minimumPayment(decimal.Zero)))
	assert.True(t, decimal.RequireFromString("10").Equal(minimumPayment(decimal.RequireFromString("10"))))
	assert.True(t, decimal.NewFromInt(25).Equal(minimumPayment(decimal.NewFromInt(500))))
	assert.True(t, decimal.NewFromInt(60).Equal(minimumPayment(decimal.NewFromInt(3000))))
}

func TestNewSeed(t *testing.T) {
	seed, err := NewSeed()
	require.NoError(t, err)
	assert.NotZero(t, seed)
}
