package search

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/demobank/internal/bank"
)

var day = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func tx(id, account, merchant, category string, amount string, daysAgo int) bank.Transaction {
	d := decimal.RequireFromString(amount)
	dir := bank.DirectionOutgoing
	if d.IsPositive() {
		dir = bank.DirectionIncoming
	}
	return bank.Transaction{
		ID:        id,
		UserID:    "u1",
		AccountID: account,
		Date:      day.AddDate(0, 0, -daysAgo),
		Merchant:  merchant,
		Category:  category,
		Amount:    d,
		Direction: dir,
		Status:    bank.StatusCompleted,
	}
}

func testView() bank.UserView {
	txs := []bank.Transaction{
		tx("t1", "a1", "Blue Bottle Coffee", "dining", "-6.50", 0),
		tx("t2", "a1", "Whole Foods", "groceries", "-84.12", 1),
		tx("t3", "a1", "Acme Payroll", "income", "2400.00", 3),
		tx("t4", "a2", "City Transit", "transport", "-2.75", 5),
		tx("t5", "a2", "Coffee Collective", "dining", "-4.25", 9),
	}
	v := bank.EmptyView()
	v.User = &bank.User{ID: "u1"}
	for _, t := range txs {
		v.Transactions[t.AccountID] = append(v.Transactions[t.AccountID], t)
	}
	v.GroupedTransactions = bank.GroupByDate(txs, day)
	return v
}

func ids(resp *Response) []string {
	out := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.ID)
	}
	return out
}

func TestLocalSearcher(t *testing.T) {
	start := day.AddDate(0, 0, -4)

	tests := []struct {
		name   string
		params Params
		want   []string
	}{
		{name: "everything newest first", params: Params{}, want: []string{"t1", "t2", "t3", "t4", "t5"}},
		{name: "query matches merchant case-insensitively", params: Params{Query: "coffee"}, want: []string{"t1", "t5"}},
		{name: "query matches category", params: Params{Query: "groc"}, want: []string{"t2"}},
		{name: "account", params: Params{AccountID: "a2"}, want: []string{"t4", "t5"}},
		{name: "category", params: Params{Category: "DINING"}, want: []string{"t1", "t5"}},
		{name: "incoming only", params: Params{Direction: bank.DirectionIncoming}, want: []string{"t3"}},
		{name: "amount range uses absolute value", params: Params{AmountMin: 5, AmountMax: 100}, want: []string{"t1", "t2"}},
		{name: "date range", params: Params{StartDate: &start}, want: []string{"t1", "t2", "t3"}},
		{name: "no match", params: Params{Query: "zzz"}, want: []string{}},
	}

	s := NewLocalSearcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Search(context.Background(), testView(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(resp))
			assert.Equal(t, len(tt.want), resp.TotalCount)
		})
	}
}

func TestLocalSearcherPaginates(t *testing.T) {
	s := NewLocalSearcher()

	resp, err := s.Search(context.Background(), testView(), Params{PageSize: 2, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t4"}, ids(resp))
	assert.Equal(t, 5, resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 1, resp.Page)

	resp, err = s.Search(context.Background(), testView(), Params{PageSize: 2, Page: 7})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestLocalSearcherWithoutUser(t *testing.T) {
	v := testView()
	v.User = nil

	resp, err := NewLocalSearcher().Search(context.Background(), v, Params{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalCount)
}

func TestLocalSearcherDropsForeignTransactions(t *testing.T) {
	v := testView()
	foreign := tx("x1", "a1", "Blue Bottle Coffee", "dining", "-1.00", 0)
	foreign.UserID = "u2"
	v.GroupedTransactions[0].Transactions = append(v.GroupedTransactions[0].Transactions, foreign)

	resp, err := NewLocalSearcher().Search(context.Background(), v, Params{Query: "blue"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(resp))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name         string
		params       Params
		wantPage     int
		wantPageSize int
	}{
		{name: "defaults", params: Params{}, wantPage: 0, wantPageSize: 25},
		{name: "capped", params: Params{PageSize: 500}, wantPage: 0, wantPageSize: 100},
		{name: "negative page", params: Params{Page: -3, PageSize: 10}, wantPage: 0, wantPageSize: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := normalizePage(tt.params)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, size)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{name: "user only", params: Params{}, want: `UserId:"u1"`},
		{
			name:   "category and direction",
			params: Params{Category: "dining", Direction: bank.DirectionOutgoing},
			want:   `UserId:"u1" AND Category:"dining" AND Direction:"outgoing"`,
		},
		{
			name:   "amounts in cents",
			params: Params{AmountMin: 5, AmountMax: 99.99},
			want:   `UserId:"u1" AND AmountCents >= 500 AND AmountCents <= 9999`,
		},
		{
			name:   "account and start date",
			params: Params{AccountID: "a1", StartDate: &start},
			want:   `UserId:"u1" AND AccountId:"a1" AND DateUnix >= 1700000000`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilters("u1", tt.params))
		})
	}
}

func TestStaleRecordFilter(t *testing.T) {
	ds := bank.NewDataset(42, time.Unix(1700000000, 5).UTC())
	tag := datasetTag(ds)
	assert.Equal(t, "42-1700000000000000005", tag)
	assert.Equal(t, `NOT Dataset:"42-1700000000000000005"`, staleFilter(tag))

	reloaded := bank.NewDataset(42, ds.GeneratedAt.In(time.FixedZone("EST", -5*3600)))
	assert.Equal(t, tag, datasetTag(reloaded))
	assert.NotEqual(t, tag, datasetTag(bank.NewDataset(43, ds.GeneratedAt)))
}

func TestRecordHitConversion(t *testing.T) {
	original := tx("t9", "a1", "Whole Foods", "groceries", "-84.12", 2)
	record := transactionRecord(original, "7-100")
	assert.Equal(t, "7-100", record["Dataset"])
	assert.Equal(t, int64(8412), record["AmountCents"])
	assert.Equal(t, "u1", record["UserId"])

	// Algolia returns numbers as float64.
	hit := map[string]any{}
	for k, v := range record {
		hit[k] = v
	}
	hit["DateUnix"] = float64(original.Date.Unix())

	got, ok := hitToResult(hit)
	require.True(t, ok)
	assert.Equal(t, "t9", got.ID)
	assert.Equal(t, "Whole Foods", got.Merchant)
	assert.True(t, original.Amount.Equal(got.Amount))
	assert.True(t, original.Date.Equal(got.Date))
	assert.Equal(t, bank.DirectionOutgoing, got.Direction)

	_, ok = hitToResult(map[string]any{"Merchant": "no id"})
	assert.False(t, ok)
}
