package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/logger"
	"github.com/castlemilk/demobank/internal/provider"
	"github.com/castlemilk/demobank/internal/search"
	"github.com/castlemilk/demobank/internal/session"
	"github.com/castlemilk/demobank/internal/store"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 200
)

// Provider is the dataset provider the service exposes.
type Provider interface {
	State() provider.State
	Refresh(ctx context.Context) error
	Clear(ctx context.Context) error
	SelectUser(ctx context.Context, sel session.Selection) error
}

// BankService serves the session-scoped dataset over connect.
type BankService struct {
	provider Provider
	searcher search.Searcher
	log      zerolog.Logger
}

// NewBankService returns the service. A nil searcher searches in memory.
func NewBankService(p Provider, searcher search.Searcher, log zerolog.Logger) *BankService {
	if searcher == nil {
		searcher = search.NewLocalSearcher()
	}
	return &BankService{
		provider: p,
		searcher: searcher,
		log:      log,
	}
}

// GetState returns the current selection, view and loading status. A failed
// synthesis is reported as data unavailable, not as an RPC error.
func (s *BankService) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[StateResponse], error) {
	return connect.NewResponse(stateResponse(s.provider.State())), nil
}

// SelectUser switches the active session. Persist failures are logged; the
// new view is returned regardless.
func (s *BankService) SelectUser(ctx context.Context, req *connect.Request[SelectUserRequest]) (*connect.Response[StateResponse], error) {
	sel := req.Msg.Selection
	if err := s.provider.SelectUser(ctx, sel); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("selection", sel.String()).Msg("selection kept in memory only")
	}
	return connect.NewResponse(stateResponse(s.provider.State())), nil
}

// Refresh regenerates the dataset.
func (s *BankService) Refresh(ctx context.Context, req *connect.Request[RefreshRequest]) (*connect.Response[StateResponse], error) {
	if err := s.provider.Refresh(ctx); err != nil {
		return nil, providerError(err)
	}
	return connect.NewResponse(stateResponse(s.provider.State())), nil
}

// Clear evicts the cached dataset.
func (s *BankService) Clear(ctx context.Context, req *connect.Request[ClearRequest]) (*connect.Response[StateResponse], error) {
	if err := s.provider.Clear(ctx); err != nil {
		return nil, providerError(err)
	}
	return connect.NewResponse(stateResponse(s.provider.State())), nil
}

// ListTransactions pages through the active view's transactions, newest first.
func (s *BankService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	view := s.provider.State().View

	var txs []bank.Transaction
	if req.Msg.AccountID != "" {
		accountTxs, ok := view.Transactions[req.Msg.AccountID]
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("account %q not in view", req.Msg.AccountID))
		}
		txs = append(txs, accountTxs...)
	} else {
		txs = view.AllTransactions()
	}
	bank.SortNewestFirst(txs)

	pageSize := req.Msg.PageSize
	if pageSize <= 0 {
		pageSize = defaultTransactionPageSize
	}
	if pageSize > maxTransactionPageSize {
		pageSize = maxTransactionPageSize
	}

	cursor, err := store.DecodePageToken(req.Msg.PageToken)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid page token: %w", err))
	}
	start := 0
	if cursor != "" {
		idx := indexOf(txs, cursor)
		if idx < 0 {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("page token does not match the current view"))
		}
		start = idx + 1
	}

	end := start + pageSize
	if end > len(txs) {
		end = len(txs)
	}
	page := make([]bank.Transaction, 0, end-start)
	page = append(page, txs[start:end]...)

	resp := &ListTransactionsResponse{Transactions: page}
	if end < len(txs) && len(page) > 0 {
		resp.NextPageToken = store.EncodePageToken(page[len(page)-1].ID)
	}
	return connect.NewResponse(resp), nil
}

// SearchTransactions searches the active view only.
func (s *BankService) SearchTransactions(ctx context.Context, req *connect.Request[SearchTransactionsRequest]) (*connect.Response[SearchTransactionsResponse], error) {
	params := search.Params{
		Query:     req.Msg.Query,
		AccountID: req.Msg.AccountID,
		Category:  req.Msg.Category,
		Direction: req.Msg.Direction,
		AmountMin: req.Msg.AmountMin,
		AmountMax: req.Msg.AmountMax,
		StartDate: req.Msg.StartDate,
		EndDate:   req.Msg.EndDate,
		Page:      req.Msg.Page,
		PageSize:  req.Msg.PageSize,
	}
	if params.AmountMin > 0 && params.AmountMax > 0 && params.AmountMin > params.AmountMax {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("amountMin exceeds amountMax"))
	}

	resp, err := s.searcher.Search(ctx, s.provider.State().View, params)
	if err != nil {
		s.log.Error().Err(err).Msg("transaction search failed")
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("search transactions: %w", err))
	}
	return connect.NewResponse(resp), nil
}

// ListUsers backs the admin profile switcher.
func (s *BankService) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	state := s.provider.State()
	if state.Dataset == nil {
		if state.Status.Err != nil {
			return nil, providerError(state.Status.Err)
		}
		return connect.NewResponse(&ListUsersResponse{Users: []UserSummary{}}), nil
	}

	ds := state.Dataset
	summaries := make([]UserSummary, 0, len(ds.Users))
	index := make(map[string]int, len(ds.Users))
	balances := make([]decimal.Decimal, len(ds.Users))
	for i, u := range ds.Users {
		index[u.ID] = i
		summaries = append(summaries, UserSummary{
			User:     u,
			Selected: state.Selection.Kind == session.KindUser && state.Selection.UserID == u.ID,
		})
	}
	for _, a := range ds.Accounts {
		if i, ok := index[a.UserID]; ok {
			summaries[i].AccountCount++
			balances[i] = balances[i].Add(a.Balance)
		}
	}
	for _, c := range ds.Cards {
		if i, ok := index[c.UserID]; ok {
			summaries[i].CardCount++
		}
	}
	for _, l := range ds.Loans {
		if i, ok := index[l.UserID]; ok {
			summaries[i].LoanCount++
		}
	}
	for i := range summaries {
		summaries[i].TotalBalance = bank.FormatUSD(balances[i])
	}

	return connect.NewResponse(&ListUsersResponse{Users: summaries}), nil
}

func stateResponse(st provider.State) *StateResponse {
	resp := &StateResponse{
		Generation: st.Generation,
		Selection:  st.Selection,
		View:       st.View,
		Status: StatusMessage{
			Loading:  st.Status.Loading,
			FirstRun: st.Status.FirstRun,
		},
	}
	if st.Dataset != nil {
		generatedAt := st.Dataset.GeneratedAt
		resp.Seed = st.Dataset.Seed
		resp.GeneratedAt = &generatedAt
	}
	if st.Status.Err != nil {
		resp.Status.DataUnavailable = errors.Is(st.Status.Err, provider.ErrDataUnavailable)
		resp.Status.Error = st.Status.Err.Error()
	}
	return resp
}

func providerError(err error) error {
	if errors.Is(err, provider.ErrDataUnavailable) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func indexOf(txs []bank.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}
