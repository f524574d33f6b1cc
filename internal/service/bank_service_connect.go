package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// BankServiceName is the fully-qualified name of the BankService service.
const BankServiceName = "demobank.v1.BankService"

// Procedure paths for each BankService RPC.
const (
	BankServiceGetStateProcedure           = "/demobank.v1.BankService/GetState"
	BankServiceSelectUserProcedure         = "/demobank.v1.BankService/SelectUser"
	BankServiceRefreshProcedure            = "/demobank.v1.BankService/Refresh"
	BankServiceClearProcedure              = "/demobank.v1.BankService/Clear"
	BankServiceListTransactionsProcedure   = "/demobank.v1.BankService/ListTransactions"
	BankServiceSearchTransactionsProcedure = "/demobank.v1.BankService/SearchTransactions"
	BankServiceListUsersProcedure          = "/demobank.v1.BankService/ListUsers"
)

// NewBankServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewBankServiceHandler(svc *BankService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	getState := connect.NewUnaryHandler(BankServiceGetStateProcedure, svc.GetState, opts...)
	selectUser := connect.NewUnaryHandler(BankServiceSelectUserProcedure, svc.SelectUser, opts...)
	refresh := connect.NewUnaryHandler(BankServiceRefreshProcedure, svc.Refresh, opts...)
	clearHandler := connect.NewUnaryHandler(BankServiceClearProcedure, svc.Clear, opts...)
	listTransactions := connect.NewUnaryHandler(BankServiceListTransactionsProcedure, svc.ListTransactions, opts...)
	searchTransactions := connect.NewUnaryHandler(BankServiceSearchTransactionsProcedure, svc.SearchTransactions, opts...)
	listUsers := connect.NewUnaryHandler(BankServiceListUsersProcedure, svc.ListUsers, opts...)

	return "/" + BankServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BankServiceGetStateProcedure:
			getState.ServeHTTP(w, r)
		case BankServiceSelectUserProcedure:
			selectUser.ServeHTTP(w, r)
		case BankServiceRefreshProcedure:
			refresh.ServeHTTP(w, r)
		case BankServiceClearProcedure:
			clearHandler.ServeHTTP(w, r)
		case BankServiceListTransactionsProcedure:
			listTransactions.ServeHTTP(w, r)
		case BankServiceSearchTransactionsProcedure:
			searchTransactions.ServeHTTP(w, r)
		case BankServiceListUsersProcedure:
			listUsers.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// BankServiceClient is a client for the demobank.v1.BankService service.
type BankServiceClient struct {
	getState           *connect.Client[GetStateRequest, StateResponse]
	selectUser         *connect.Client[SelectUserRequest, StateResponse]
	refresh            *connect.Client[RefreshRequest, StateResponse]
	clear              *connect.Client[ClearRequest, StateResponse]
	listTransactions   *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	searchTransactions *connect.Client[SearchTransactionsRequest, SearchTransactionsResponse]
	listUsers          *connect.Client[ListUsersRequest, ListUsersResponse]
}

// NewBankServiceClient constructs a client for the BankService at baseURL,
// e.g. http://localhost:8111.
func NewBankServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BankServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &BankServiceClient{
		getState:           connect.NewClient[GetStateRequest, StateResponse](httpClient, baseURL+BankServiceGetStateProcedure, opts...),
		selectUser:         connect.NewClient[SelectUserRequest, StateResponse](httpClient, baseURL+BankServiceSelectUserProcedure, opts...),
		refresh:            connect.NewClient[RefreshRequest, StateResponse](httpClient, baseURL+BankServiceRefreshProcedure, opts...),
		clear:              connect.NewClient[ClearRequest, StateResponse](httpClient, baseURL+BankServiceClearProcedure, opts...),
		listTransactions:   connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+BankServiceListTransactionsProcedure, opts...),
		searchTransactions: connect.NewClient[SearchTransactionsRequest, SearchTransactionsResponse](httpClient, baseURL+BankServiceSearchTransactionsProcedure, opts...),
		listUsers:          connect.NewClient[ListUsersRequest, ListUsersResponse](httpClient, baseURL+BankServiceListUsersProcedure, opts...),
	}
}

func (c *BankServiceClient) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[StateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *BankServiceClient) SelectUser(ctx context.Context, req *connect.Request[SelectUserRequest]) (*connect.Response[StateResponse], error) {
	return c.selectUser.CallUnary(ctx, req)
}

func (c *BankServiceClient) Refresh(ctx context.Context, req *connect.Request[RefreshRequest]) (*connect.Response[StateResponse], error) {
	return c.refresh.CallUnary(ctx, req)
}

func (c *BankServiceClient) Clear(ctx context.Context, req *connect.Request[ClearRequest]) (*connect.Response[StateResponse], error) {
	return c.clear.CallUnary(ctx, req)
}

func (c *BankServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *BankServiceClient) SearchTransactions(ctx context.Context, req *connect.Request[SearchTransactionsRequest]) (*connect.Response[SearchTransactionsResponse], error) {
	return c.searchTransactions.CallUnary(ctx, req)
}

func (c *BankServiceClient) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}
