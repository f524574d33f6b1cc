//go:build ignore
// +build ignore

// seed-session walks a running demobank server through the demo flow: refresh
// the dataset, list the profile switcher, pick a user and page through their
// transactions.
//
// Usage:
//
//	API_URL=http://localhost:8111 go run scripts/seed-session.go
//	API_URL=http://localhost:8111 SELECT_USER=new go run scripts/seed-session.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/logger"
	"github.com/castlemilk/demobank/internal/service"
	"github.com/castlemilk/demobank/internal/session"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := service.NewBankServiceClient(&http.Client{}, apiURL)
	log.Info().Str("api_url", apiURL).Msg("seeding demo session")

	if os.Getenv("SKIP_REFRESH") != "true" {
		refreshed, err := client.Refresh(ctx, connect.NewRequest(&service.RefreshRequest{}))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to refresh dataset")
		}
		log.Info().Int64("seed", refreshed.Msg.Seed).Msg("dataset refreshed")
	}

	users, err := client.ListUsers(ctx, connect.NewRequest(&service.ListUsersRequest{}))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list users")
	}
	if len(users.Msg.Users) == 0 {
		log.Fatal().Msg("dataset has no users")
	}

	fmt.Println()
	fmt.Println("=== Demo profiles ===")
	for _, u := range users.Msg.Users {
		fmt.Printf("%-36s  %-16s  accounts=%d cards=%d loans=%d  %s\n",
			u.User.ID, u.User.DisplayName, u.AccountCount, u.CardCount, u.LoanCount, u.TotalBalance)
	}
	fmt.Println()

	sel := session.User(users.Msg.Users[0].User.ID)
	if v := os.Getenv("SELECT_USER"); v != "" {
		sel = session.Parse(v)
	}

	state, err := client.SelectUser(ctx, connect.NewRequest(&service.SelectUserRequest{Selection: sel}))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to select user")
	}
	if state.Msg.View.User == nil {
		log.Info().Str("selection", sel.String()).Msg("no user in view")
		return
	}
	log.Info().Str("user", state.Msg.View.User.DisplayName).Int("accounts", len(state.Msg.View.Accounts)).Msg("user selected")

	token := ""
	count := 0
	for {
		page, err := client.ListTransactions(ctx, connect.NewRequest(&service.ListTransactionsRequest{PageSize: 100, PageToken: token}))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to list transactions")
		}
		count += len(page.Msg.Transactions)
		if page.Msg.NextPageToken == "" {
			break
		}
		token = page.Msg.NextPageToken
	}
	log.Info().Int("transactions", count).Msg("listed transactions")

	for _, group := range state.Msg.View.GroupedTransactions {
		if group.Label != bank.LabelToday {
			continue
		}
		for _, tx := range group.Transactions {
			fmt.Printf("  %-24s %12s  %s\n", tx.Merchant, bank.FormatUSD(tx.Amount), tx.Status)
		}
	}
}
