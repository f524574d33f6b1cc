// algolia-setup configures the Algolia index that backs transaction search.
//
// Usage:
//
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... go run ./scripts/algolia-setup
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... ALGOLIA_INDEX_NAME=demobank-staging go run ./scripts/algolia-setup
package main

import (
	"fmt"
	"os"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"

	"github.com/castlemilk/demobank/internal/logger"
)

func int32Ptr(v int32) *int32 { return &v }

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))

	appID := os.Getenv("ALGOLIA_APP_ID")
	adminKey := os.Getenv("ALGOLIA_ADMIN_KEY")
	indexName := os.Getenv("ALGOLIA_INDEX_NAME")

	if appID == "" || adminKey == "" {
		log.Fatal().Msg("ALGOLIA_APP_ID and ALGOLIA_ADMIN_KEY are required")
	}
	if indexName == "" {
		indexName = "demobank-transactions"
	}

	client, err := search.NewClient(appID, adminKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Algolia client")
	}

	log.Info().Str("index", indexName).Str("app", appID).Msg("configuring Algolia index")

	// Index settings are the single source of truth for the index config.
	settings := &search.IndexSettings{
		// Searchable attributes in priority order
		SearchableAttributes: []string{
			"Merchant",
			"Category",
		},

		// filterOnly() = can filter but values not returned as facets
		// searchable() = can also search within facet values
		AttributesForFaceting: []string{
			"filterOnly(UserId)",
			"filterOnly(AccountId)",
			"searchable(Category)",
			"filterOnly(Direction)",
			"filterOnly(Dataset)",
		},

		NumericAttributesForFiltering: []string{
			"AmountCents",
			"DateUnix",
		},

		// Most recent transactions first
		CustomRanking: []string{
			"desc(DateUnix)",
		},

		// UserId is filter-only; it scopes every query to the session's user
		// and is never returned.
		AttributesToRetrieve: []string{
			"objectID",
			"AccountId",
			"Merchant",
			"Category",
			"Icon",
			"Amount",
			"AmountCents",
			"Direction",
			"Date",
			"DateUnix",
		},

		AttributesToHighlight: []string{
			"Merchant",
			"Category",
		},

		HitsPerPage:       int32Ptr(25),
		MaxValuesPerFacet: int32Ptr(100),

		MinWordSizefor1Typo:  int32Ptr(4),
		MinWordSizefor2Typos: int32Ptr(8),
	}

	req := client.NewApiSetSettingsRequest(indexName, settings)
	resp, err := client.SetSettings(req)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set index settings")
	}

	log.Info().Int64("task_id", resp.TaskID).Str("updated_at", resp.UpdatedAt).Msg("index settings applied")

	fmt.Println()
	fmt.Println("=== Algolia Index Configuration ===")
	fmt.Printf("Index:              %s\n", indexName)
	fmt.Printf("App ID:             %s\n", appID)
	fmt.Println()
	fmt.Println("Searchable attrs:   Merchant, Category")
	fmt.Println("Facet filters:      UserId, AccountId, Category, Direction, Dataset")
	fmt.Println("Numeric filters:    AmountCents, DateUnix")
	fmt.Println("Custom ranking:     desc(DateUnix)")
	fmt.Println()
	fmt.Println("Settings apply asynchronously. The server indexes each new dataset on its own.")
}
