package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/castlemilk/demobank/internal/bank"
)

// batchSize caps the number of records per Algolia batch write.
const batchSize = 1000

// Config holds Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string // Needs addObject, deleteObject and search ACLs
	IndexName string
}

// AlgoliaClient wraps the Algolia search API client.
type AlgoliaClient struct {
	client    *search.APIClient
	indexName string
	log       zerolog.Logger
}

// NewAlgoliaClient creates a new Algolia search client.
func NewAlgoliaClient(cfg Config, log zerolog.Logger) (*AlgoliaClient, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("algolia AppID and APIKey are required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "demobank-transactions"
	}

	client, err := search.NewClient(cfg.AppID, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating algolia client: %w", err)
	}

	return &AlgoliaClient{
		client:    client,
		indexName: cfg.IndexName,
		log:       log,
	}, nil
}

// Index writes every transaction in ds to the index, keyed by transaction ID
// so re-indexing a dataset overwrites its records. Records left over from
// earlier datasets are deleted once the batches are accepted.
func (c *AlgoliaClient) Index(ctx context.Context, ds *bank.Dataset) (int, error) {
	if ds == nil {
		return 0, nil
	}
	tag := datasetTag(ds)

	var requests []search.BatchRequest
	flush := func() error {
		if len(requests) == 0 {
			return nil
		}
		params := search.NewEmptyBatchWriteParams().SetRequests(requests)
		if _, err := c.client.Batch(c.client.NewApiBatchRequest(c.indexName, params), search.WithContext(ctx)); err != nil {
			return fmt.Errorf("algolia batch: %w", err)
		}
		requests = requests[:0]
		return nil
	}

	indexed := 0
	for _, u := range ds.Users {
		for _, tx := range ds.UserTransactions(u.ID) {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			requests = append(requests, search.BatchRequest{
				Action: search.ACTION_ADD_OBJECT,
				Body:   transactionRecord(tx, tag),
			})
			indexed++
			if len(requests) == batchSize {
				if err := flush(); err != nil {
					return indexed, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, err
	}

	// Index tasks run in order, so this sees the records written above.
	prune := search.NewEmptyDeleteByParams().SetFilters(staleFilter(tag))
	if _, err := c.client.DeleteBy(c.client.NewApiDeleteByRequest(c.indexName, prune), search.WithContext(ctx)); err != nil {
		return indexed, fmt.Errorf("algolia prune stale records: %w", err)
	}

	c.log.Info().Int("records", indexed).Str("index", c.indexName).Int64("seed", ds.Seed).Msg("indexed dataset")
	return indexed, nil
}

// Search performs a full-text search via Algolia, scoped to the view's user.
func (c *AlgoliaClient) Search(ctx context.Context, v bank.UserView, params Params) (*Response, error) {
	page, pageSize := normalizePage(params)
	if v.User == nil {
		return &Response{Results: []Result{}, Page: page}, nil
	}

	filters := buildFilters(v.User.ID, params)

	hitsPerPage := int32(pageSize)
	algoliaPage := int32(page)
	searchParams := search.SearchParamsObjectAsSearchParams(
		search.NewSearchParamsObject().
			SetQuery(params.Query).
			SetHitsPerPage(hitsPerPage).
			SetPage(algoliaPage).
			SetFilters(filters),
	)

	resp, err := c.client.SearchSingleIndex(c.client.NewApiSearchSingleIndexRequest(c.indexName).WithSearchParams(searchParams), search.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("algolia search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		result, ok := hitToResult(hit.AdditionalProperties)
		if !ok {
			c.log.Warn().Msg("algolia: skipping hit with no objectID")
			continue
		}
		results = append(results, result)
	}

	totalCount := 0
	if resp.NbHits != nil {
		totalCount = int(*resp.NbHits)
	}
	totalPages := 0
	if resp.NbPages != nil {
		totalPages = int(*resp.NbPages)
	}

	return &Response{
		Results:    results,
		TotalCount: totalCount,
		TotalPages: totalPages,
		Page:       page,
	}, nil
}

// datasetTag identifies the dataset a record was indexed from.
func datasetTag(ds *bank.Dataset) string {
	return fmt.Sprintf("%d-%d", ds.Seed, ds.GeneratedAt.UnixNano())
}

// staleFilter matches every record not indexed from the dataset tagged tag.
func staleFilter(tag string) string {
	return fmt.Sprintf("NOT Dataset:%q", tag)
}

func transactionRecord(tx bank.Transaction, tag string) map[string]any {
	return map[string]any{
		"objectID":    tx.ID,
		"Dataset":     tag,
		"UserId":      tx.UserID,
		"AccountId":   tx.AccountID,
		"Merchant":    tx.Merchant,
		"Category":    tx.Category,
		"Icon":        tx.Icon,
		"Amount":      tx.Amount.String(),
		"AmountCents": tx.Amount.Abs().Shift(2).IntPart(),
		"Direction":   string(tx.Direction),
		"Date":        tx.Date.UTC().Format(time.RFC3339),
		"DateUnix":    tx.Date.Unix(),
	}
}

// buildFilters constructs the Algolia filter string. UserId is always
// enforced so one session never sees another user's records.
func buildFilters(userID string, params Params) string {
	parts := []string{fmt.Sprintf("UserId:%q", userID)}

	if params.AccountID != "" {
		parts = append(parts, fmt.Sprintf("AccountId:%q", params.AccountID))
	}
	if params.Category != "" {
		parts = append(parts, fmt.Sprintf("Category:%q", params.Category))
	}
	if params.Direction != "" {
		parts = append(parts, fmt.Sprintf("Direction:%q", string(params.Direction)))
	}

	// Amount range, in cents against the absolute amount
	if params.AmountMin > 0 {
		parts = append(parts, fmt.Sprintf("AmountCents >= %d", decimal.NewFromFloat(params.AmountMin).Shift(2).IntPart()))
	}
	if params.AmountMax > 0 {
		parts = append(parts, fmt.Sprintf("AmountCents <= %d", decimal.NewFromFloat(params.AmountMax).Shift(2).IntPart()))
	}

	if params.StartDate != nil {
		parts = append(parts, fmt.Sprintf("DateUnix >= %d", params.StartDate.Unix()))
	}
	if params.EndDate != nil {
		parts = append(parts, fmt.Sprintf("DateUnix <= %d", params.EndDate.Unix()))
	}

	return strings.Join(parts, " AND ")
}

// hitToResult converts an Algolia hit to a Result.
func hitToResult(props map[string]any) (Result, bool) {
	var result Result

	if v, ok := props["objectID"].(string); ok {
		result.ID = v
	}
	if v, ok := props["AccountId"].(string); ok {
		result.AccountID = v
	}
	if v, ok := props["Merchant"].(string); ok {
		result.Merchant = v
	}
	if v, ok := props["Category"].(string); ok {
		result.Category = v
	}
	if v, ok := props["Icon"].(string); ok {
		result.Icon = v
	}
	if v, ok := props["Direction"].(string); ok {
		result.Direction = bank.Direction(v)
	}

	// Amount is stored as a decimal string to keep cents exact.
	if v, ok := props["Amount"].(string); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			result.Amount = d
		}
	}

	// Prefer DateUnix over the RFC3339 string.
	if v, ok := props["DateUnix"].(float64); ok && v > 0 {
		result.Date = time.Unix(int64(v), 0).UTC()
	} else if v, ok := props["Date"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			result.Date = t
		}
	}

	if result.ID == "" {
		return Result{}, false
	}
	return result, true
}
