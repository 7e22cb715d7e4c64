package freee

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PageSize is the number of deals requested per page.
const PageSize = 100

// ClientConfig represents the configuration for freee API client.
type ClientConfig struct {
	APIURL      string
	AccessToken string
	CompanyID   int64
	Timeout     time.Duration // Default: 30 seconds
}

// Client is a freee Accounting API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	companyID   int64
}

// NewClient creates a new freee API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     config.APIURL,
		accessToken: config.AccessToken,
		companyID:   config.CompanyID,
	}
}

// ListDeals lists one page of deals.
func (c *Client) ListDeals(ctx context.Context, params map[string]string) ([]Deal, error) {
	endpoint := fmt.Sprintf("%s/api/1/deals", c.baseURL)

	queryParams := url.Values{}
	queryParams.Set("company_id", strconv.FormatInt(c.companyID, 10))
	for k, v := range params {
		queryParams.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", endpoint, queryParams.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var dealsResp DealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dealsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return dealsResp.Deals, nil
}

// FetchAllDeals fetches all deals in a date range with pagination.
func (c *Client) FetchAllDeals(ctx context.Context, dateFrom, dateTo string) ([]Deal, error) {
	var allDeals []Deal
	offset := 0

	for {
		params := map[string]string{
			"start_issue_date": dateFrom,
			"end_issue_date":   dateTo,
			"limit":            strconv.Itoa(PageSize),
			"offset":           strconv.Itoa(offset),
		}

		deals, err := c.ListDeals(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list deals (offset=%d): %w", offset, err)
		}

		allDeals = append(allDeals, deals...)

		if len(deals) < PageSize {
			break
		}

		offset += PageSize
	}

	return allDeals, nil
}

// FetchYear fetches every deal issued in a fiscal year.
func (c *Client) FetchYear(ctx context.Context, year int) ([]Deal, error) {
	return c.FetchAllDeals(ctx, fmt.Sprintf("%d-01-01", year), fmt.Sprintf("%d-12-31", year))
}

// parseError parses an error response from freee API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("freee API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("freee API error (status %d): %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Errorf("freee API error: %s - %s", errResp.Error, errResp.ErrorDescription)
	}

	return fmt.Errorf("freee API error: %s", errResp.Error)
}
