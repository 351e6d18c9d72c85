// Package nightscout provides a client for interacting with the Nightscout API
package nightscout

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // Required for Nightscout API secret hashing (legacy API requirement)
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/models"
)

const treatmentsEndpoint = "/api/v1/treatments"

// maxTreatments caps a single treatments query
const maxTreatments = 2000

// Client handles communication with the Nightscout API
type Client struct {
	baseURL    string
	apiSecret  string
	apiToken   string
	useToken   bool
	httpClient *http.Client
}

// NewClient creates a new Nightscout client
func NewClient(baseURL, apiSecret, apiToken string, useToken bool) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		apiToken:  apiToken,
		useToken:  useToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientFromSettings creates a client for the configured site
func NewClientFromSettings(s *models.Settings) *Client {
	s = s.Clone()
	return NewClient(s.NightscoutURL, s.APISecret, s.APIToken, s.UseToken)
}

// hashSecret generates SHA1 hash of the API secret
// Note: SHA1 is required for Nightscout API compatibility
func hashSecret(secret string) string {
	hasher := sha1.New() //nolint:gosec // Required for Nightscout API
	hasher.Write([]byte(secret))
	return hex.EncodeToString(hasher.Sum(nil))
}

// buildRequest creates an HTTP request with proper authentication
func (c *Client) buildRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	fullURL := c.baseURL + endpoint
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	// Add authentication
	if c.useToken && c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	} else if c.apiSecret != "" {
		req.Header.Set("API-SECRET", hashSecret(c.apiSecret))
	}

	return req, nil
}

// doRequest executes an HTTP request and returns the response body
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// GetStatus retrieves the Nightscout server status
func (c *Client) GetStatus(ctx context.Context) (*models.ServerStatus, error) {
	req, err := c.buildRequest(ctx, http.MethodGet, "/api/v1/status", nil, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var status models.ServerStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}

	return &status, nil
}

// TestConnection tests if the connection to Nightscout works
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.GetStatus(ctx)
	return err
}

// AppendBatch uploads records as carb corrections in a single POST
func (c *Client) AppendBatch(ctx context.Context, records []models.IntakeRecord) error {
	if len(records) == 0 {
		return nil
	}

	treatments := make([]models.Treatment, len(records))
	for i := range records {
		treatments[i] = models.TreatmentFromRecord(records[i])
	}

	payload, err := json.Marshal(treatments)
	if err != nil {
		return fmt.Errorf("encoding treatments: %w", err)
	}

	req, err := c.buildRequest(ctx, http.MethodPost, treatmentsEndpoint, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	_, err = c.doRequest(req)
	return err
}

// GetTreatments retrieves carb corrections for a time range
func (c *Client) GetTreatments(ctx context.Context, from, to time.Time) ([]models.Treatment, error) {
	params := url.Values{}
	params.Set("find[eventType]", models.TreatmentEventTypes.CarbCorrection)
	if !from.IsZero() {
		params.Set("find[created_at][$gte]", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("find[created_at][$lte]", to.UTC().Format(time.RFC3339))
	}
	params.Set("count", fmt.Sprintf("%d", maxTreatments))

	return c.queryTreatments(ctx, params)
}

// GetGroupTreatments retrieves all equivalents uploaded for one group
func (c *Client) GetGroupTreatments(ctx context.Context, groupID string) ([]models.Treatment, error) {
	params := url.Values{}
	params.Set("find[fpuID]", groupID)
	params.Set("count", fmt.Sprintf("%d", maxTreatments))

	return c.queryTreatments(ctx, params)
}

func (c *Client) queryTreatments(ctx context.Context, params url.Values) ([]models.Treatment, error) {
	req, err := c.buildRequest(ctx, http.MethodGet, treatmentsEndpoint, params, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var treatments []models.Treatment
	if err := json.Unmarshal(body, &treatments); err != nil {
		return nil, fmt.Errorf("parsing treatments: %w", err)
	}

	return treatments, nil
}

// DeleteTreatment deletes one treatment by its Nightscout id
func (c *Client) DeleteTreatment(ctx context.Context, id string) error {
	req, err := c.buildRequest(ctx, http.MethodDelete, treatmentsEndpoint+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}

	_, err = c.doRequest(req)
	return err
}

// List returns the carb timeline for a time range, oldest first
func (c *Client) List(ctx context.Context, from, to time.Time) ([]models.IntakeRecord, error) {
	treatments, err := c.GetTreatments(ctx, from, to)
	if err != nil {
		return nil, err
	}

	records := make([]models.IntakeRecord, 0, len(treatments))
	for i := range treatments {
		records = append(records, treatments[i].Record())
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// DeleteGroup deletes every treatment of one group. Nightscout has no bulk delete,
// so a failure part way leaves the rest of the group in place.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	treatments, err := c.GetGroupTreatments(ctx, groupID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range treatments {
		if treatments[i].ID == "" {
			continue
		}
		if err := c.DeleteTreatment(ctx, treatments[i].ID); err != nil {
			return deleted, fmt.Errorf("deleting treatment %s: %w", treatments[i].ID, err)
		}
		deleted++
	}

	return deleted, nil
}
