package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

// Client talks to the external sheets bridge service that owns the actual
// spreadsheet. A row reported as a duplicate by the bridge counts as success,
// since the article is already persisted downstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a sheets bridge client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// AppendRow posts one article row to the bridge's add-link endpoint.
func (c *Client) AppendRow(ctx context.Context, row domain.SheetRow) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal sheet row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add-link", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build add-link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post add-link: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK {
		var parsed struct {
			Warning string `json:"warning"`
		}
		if json.Unmarshal(payload, &parsed) == nil && parsed.Warning != "" {
			c.logger.Warn("sheets bridge warning", zap.String("warning", parsed.Warning))
		}
		return nil
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &parsed) == nil && strings.Contains(parsed.Error, "already exists") {
		// Duplicate row: the article is already in the sheet, treat as done.
		c.logger.Warn("duplicate article reported by sheets bridge", zap.String("url", row.Link))
		return nil
	}
	return fmt.Errorf("add-link failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
}

// EnsureWorksheet creates the category worksheet when the bridge does not
// have it yet.
func (c *Client) EnsureWorksheet(ctx context.Context, category string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-worksheets", nil)
	if err != nil {
		return fmt.Errorf("build get-worksheets request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get worksheets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get-worksheets failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Worksheets []string `json:"worksheets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode worksheets: %w", err)
	}
	for _, name := range parsed.Worksheets {
		if name == category {
			return nil
		}
	}

	c.logger.Info("creating worksheet", zap.String("category", category))
	body, _ := json.Marshal(map[string]string{"title": category})
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-worksheet", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create-worksheet request: %w", err)
	}
	createReq.Header.Set("Content-Type", "application/json")

	createResp, err := c.httpClient.Do(createReq)
	if err != nil {
		return fmt.Errorf("create worksheet: %w", err)
	}
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusCreated && createResp.StatusCode != http.StatusOK {
		return fmt.Errorf("create-worksheet failed with status %d", createResp.StatusCode)
	}
	return nil
}
