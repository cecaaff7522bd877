package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relistco/relist-server/internal/entity"
)

// Client submits completed drafts to the catalog system for review. The
// draft id doubles as the idempotency key so a retried submission can't
// create a second catalog entry.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Submit(ctx context.Context, d *entity.Draft, seller *entity.Seller) (string, error) {
	url := fmt.Sprintf("%s/listings", c.baseURL)

	payload := createListingRequest{
		SellerRef:      seller.ID,
		SellerEmail:    seller.Email,
		CommissionRate: seller.CommissionRate,
		Designer:       d.Designer,
		ItemType:       d.ItemType,
		Size:           d.Size,
		Condition:      d.Condition,
		PriceCents:     d.PriceCents,
		Details:        d.Details,
		ColorMaterial:  d.ColorMaterial,
		ReferenceLink:  d.ReferenceLink,
		TagPhotoURL:    d.TagPhotoURL,
		PhotoURLs:      d.PhotoURLs,
		Source:         "sms",
		IdempotencyKey: d.ID,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal listing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("catalog rejected listing (status %d): %s", resp.StatusCode, string(body))
	}

	var response createListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("catalog decode: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("catalog: %s", response.Error)
	}
	if response.ID == "" {
		return "", fmt.Errorf("catalog returned no listing id")
	}

	return response.ID, nil
}
