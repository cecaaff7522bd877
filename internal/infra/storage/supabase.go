package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PhotoStore copies gateway-hosted media into our own bucket and hands back
// the CDN URL. Gateway media URLs expire; ours don't.
type PhotoStore struct {
	storageURL string
	cdnURL     string
	apiKey     string
	bucket     string
	http       *http.Client

	// The CDN processes uploads asynchronously; we poll the public URL a
	// bounded number of times before declaring the photo failed-but-
	// retryable.
	PollAttempts int
	PollDelay    time.Duration
}

func NewPhotoStore(storageURL, cdnURL, apiKey, bucket string) *PhotoStore {
	return &PhotoStore{
		storageURL:   storageURL,
		cdnURL:       cdnURL,
		apiKey:       apiKey,
		bucket:       bucket,
		http:         &http.Client{Timeout: 20 * time.Second},
		PollAttempts: 5,
		PollDelay:    time.Second,
	}
}

// Save downloads the source media, uploads it under the draft's prefix and
// waits for the processed asset to appear. The returned URL is durable.
func (s *PhotoStore) Save(ctx context.Context, draftID, sourceURL string) (string, error) {
	data, mime, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	objectPath := fmt.Sprintf("%s/%s/%s", s.bucket, draftID, uuid.New().String())
	uploadURL := fmt.Sprintf("%s/object/%s", s.storageURL, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mime)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("photo upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("photo upload rejected (status %d): %s", resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/%s", s.cdnURL, objectPath)
	if err := s.waitProcessed(ctx, publicURL); err != nil {
		return "", err
	}
	return publicURL, nil
}

func (s *PhotoStore) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", err
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

// waitProcessed polls the public URL with a fixed delay and bounded attempt
// count. Running out of attempts is an error, never a silent drop.
func (s *PhotoStore) waitProcessed(ctx context.Context, url string) error {
	var lastStatus int
	for i := 0; i < s.PollAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}

		resp, err := s.http.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastStatus = resp.StatusCode
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PollDelay):
		}
	}
	return fmt.Errorf("photo not processed after %d polls (last status %d)", s.PollAttempts, lastStatus)
}
