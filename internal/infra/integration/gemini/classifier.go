package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/relistco/relist-server/internal/usecase"
)

const classifierPrompt = `Look at this photo from a clothing resale seller.
Return JSON: {"is_clothing": bool, "has_tag": bool, "brand_guess": string,
"description": string}. is_clothing is true only for garments or clothing
accessories. has_tag is true when a brand label or care tag is clearly
readable. description is a short phrase, used verbatim in a rejection
message when is_clothing is false.`

// Classifier answers "is this clothing, and is the brand tag visible" for
// one photo via Gemini vision.
type Classifier struct {
	client *genai.Client
	Model  string
	http   *http.Client
}

func NewClassifier(ctx context.Context, apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Classifier{
		client: client,
		Model:  model,
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Classifier) Analyze(ctx context.Context, photoURL string) (usecase.PhotoAnalysis, error) {
	data, mime, err := c.fetch(ctx, photoURL)
	if err != nil {
		return usecase.PhotoAnalysis{}, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(classifierPrompt),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx,
		c.Model,
		contents,
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return usecase.PhotoAnalysis{}, fmt.Errorf("Gemini analyze failed: %w", err)
	}

	var parsed analysisResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Text())), &parsed); err != nil {
		return usecase.PhotoAnalysis{}, fmt.Errorf("bad classifier JSON: %w", err)
	}

	return usecase.PhotoAnalysis{
		IsClothing:  parsed.IsClothing,
		HasTag:      parsed.HasTag,
		BrandGuess:  parsed.BrandGuess,
		Description: parsed.Description,
	}, nil
}

// fetch downloads the gateway-hosted media so the bytes can be inlined in
// the vision request.
func (c *Classifier) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media download failed: %w", err)
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
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return data, mime, nil
}
