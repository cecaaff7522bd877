package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/relistco/relist-server/internal/usecase"
)

const defaultExtractionPrompt = `You extract resale-listing fields from a seller's text message.
Known fields so far (do not repeat them unless the message changes them):
%s

Message: %q

Return a JSON object with any of these keys the message actually mentions:
designer, item_type, size, condition, price, details, color_material,
reference_link. Omit keys the message says nothing about. Never guess.`

// Extractor is the Gemini-backed field extractor. The prompt and model are
// plain fields injected at construction so tests and callers can swap them;
// nothing here is package-level mutable state.
type Extractor struct {
	client *genai.Client
	Model  string
	Prompt string
}

func NewExtractor(ctx context.Context, apiKey, model string) (*Extractor, error) {
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

	return &Extractor{
		client: client,
		Model:  model,
		Prompt: defaultExtractionPrompt,
	}, nil
}

// Extract asks the model for a partial update. Any failure comes back as an
// *usecase.ExtractionError; the caller treats it as "nothing extracted".
func (e *Extractor) Extract(ctx context.Context, text string, known map[string]string) (usecase.FieldUpdate, error) {
	knownJSON, _ := json.Marshal(known)
	prompt := fmt.Sprintf(e.Prompt, string(knownJSON), text)

	result, err := e.client.Models.GenerateContent(ctx,
		e.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return usecase.FieldUpdate{}, &usecase.ExtractionError{Cause: err}
	}

	raw := strings.TrimSpace(result.Text())
	if raw == "" {
		return usecase.FieldUpdate{}, nil
	}

	var parsed extractionResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return usecase.FieldUpdate{}, &usecase.ExtractionError{Cause: fmt.Errorf("bad model JSON: %w", err)}
	}

	return toFieldUpdate(parsed), nil
}

// toFieldUpdate converts the model's string bag into the typed partial
// update, dropping anything that fails validation (an unparseable price is
// simply not an extracted price).
func toFieldUpdate(r extractionResult) usecase.FieldUpdate {
	var u usecase.FieldUpdate

	set := func(dst **string, v string) {
		v = strings.TrimSpace(v)
		if v != "" {
			*dst = &v
		}
	}

	set(&u.Designer, r.Designer)
	set(&u.ItemType, r.ItemType)
	set(&u.Size, r.Size)
	set(&u.Condition, r.Condition)
	set(&u.Details, r.Details)
	set(&u.ColorMaterial, r.ColorMaterial)
	set(&u.ReferenceLink, r.ReferenceLink)

	if r.Price != "" {
		cents, err := usecase.ParsePrice(r.Price)
		if err != nil {
			log.Printf("extractor price %q failed validation: %v", r.Price, err)
		} else {
			u.PriceCents = &cents
		}
	}

	return u
}
