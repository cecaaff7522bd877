package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

const submittedTemplateName = "listing_submitted"

type Client struct {
	apiToken string
	phoneID  string
	baseURL  string
}

func NewClient() *Client {
	return &Client{
		apiToken: os.Getenv("WHATSAPP_API_TOKEN"),
		phoneID:  os.Getenv("WHATSAPP_PHONE_ID"),
		baseURL:  "https://graph.facebook.com/v21.0",
	}
}

// SendListingSubmitted fires the pre-approved template message that tells
// a seller their listing went in for review.
func (c *Client) SendListingSubmitted(input SendTemplateInput) error {
	if c.apiToken == "" || c.phoneID == "" {
		log.Println("⚠️ WhatsApp: API token or phone ID not configured")
		return fmt.Errorf("whatsapp not configured")
	}

	reqBody := sendMessageRequest{
		MessagingProduct: "whatsapp",
		To:               input.PhoneNumber,
		Type:             "template",
		Template: template{
			Name:     submittedTemplateName,
			Language: language{Code: "en_US"},
			Components: []component{
				{
					Type: "body",
					Parameters: []parameter{
						{Type: "text", Text: input.Name},
						{Type: "text", Text: input.Designer},
					},
				},
			},
		},
	}

	payload, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	c.addAuthHeaders(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp send failed: %d - %s", resp.StatusCode, string(body))
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}
	if result.Error != nil {
		return fmt.Errorf("whatsapp send failed: %s", result.Error.Message)
	}
	if len(result.Messages) == 0 {
		return fmt.Errorf("whatsapp send returned no message id")
	}

	log.Printf("✅ WhatsApp: template %s sent to %s (%s)", submittedTemplateName, input.PhoneNumber, result.Messages[0].ID)
	return nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
}
