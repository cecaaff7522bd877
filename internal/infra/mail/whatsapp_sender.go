package mail

import (
	"log"

	"github.com/relistco/relist-server/internal/infra/integration/whatsapp"
)

type WhatsAppSender struct {
	client *whatsapp.Client
}

func NewWhatsAppSender(client *whatsapp.Client) *WhatsAppSender {
	return &WhatsAppSender{
		client: client,
	}
}

// SendListingSubmitted is best-effort. The email path is the durable
// notification, so a WhatsApp failure never bubbles up.
func (s *WhatsAppSender) SendListingSubmitted(phone, name, designer string) error {
	if phone == "" || name == "" {
		log.Printf("⚠️ WhatsApp: incomplete data for send (phone: %s, name: %s)", phone, name)
		return nil
	}

	input := whatsapp.SendTemplateInput{
		PhoneNumber: phone,
		Name:        name,
		Designer:    designer,
	}

	if err := s.client.SendListingSubmitted(input); err != nil {
		log.Printf("⚠️ WhatsApp: failed to send to %s: %v", phone, err)
		return nil
	}

	return nil
}
