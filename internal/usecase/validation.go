package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var priceRe = regexp.MustCompile(`^\$?\s*(\d{1,6})(?:\.(\d{1,2}))?$`)

// ParsePrice turns user/extractor price text ("$85", "85", "85.50") into
// cents. Zero and absurd amounts are rejected before they reach the draft.
func ParsePrice(text string) (int, error) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, ValidationError{"price", "must be an amount like $85"}
	}

	dollars, _ := strconv.Atoi(m[1])
	cents := 0
	if m[2] != "" {
		frac := m[2]
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.Atoi(frac)
	}

	total := dollars*100 + cents
	if total <= 0 {
		return 0, ValidationError{"price", "must be greater than zero"}
	}
	if total > 50000*100 {
		return 0, ValidationError{"price", "must be below $50,000"}
	}
	return total, nil
}

// ParseEmail extracts and normalizes a single email address from free text.
func ParseEmail(text string) (string, error) {
	candidate := strings.TrimSpace(text)

	// Users often send "it's name@host.com" rather than a bare address.
	for _, tok := range strings.Fields(candidate) {
		if strings.Contains(tok, "@") {
			candidate = strings.Trim(tok, ".,;:!?")
			break
		}
	}

	addr, err := mail.ParseAddress(candidate)
	if err != nil {
		return "", ValidationError{"email", "is not a valid email address"}
	}
	return strings.ToLower(addr.Address), nil
}

// NormalizePhone strips formatting so the same number always maps to the
// same conversation row.
var nonDigitRe = regexp.MustCompile(`\D`)

func NormalizePhone(phone string) (string, error) {
	cleaned := nonDigitRe.ReplaceAllString(phone, "")
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return "", ValidationError{"phone", "must be a valid phone number"}
	}
	return "+" + cleaned, nil
}
