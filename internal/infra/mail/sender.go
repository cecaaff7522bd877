package mail

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"gopkg.in/gomail.v2"
)

func NewEmailSender(host string, port int, user, password string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     "no-reply@relist.co",
	}
}

// SendWelcome greets a seller enrolled through the chat flow.
func (s *EmailSender) SendWelcome(to, name string) error {
	body, err := render("welcome.html", welcomeEmailData{Name: name})
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("Welcome to Relist, %s! 👗", name), body)
}

// SendListingSubmitted confirms a listing went in for review.
func (s *EmailSender) SendListingSubmitted(to, name, designer, itemType, price string) error {
	body, err := render("listing_submitted.html", listingSubmittedEmailData{
		Name:     name,
		Designer: designer,
		ItemType: itemType,
		Price:    price,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your %s %s (%s) is in review", designer, itemType, price)
	return s.send(to, subject, body)
}

func render(name string, data any) (string, error) {
	tmplPath := filepath.Join("templates", name)
	t, err := template.ParseFiles(tmplPath)
	if err != nil {
		return "", fmt.Errorf("read email template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return body.String(), nil
}

func (s *EmailSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("SMTP send: %w", err)
	}
	return nil
}
