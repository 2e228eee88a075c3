package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	brevo "github.com/getbrevo/brevo-go/lib"
)

var ErrNoRecipient = errors.New("receipt has no recipient")

type Config struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	// BasePath overrides the Brevo API endpoint; empty uses the default.
	BasePath   string
	HTTPClient *http.Client
}

type Attachment struct {
	Name    string
	Content []byte
}

// Receipt is the purchase confirmation sent after a sale is recorded.
type Receipt struct {
	To          string
	SaleID      int64
	Title       string
	Price       string
	Attachments []Attachment
}

type BrevoMailer struct {
	api    *brevo.APIClient
	sender brevo.SendSmtpEmailSender
}

func NewBrevoMailer(cfg Config) *BrevoMailer {
	bc := brevo.NewConfiguration()
	bc.AddDefaultHeader("api-key", cfg.APIKey)
	if cfg.BasePath != "" {
		bc.BasePath = cfg.BasePath
	}
	if cfg.HTTPClient != nil {
		bc.HTTPClient = cfg.HTTPClient
	}

	return &BrevoMailer{
		api: brevo.NewAPIClient(bc),
		sender: brevo.SendSmtpEmailSender{
			Name:  cfg.SenderName,
			Email: cfg.SenderEmail,
		},
	}
}

func (m *BrevoMailer) SendReceipt(ctx context.Context, r Receipt) error {
	if r.To == "" {
		return ErrNoRecipient
	}

	html, err := renderReceipt(r)
	if err != nil {
		return err
	}

	email := brevo.SendSmtpEmail{
		Sender:      &m.sender,
		To:          []brevo.SendSmtpEmailTo{{Email: r.To}},
		Subject:     fmt.Sprintf("Your purchase: %s", r.Title),
		HtmlContent: html,
		Params: map[string]interface{}{
			"saleId": r.SaleID,
			"title":  r.Title,
			"price":  r.Price,
		},
	}
	for _, a := range r.Attachments {
		email.Attachment = append(email.Attachment, brevo.SendSmtpEmailAttachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	if _, _, err := m.api.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to send receipt for sale %d: %w", r.SaleID, err)
	}
	return nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h1>Thank you for your purchase</h1>
  <p>Order number: <strong>{{.SaleID}}</strong></p>
  <table cellpadding="6">
    <tr><td>Book</td><td><strong>{{.Title}}</strong></td></tr>
    <tr><td>Price</td><td>${{.Price}}</td></tr>
  </table>
  {{if .Attachments}}<p>Your files are attached to this email:</p>
  <ul>{{range .Attachments}}<li>{{.Name}}</li>{{end}}</ul>
  {{else}}<p>Your files will be sent separately.</p>{{end}}
</body>
</html>
`))

func renderReceipt(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.String(), nil
}
