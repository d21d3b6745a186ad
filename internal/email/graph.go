// Package email delivers alert mail through the Microsoft Graph sendMail
// endpoint.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/msgraph"
)

// GraphSender sends HTML email as a mailbox user via Microsoft Graph.
// An empty sender address disables delivery; mail is logged and dropped
// so a half-configured environment never errors its way through alert
// processing.
type GraphSender struct {
	client  *retryablehttp.Client
	baseURL string
	sender  string
	logger  zerolog.Logger
}

// NewGraphSender creates a Graph email sender for the given mailbox.
func NewGraphSender(client *retryablehttp.Client, baseURL, sender string, logger zerolog.Logger) *GraphSender {
	if baseURL == "" {
		baseURL = msgraph.DefaultBaseURL
	}
	return &GraphSender{
		client:  client,
		baseURL: baseURL,
		sender:  sender,
		logger:  logger.With().Str("component", "graph_email").Logger(),
	}
}

type sendMailRequest struct {
	Message         mailMessage `json:"message"`
	SaveToSentItems bool        `json:"saveToSentItems"`
}

type mailMessage struct {
	Subject      string          `json:"subject"`
	Body         mailBody        `json:"body"`
	ToRecipients []mailRecipient `json:"toRecipients"`
}

type mailBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type mailRecipient struct {
	EmailAddress mailAddress `json:"emailAddress"`
}

type mailAddress struct {
	Address string `json:"address"`
}

// Send delivers one HTML email to the given addresses.
func (s *GraphSender) Send(ctx context.Context, to []string, subject, body string) error {
	if s.sender == "" {
		s.logger.Warn().Str("subject", subject).Msg("sender email not configured, email not sent")
		return nil
	}

	payload := sendMailRequest{
		Message: mailMessage{
			Subject: subject,
			Body:    mailBody{ContentType: "HTML", Content: body},
		},
		SaveToSentItems: true,
	}
	for _, addr := range to {
		payload.Message.ToRecipients = append(payload.Message.ToRecipients,
			mailRecipient{EmailAddress: mailAddress{Address: addr}})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMail request: %w", err)
	}

	url := fmt.Sprintf("%s/users/%s/sendMail", s.baseURL, s.sender)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build sendMail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest("sendMail", "error")
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest("sendMail", fmt.Sprintf("%d", resp.StatusCode))
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email: unexpected status %d: %s", resp.StatusCode, detail)
	}

	metrics.RecordProviderRequest("sendMail", "ok")
	s.logger.Info().
		Str("subject", subject).
		Int("recipients", len(to)).
		Msg("email sent successfully")
	return nil
}
