package mailer

import (
	"fmt"
	"strings"

	"github.com/abaur/rolodex/shared"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type ClientWrapper struct {
	client     *sendgrid.Client
	config     shared.SendgridConfig
	appBaseURL string
	testMode   bool
}

// NewClient wraps a sendgrid client configured once at startup. With
// 'testMode' set, SendEmail becomes a no-op so tests never hit the
// provider.
func NewClient(config shared.SendgridConfig, appURL string, testMode bool) *ClientWrapper {
	return &ClientWrapper{
		client:     sendgrid.NewSendClient(config.ApiKey),
		config:     config,
		appBaseURL: refinedURL(appURL),
		testMode:   testMode,
	}
}

// SendEmail delivers a single html email from the configured sender.
func (cw *ClientWrapper) SendEmail(to, subject, htmlContent string) error {
	if cw.testMode {
		return nil
	}

	message := mail.NewSingleEmail(
		mail.NewEmail("", cw.config.Sender),
		subject,
		mail.NewEmail("", to),
		"",
		htmlContent,
	)

	resp, err := cw.client.Send(message)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded with status %v: %v", resp.StatusCode, resp.Body)
	}

	return nil
}

// VerificationLink builds the link a user follows to verify their email.
func (cw *ClientWrapper) VerificationLink(token string) string {
	return fmt.Sprintf("%v/verify/%v", cw.appBaseURL, token)
}

func refinedURL(appUrl string) string {
	refined := strings.TrimSuffix(appUrl, "/")

	// Set default scheme to https
	if !strings.HasPrefix(refined, "http") {
		refined = "https://" + refined
	}

	return refined
}
