package mailer

import (
	"testing"

	"github.com/abaur/rolodex/shared"
	"github.com/stretchr/testify/assert"
)

func testConfig() shared.SendgridConfig {
	return shared.SendgridConfig{ApiKey: "test-key", Sender: "no-reply@example.com"}
}

func TestVerificationLink(t *testing.T) {
	client := NewClient(testConfig(), "http://localhost:3000", true)
	assert.Equal(t, "http://localhost:3000/verify/abc", client.VerificationLink("abc"))

	// Trailing slash is trimmed, missing scheme defaults to https
	client = NewClient(testConfig(), "rolodex.example.com/", true)
	assert.Equal(t, "https://rolodex.example.com/verify/abc", client.VerificationLink("abc"))
}

func TestSendEmailInTestMode(t *testing.T) {
	client := NewClient(testConfig(), "http://localhost:3000", true)
	assert.Nil(t, client.SendEmail("a@x.com", "Email verification", "<p>hi</p>"))
}
