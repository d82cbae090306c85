package mailparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawMessage = "From: \"Jane Roe\" <Jane.Roe@Example.COM>\r\n" +
	"To: bob@company.com\r\n" +
	"Reply-To: jane.personal@gmail.com\r\n" +
	"Subject: Quarterly figures\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"Received-SPF: pass\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Please find the figures attached.\r\n" +
	"--frontier\r\n" +
	"Content-Type: application/octet-stream; name=\"figures.csv\"\r\n" +
	"Content-Disposition: attachment; filename=\"figures.csv\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"cXVhcnRlcixyZXZlbnVlCjEsMTAwMDAK\r\n" +
	"--frontier--\r\n"

func TestParse_FullMessage(t *testing.T) {
	msg, err := Parse(strings.NewReader(rawMessage))
	require.NoError(t, err)

	assert.Equal(t, "Quarterly figures", msg.Subject)
	assert.Equal(t, "Jane Roe", msg.SenderName)
	assert.Equal(t, "jane.roe@example.com", msg.SenderEmail)
	assert.Equal(t, "jane.personal@gmail.com", msg.ReplyTo)
	assert.Equal(t, "bob@company.com", msg.RecipientEmail)
	assert.Contains(t, msg.Body, "figures attached")

	assert.Equal(t, "pass", msg.Headers["Received-SPF"])
	assert.Equal(t, "<abc123@example.com>", msg.Headers["Message-ID"])

	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "figures.csv", att.Filename)
	assert.Equal(t, "quarter,revenue\n1,10000\n", string(att.Content))
	// SHA-256 hex digest
	assert.Len(t, att.ContentHash, 64)
	// payload too small for a TLSH digest
	assert.Empty(t, att.FuzzyHash)
}

func TestParse_InvalidInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name            string
		header          string
		expectedName    string
		expectedAddress string
	}{
		{"full form", `"John Doe" <John@Company.com>`, "John Doe", "john@company.com"},
		{"bare address", "john@company.com", "", "john@company.com"},
		{"unquoted name with comma", "Doe, John <john@company.com>", "Doe, John", "john@company.com"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, address := parseAddress(tt.header)
			assert.Equal(t, tt.expectedName, name)
			assert.Equal(t, tt.expectedAddress, address)
		})
	}
}
