// Package mailparse converts raw RFC 822 messages into the engine's parsed
// email input contract. Webhook and sync ingestion own fetching; this
// adapter only parses.
package mailparse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/glaslos/tlsh"
	"github.com/jhillyerd/enmime"
)

// relevantHeaders are the headers the detection layers consume
var relevantHeaders = []string{
	"Reply-To",
	"Received-SPF",
	"Authentication-Results",
	"Message-ID",
	"Return-Path",
}

// Parse reads a raw MIME message and produces the engine's input contract.
// Each attachment gets a SHA-256 content hash for reputation lookups and,
// when the payload is large enough, a TLSH fuzzy hash for near-duplicate
// malware matching.
func Parse(r io.Reader) (domain.EmailMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return domain.EmailMessage{}, fmt.Errorf("failed to parse MIME message: %w", err)
	}

	msg := domain.EmailMessage{
		Subject: env.GetHeader("Subject"),
		Body:    env.Text,
		Headers: map[string]string{},
	}

	msg.SenderName, msg.SenderEmail = parseAddress(env.GetHeader("From"))
	_, msg.ReplyTo = parseAddress(env.GetHeader("Reply-To"))
	_, msg.RecipientEmail = parseAddress(env.GetHeader("To"))

	for _, header := range relevantHeaders {
		if value := env.GetHeader(header); value != "" {
			msg.Headers[header] = value
		}
	}

	for _, part := range env.Attachments {
		attachment := domain.Attachment{
			Filename: part.FileName,
			Content:  part.Content,
		}
		if len(part.Content) > 0 {
			sum := sha256.Sum256(part.Content)
			attachment.ContentHash = hex.EncodeToString(sum[:])
			// TLSH needs a minimum amount of entropy; small payloads
			// simply go without a fuzzy hash
			if fuzzy, err := tlsh.HashBytes(part.Content); err == nil {
				attachment.FuzzyHash = fuzzy.String()
			}
		}
		msg.Attachments = append(msg.Attachments, attachment)
	}

	return msg, nil
}

// parseAddress splits "Name <addr@domain>" into its parts, tolerating bare
// addresses and malformed headers
func parseAddress(header string) (name, address string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(header); err == nil {
		return addr.Name, strings.ToLower(addr.Address)
	}
	// Malformed but salvageable: take what is between the angle brackets
	if start := strings.Index(header, "<"); start >= 0 {
		if end := strings.Index(header[start:], ">"); end > 0 {
			return strings.TrimSpace(header[:start]), strings.ToLower(header[start+1 : start+end])
		}
	}
	return "", strings.ToLower(header)
}
