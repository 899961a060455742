package graph

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/mail"
)

// threadSeparator joins the decoded bodies of a conversation's messages in
// thread order.
const threadSeparator = "\n\n--- Next Message ---\n\n"

var addressPattern = regexp.MustCompile(`<(.+?)>`)

// ParseAddress parses "Name <email>" into its parts. Input without angle
// brackets is treated as a bare address with no display name. The address
// is lowercased.
func ParseAddress(raw string) common.Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}
	}

	match := addressPattern.FindStringSubmatch(raw)
	if match == nil {
		return common.Address{Email: strings.ToLower(raw)}
	}

	name := strings.TrimSpace(strings.SplitN(raw, "<", 2)[0])
	name = strings.Trim(name, `"`)
	return common.Address{
		Name:  name,
		Email: strings.ToLower(strings.TrimSpace(match[1])),
	}
}

// ParseAddressList splits a multi-address header on commas and parses each
// token. Empty tokens are dropped.
func ParseAddressList(raw string) []common.Address {
	var out []common.Address
	for _, token := range strings.Split(raw, ",") {
		addr := ParseAddress(token)
		if addr.Email == "" {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// decodeBody decodes a base64url transport-encoded payload. Decoding
// failure yields an empty string; the email is filtered out later by the
// emptiness check.
func decodeBody(encoded string) string {
	if encoded == "" {
		return ""
	}

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// findPlainTextPart searches the MIME part tree depth-first for the first
// text/plain leaf.
func findPlainTextPart(parts []mail.MessagePart) *mail.MessagePart {
	for i := range parts {
		part := &parts[i]
		if part.MimeType == "text/plain" {
			return part
		}
		if len(part.Parts) > 0 {
			if found := findPlainTextPart(part.Parts); found != nil {
				return found
			}
		}
	}
	return nil
}

// extractBody decodes the plain-text content of a single message, falling
// back to the top-level body payload when no text/plain part exists.
func extractBody(msg mail.RawMessage) string {
	encoded := ""
	if part := findPlainTextPart(msg.Payload.Parts); part != nil {
		encoded = part.Body.Data
	} else {
		encoded = msg.Payload.Body.Data
	}
	return decodeBody(encoded)
}

// messageDate derives the message timestamp from the provider-internal
// epoch millis, falling back to the Date header.
func messageDate(msg mail.RawMessage) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if raw := msg.Payload.HeaderValue("Date"); raw != "" {
		for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// NormalizeMessage converts one raw provider message into a canonical
// NormalizedEmail. When the message carries its full thread, the decoded
// bodies of every sub-message are joined in thread order so the
// conversational flow survives into the analysis prompts. Malformed
// payloads never raise; they degrade to empty fields.
func NormalizeMessage(msg mail.RawMessage) common.NormalizedEmail {
	body := ""
	if msg.Thread != nil && len(msg.Thread.Messages) > 0 {
		parts := make([]string, 0, len(msg.Thread.Messages))
		for _, m := range msg.Thread.Messages {
			parts = append(parts, extractBody(m))
		}
		body = strings.Join(parts, threadSeparator)
	} else {
		body = extractBody(msg)
	}

	recipients := ParseAddressList(msg.Payload.HeaderValue("To"))
	recipients = append(recipients, ParseAddressList(msg.Payload.HeaderValue("Cc"))...)
	recipients = append(recipients, ParseAddressList(msg.Payload.HeaderValue("Bcc"))...)

	return common.NormalizedEmail{
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		Sender:     ParseAddress(msg.Payload.HeaderValue("From")),
		Recipients: recipients,
		Subject:    msg.Payload.HeaderValue("Subject"),
		Body:       body,
		Date:       messageDate(msg),
	}
}

// NormalizeBatch normalizes every raw message and drops records that are
// not valid for processing: missing sender address or empty decoded body.
func NormalizeBatch(msgs []mail.RawMessage) []common.NormalizedEmail {
	out := make([]common.NormalizedEmail, 0, len(msgs))
	for _, msg := range msgs {
		email := NormalizeMessage(msg)
		if email.Sender.Email == "" || strings.TrimSpace(email.Body) == "" {
			continue
		}
		out = append(out, email)
	}
	return out
}
