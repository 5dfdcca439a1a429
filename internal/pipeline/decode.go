package pipeline

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sells-group/mailsync/internal/model"
)

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// DecodeMessage flattens a raw Gmail message into headers and a plain-text
// body. It never fails: undecodable parts contribute nothing and invalid
// UTF-8 is dropped.
func DecodeMessage(msg *gmailapi.Message) model.DecodedMessage {
	out := model.DecodedMessage{Subject: "No Subject"}
	if msg == nil || msg.Payload == nil {
		return out
	}

	// First occurrence of each header wins.
	seen := make(map[string]bool)
	for _, h := range msg.Payload.Headers {
		if seen[h.Name] {
			continue
		}
		seen[h.Name] = true
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.From = h.Value
		case "Date":
			out.Date = h.Value
		}
	}

	body := extractBody(msg.Payload)
	body = strings.ToValidUTF8(body, "")
	out.Body = norm.NFC.String(strings.TrimSpace(body))
	return out
}

// extractBody walks the MIME tree depth-first, decoding text/plain parts
// verbatim and stripping tags from text/html parts, concatenated in order.
func extractBody(part *gmailapi.MessagePart) string {
	if part == nil {
		return ""
	}

	switch part.MimeType {
	case "text/plain":
		return decodePartBody(part)
	case "text/html":
		return htmlTags.ReplaceAllString(decodePartBody(part), "")
	}

	var sb strings.Builder
	for _, p := range part.Parts {
		sb.WriteString(extractBody(p))
	}
	return sb.String()
}

// decodePartBody decodes the base64url body data of a single part.
// Gmail emits unpadded base64url; padded data is accepted too.
func decodePartBody(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		return ""
	}
	return string(data)
}
