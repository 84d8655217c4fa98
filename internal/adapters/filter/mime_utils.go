package filter

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// wordDecoder decodes RFC 2047 encoded words in headers, resolving
// non-UTF-8 charsets through the HTML charset index.
var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// decodeEncodedHeader decodes an encoded header value like an encoded
// Subject. Returns the input unchanged on failure.
func decodeEncodedHeader(value string) (string, error) {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value, err
	}
	return decoded, nil
}

// extractTextFromMessage extracts the text content from an email
// message and reports whether any part carries a calendar invite.
// For multipart messages, it collects text/plain parts.
func extractTextFromMessage(msg *mail.Message) (string, bool, error) {
	contentType := msg.Header.Get("Content-Type")
	hasICS := strings.Contains(strings.ToLower(contentType), "text/calendar")

	// If it's not a multipart message, just return the body
	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", hasICS, err
		}
		return string(bodyBytes), hasICS, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		bodyBytes, rerr := io.ReadAll(msg.Body)
		if rerr != nil {
			return "", hasICS, rerr
		}
		return string(bodyBytes), hasICS, nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", hasICS, err
		}
		return string(bodyBytes), hasICS, nil
	}

	mr := multipart.NewReader(msg.Body, boundary)
	var textContent bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed parts: return whatever text we already have
			break
		}

		partContentType := strings.ToLower(part.Header.Get("Content-Type"))
		if strings.Contains(partContentType, "text/calendar") {
			hasICS = true
		}
		if name := strings.ToLower(part.FileName()); strings.HasSuffix(name, ".ics") {
			hasICS = true
		}

		if strings.Contains(partContentType, "text/plain") {
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			textContent.Write(partBytes)
			textContent.WriteString("\n")
		}
		// Skip nested multiparts and attachments
	}

	if textContent.Len() > 0 {
		return textContent.String(), hasICS, nil
	}
	return "[No text content found in multipart message]", hasICS, nil
}
