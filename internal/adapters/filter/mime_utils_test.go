package filter

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMessage(t *testing.T, raw string) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestBuildCompactEmail_PlainText(t *testing.T) {
	raw := "From: Ann Smith <Ann@Example.COM>\r\n" +
		"Subject: Quarterly report\r\n" +
		"Message-Id: <abc123@mail.example.com>\r\n" +
		"Date: Mon, 12 Aug 2024 10:30:00 +0200\r\n" +
		"\r\n" +
		"The report is attached.\r\n"

	email, err := BuildCompactEmail(parseMessage(t, raw), "bounce@example.com", "203.0.113.7", "smtp-ingest")
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", email.From.Addr)
	assert.Equal(t, "bounce@example.com", email.Envelope.MailFrom)
	assert.Equal(t, "203.0.113.7", email.Envelope.ClientIP)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Equal(t, "abc123@mail.example.com", email.MessageID)
	assert.Equal(t, "2024-08-12T08:30:00Z", email.DateISO)
	assert.Equal(t, "smtp-ingest", email.Provenance)
	assert.False(t, email.ListUnsubscribePresent)
	assert.False(t, email.HasCalendarICS)
	assert.Contains(t, email.Body, "The report is attached.")
}

func TestBuildCompactEmail_EnvelopeFallbackWhenNoFromHeader(t *testing.T) {
	raw := "Subject: no from header\r\n\r\nbody\r\n"

	email, err := BuildCompactEmail(parseMessage(t, raw), "Envelope@Example.com", "", "cli-ingest")
	require.NoError(t, err)
	assert.Equal(t, "envelope@example.com", email.From.Addr)
}

func TestBuildCompactEmail_DecodesEncodedSubject(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: =?UTF-8?B?UsOpdW5pb24gZGVtYWlu?=\r\n" +
		"\r\n" +
		"corps\r\n"

	email, err := BuildCompactEmail(parseMessage(t, raw), "a@example.com", "", "smtp-ingest")
	require.NoError(t, err)
	assert.Equal(t, "Réunion demain", email.Subject)
}

func TestBuildCompactEmail_ListUnsubscribePresence(t *testing.T) {
	raw := "From: news@example.com\r\n" +
		"List-Unsubscribe: <mailto:unsub@example.com>\r\n" +
		"\r\n" +
		"newsletter\r\n"

	email, err := BuildCompactEmail(parseMessage(t, raw), "news@example.com", "", "smtp-ingest")
	require.NoError(t, err)
	assert.True(t, email.ListUnsubscribePresent)
}

func TestExtractTextFromMessage_MultipartCollectsPlainParts(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--BOUND--\r\n"

	text, hasICS, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.Contains(t, text, "plain version")
	assert.NotContains(t, text, "html version")
	assert.False(t, hasICS)
}

func TestExtractTextFromMessage_DetectsCalendarPart(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/mixed; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"You are invited.\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/calendar; method=REQUEST\r\n" +
		"\r\n" +
		"BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n" +
		"--BOUND--\r\n"

	text, hasICS, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.True(t, hasICS)
	assert.Contains(t, text, "You are invited.")
}

func TestExtractTextFromMessage_DetectsICSAttachmentByFilename(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/mixed; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See the invite.\r\n" +
		"--BOUND\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"meeting.ics\"\r\n" +
		"\r\n" +
		"BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n" +
		"--BOUND--\r\n"

	_, hasICS, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.True(t, hasICS)
}

func TestExtractTextFromMessage_NoTextParts(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/mixed; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--BOUND--\r\n"

	text, _, err := extractTextFromMessage(parseMessage(t, raw))
	require.NoError(t, err)
	assert.Equal(t, "[No text content found in multipart message]", text)
}

func TestDecodeEncodedHeader_PlainValueUnchanged(t *testing.T) {
	decoded, err := decodeEncodedHeader("Just a subject")
	require.NoError(t, err)
	assert.Equal(t, "Just a subject", decoded)
}
