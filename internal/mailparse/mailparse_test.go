package mailparse

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/core"
)

func parseString(t *testing.T, raw string) *core.Message {
	t.Helper()
	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestParsePlainText(t *testing.T) {
	msg := parseString(t, "From: News <NEWS@Shop.example>\n"+
		"Subject: Weekly deals\n"+
		"Message-Id: <abc123@shop.example>\n"+
		"\n"+
		"Big sale this week only.\n")

	assert.Equal(t, "abc123@shop.example", msg.ID)
	assert.Equal(t, "News <NEWS@Shop.example>", msg.Sender)
	assert.Equal(t, "news@shop.example", msg.SenderAddress)
	assert.Equal(t, "shop.example", msg.SenderDomain)
	assert.Equal(t, "Weekly deals", msg.Subject)
	assert.Equal(t, "Big sale this week only.", msg.Snippet)
}

func TestParseEncodedHeaders(t *testing.T) {
	msg := parseString(t, "From: =?UTF-8?Q?J=C3=BCrgen?= <sales@example.com>\n"+
		"Subject: =?UTF-8?B?SMOpbGxv?=\n"+
		"\n"+
		"body\n")

	assert.Equal(t, "Héllo", msg.Subject)
	assert.Contains(t, msg.Sender, "Jürgen")
	assert.Equal(t, "sales@example.com", msg.SenderAddress)
	assert.Equal(t, "local", msg.ID)
}

func TestParseMultipartAlternative(t *testing.T) {
	raw := "From: news@shop.example\n" +
		"Subject: Deals\n" +
		"Content-Type: multipart/alternative; boundary=\"frontier\"\n" +
		"\n" +
		"--frontier\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\n" +
		"\n" +
		"plain body wins\n" +
		"--frontier\n" +
		"Content-Type: text/html\n" +
		"\n" +
		"<p>html body loses</p>\n" +
		"--frontier--\n"

	msg := parseString(t, raw)
	assert.Equal(t, "plain body wins", msg.Snippet)
}

func TestParseHTMLOnly(t *testing.T) {
	raw := "From: promo@example.com\n" +
		"Subject: Offer\n" +
		"Content-Type: text/html; charset=\"utf-8\"\n" +
		"\n" +
		"<html><body><p>Click <b>here</b> for deals</p></body></html>\n"

	msg := parseString(t, raw)
	assert.Equal(t, "Click here for deals", msg.Snippet)
}

func TestParseQuotedPrintable(t *testing.T) {
	raw := "From: deals@example.com\n" +
		"Subject: QP\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\n" +
		"Content-Transfer-Encoding: quoted-printable\n" +
		"\n" +
		"Caf=C3=A9 prices drop=\n" +
		"ped today\n"

	msg := parseString(t, raw)
	assert.Equal(t, "Café prices dropped today", msg.Snippet)
}

func TestParseBase64NoContentType(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("Special offer inside"))
	raw := "From: deals@example.com\n" +
		"Subject: B64\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" + body + "\n"

	msg := parseString(t, raw)
	assert.Equal(t, "Special offer inside", msg.Snippet)
}

func TestParseLegacyCharset(t *testing.T) {
	raw := "From: deals@example.fr\n" +
		"Subject: Accents\n" +
		"Content-Type: text/plain; charset=\"iso-8859-1\"\n" +
		"\n" +
		"caf\xe9 sp\xe9cial\n"

	msg := parseString(t, raw)
	assert.Equal(t, "café spécial", msg.Snippet)
}

func TestParseSkipsAttachments(t *testing.T) {
	raw := "From: billing@example.com\n" +
		"Subject: Invoice\n" +
		"Content-Type: multipart/mixed; boundary=\"outer\"\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"See attached invoice.\n" +
		"--outer\n" +
		"Content-Type: application/pdf\n" +
		"Content-Disposition: attachment; filename=\"invoice.pdf\"\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" +
		"JVBERi0=\n" +
		"--outer--\n"

	msg := parseString(t, raw)
	assert.Equal(t, "See attached invoice.", msg.Snippet)
}

func TestParseNestedMultipart(t *testing.T) {
	raw := "From: news@example.com\n" +
		"Subject: Nested\n" +
		"Content-Type: multipart/mixed; boundary=\"outer\"\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: multipart/alternative; boundary=\"inner\"\n" +
		"\n" +
		"--inner\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"nested plain text\n" +
		"--inner--\n" +
		"--outer--\n"

	msg := parseString(t, raw)
	assert.Equal(t, "nested plain text", msg.Snippet)
}

func TestParseUnparseableFrom(t *testing.T) {
	msg := parseString(t, "From: totally broken\nSubject: x\n\nbody\n")

	assert.Equal(t, "totally broken", msg.Sender)
	assert.Empty(t, msg.SenderAddress)
	assert.Empty(t, msg.SenderDomain)
}

func TestParseSnippetCapped(t *testing.T) {
	raw := "From: a@b.c\nSubject: Long\n\n" + strings.Repeat("a", 600)

	msg := parseString(t, raw)
	assert.Len(t, msg.Snippet, 500)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("not an rfc822 message"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse message")
}
