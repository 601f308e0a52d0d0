// Package mailparse flattens an RFC 822 message into the pipeline's
// Message shape: decoded headers, the best text rendering of the
// body, and a snippet sized like the one Gmail returns. HTML-only
// mail is converted to text; exotic charsets are transcoded.
package mailparse

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/mailsift/mailsift/internal/core"
)

const snippetLimit = 500

// Parse reads one message from r.
func Parse(r io.Reader) (*core.Message, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	m := &core.Message{
		ID:      messageID(msg.Header),
		Sender:  decodeHeader(msg.Header.Get("From")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}

	if addr, err := mail.ParseAddress(m.Sender); err == nil {
		m.SenderAddress = strings.ToLower(addr.Address)
		if at := strings.LastIndex(m.SenderAddress, "@"); at >= 0 {
			m.SenderDomain = m.SenderAddress[at+1:]
		}
	}

	body := extractText(
		msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"),
		msg.Body)
	m.Snippet = snippet(body)

	return m, nil
}

func messageID(h mail.Header) string {
	if id := strings.Trim(h.Get("Message-Id"), "<> "); id != "" {
		return id
	}
	return "local"
}

// extractText returns the best-effort text body. It never fails: a
// message we cannot decode classifies on its headers alone.
func extractText(contentType, cte string, r io.Reader) string {
	if contentType == "" {
		return readText(r, cte, "")
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return readText(r, cte, "")
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary, ok := params["boundary"]
		if !ok {
			return readText(r, cte, params["charset"])
		}
		var plain, html bytes.Buffer
		collectParts(r, boundary, &plain, &html)
		if plain.Len() > 0 {
			return plain.String()
		}
		return html2text.HTML2Text(html.String())
	case mediaType == "text/html":
		return html2text.HTML2Text(readText(r, cte, params["charset"]))
	default:
		return readText(r, cte, params["charset"])
	}
}

// collectParts walks a multipart body, accumulating text/plain parts
// and keeping the first HTML alternative as a fallback. Nested
// multiparts recurse; attachments are skipped.
func collectParts(r io.Reader, boundary string, plain, html *bytes.Buffer) {
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return
		}

		if disp := part.Header.Get("Content-Disposition"); strings.HasPrefix(strings.ToLower(disp), "attachment") {
			continue
		}

		ct := part.Header.Get("Content-Type")
		cte := part.Header.Get("Content-Transfer-Encoding")
		mediaType, params, perr := mime.ParseMediaType(ct)
		if perr != nil {
			if ct != "" {
				continue
			}
			// A part without Content-Type is text/plain us-ascii
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			if b, ok := params["boundary"]; ok {
				collectParts(part, b, plain, html)
			}
		case mediaType == "text/plain":
			plain.WriteString(readText(part, cte, params["charset"]))
			plain.WriteString("\n")
		case mediaType == "text/html":
			if html.Len() == 0 {
				html.WriteString(readText(part, cte, params["charset"]))
			}
		}
	}
}

// readText drains r, undoing the transfer encoding and transcoding
// the charset to UTF-8.
func readText(r io.Reader, cte, charset string) string {
	switch strings.ToLower(strings.TrimSpace(cte)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	b, err := io.ReadAll(r)
	if err != nil && len(b) == 0 {
		return ""
	}
	return decodeCharset(b, charset)
}

func decodeCharset(b []byte, charset string) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return string(b)
	}
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return string(b)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

var headerDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.MIME.Encoding(charset)
		if err != nil || enc == nil {
			return input, nil
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// decodeHeader undoes RFC 2047 encoded words.
func decodeHeader(s string) string {
	out, err := headerDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

// snippet collapses whitespace and caps the result without splitting
// a UTF-8 sequence.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= snippetLimit {
		return s
	}
	s = s[:snippetLimit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
