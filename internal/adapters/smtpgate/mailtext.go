package smtpgate

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

const maxMultipartDepth = 5

// extractText pulls the plain-text content out of a message. Multipart
// bodies are walked recursively, text/plain parts are collected, and
// base64 or quoted-printable parts are decoded. On any parse failure the
// raw body is returned so scoring still has something to work with.
func extractText(msg *mail.Message) string {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return readDecoded(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	boundary := params["boundary"]
	if boundary == "" {
		return readDecoded(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	var out bytes.Buffer
	collectTextParts(&out, msg.Body, boundary, 0)
	return out.String()
}

func collectTextParts(out *bytes.Buffer, body io.Reader, boundary string, depth int) {
	if depth >= maxMultipartDepth {
		return
	}

	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			partType = "text/plain"
		}

		switch {
		case strings.HasPrefix(partType, "multipart/"):
			if inner := partParams["boundary"]; inner != "" {
				collectTextParts(out, part, inner, depth+1)
			}
		case partType == "text/plain":
			out.WriteString(readDecoded(part, part.Header.Get("Content-Transfer-Encoding")))
			out.WriteString("\n")
		}
	}
}

func readDecoded(r io.Reader, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	b, err := io.ReadAll(r)
	if err != nil && len(b) == 0 {
		return ""
	}
	return string(b)
}
