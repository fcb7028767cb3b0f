package content

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// mediaType returns the lower-cased media type and charset label of a
// Content-Type header. Unparseable headers fall back to the raw value.
func mediaType(contentType string) (string, string) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType)), ""
	}
	return strings.ToLower(mt), strings.ToLower(params["charset"])
}

// decodeBody converts a response body to a UTF-8 string. A charset declared
// in the Content-Type header is honoured; otherwise the body must already be
// valid UTF-8.
func decodeBody(body []byte, charset string) (string, error) {
	if charset != "" && charset != "utf-8" && charset != "utf8" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", &ParsingError{Detail: "unsupported charset " + charset, Err: err}
		}
		decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
		if err != nil {
			return "", &ParsingError{Detail: "unable to decode " + charset + " data", Err: err}
		}
		body = decoded
	}

	body = bytes.TrimPrefix(body, utf8BOM)
	if !utf8.Valid(body) {
		return "", &ParsingError{Detail: "unable to decode data as UTF-8"}
	}
	return string(body), nil
}
