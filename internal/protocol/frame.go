package protocol

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Fixed header values sent with every HTTP response
const (
	LastModified = "Sat, 01 Jan 2000 00:01:15 GMT"
	ServerHeader = "Unspecified, UPnP/1.0, Unspecified"
	UserAgent    = "Fauxmo"
)

// HTTPDate formats t the way HTTP DATE headers expect, always in GMT.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// WithHTTPHeaders prefixes body with the response header block. Header
// names and order are fixed; some controllers compare them literally.
//
// Response layout:
//
//	HTTP/1.1 200 OK
//	CONTENT-LENGTH: <bytes in body>
//	CONTENT-TYPE: text/xml
//	DATE: <now>
//	LAST-MODIFIED: Sat, 01 Jan 2000 00:01:15 GMT
//	SERVER: Unspecified, UPnP/1.0, Unspecified
//	X-User-Agent: Fauxmo
//	CONNECTION: close
//	<blank line>
//	<body>
func WithHTTPHeaders(body string, now time.Time) []byte {
	lines := []string{
		"HTTP/1.1 200 OK",
		"CONTENT-LENGTH: " + strconv.Itoa(len(body)),
		"CONTENT-TYPE: text/xml",
		"DATE: " + HTTPDate(now),
		"LAST-MODIFIED: " + LastModified,
		"SERVER: " + ServerHeader,
		"X-User-Agent: " + UserAgent,
		"CONNECTION: close" + CRLF,
		body,
	}
	return []byte(strings.Join(lines, CRLF))
}
