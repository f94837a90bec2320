package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"go.uber.org/zap"
)

// ReadRequest reads one HTTP/1.1 request from r, including a body of up to
// maxBody bytes. The body is read by Content-Length, so requests whose
// headers and body arrive in separate TCP segments are handled.
func ReadRequest(r io.Reader, maxBody int64) (protocol.Request, error) {
	req, err := http.ReadRequest(bufio.NewReader(r))
	if err != nil {
		return protocol.Request{}, fmt.Errorf("failed to parse HTTP request: %w", err)
	}
	defer req.Body.Close()

	if req.ContentLength > maxBody {
		return protocol.Request{}, fmt.Errorf("request body too large: %d bytes (max %d)", req.ContentLength, maxBody)
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBody))
	if err != nil {
		return protocol.Request{}, fmt.Errorf("failed to read request body: %w", err)
	}

	logHeaders(req)

	return protocol.Request{
		Method:     req.Method,
		Path:       req.URL.Path,
		SOAPAction: req.Header.Get("SOAPACTION"),
		Body:       string(body),
	}, nil
}

func logHeaders(req *http.Request) {
	if !logging.DebugEnabled() {
		return
	}
	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	logging.Debug("HTTP request details",
		zap.String("method", req.Method),
		zap.String("uri", req.RequestURI),
		zap.String("proto", req.Proto),
		zap.Int64("content_length", req.ContentLength),
		zap.Any("headers", headers),
	)
}
