package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
)

// BodyLimit rejects request bodies larger than limit with 413. An invalid
// limit falls back to 1 MiB; config validation reports it at startup.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes, err := ParseBodyLimit(limit)
	if err != nil {
		maxBytes = defaultBodyLimit
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > maxBytes {
				return writeError(c, http.StatusRequestEntityTooLarge, KindPayloadTooLarge,
					fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", maxBytes))
			}

			// Content-Length may be absent or wrong.
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: maxBytes}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

const defaultBodyLimit int64 = 1 << 20

// ParseBodyLimit turns BODY_LIMIT into bytes. It accepts a bare byte count
// or a size such as "512K", "1M" or "1MiB". Empty means 1 MiB.
func ParseBodyLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultBodyLimit, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		n, err = bytes.Parse(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid body limit %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("body limit must be positive, got %q", s)
	}
	return n, nil
}
