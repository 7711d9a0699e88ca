package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultBodyLimit = 1 << 20

var sizeSuffixes = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"G", 30},
	{"MB", 20}, {"M", 20},
	{"KB", 10}, {"K", 10},
}

// BodyLimit caps request bodies at defaultLimit, or largeLimit for paths
// under largePrefix. Limits are sizes such as "512K", "1M" or "2MB"; a bare
// number is bytes. Oversized requests get 413.
func BodyLimit(defaultLimit, largeLimit, largePrefix string) echo.MiddlewareFunc {
	small, large := parseLimit(defaultLimit), parseLimit(largeLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := small
			if largePrefix != "" && strings.HasPrefix(req.URL.Path, largePrefix) {
				limit = large
			}
			if req.ContentLength > limit {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"detail": fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", limit),
				})
			}

			// Chunked bodies carry no Content-Length.
			req.Body = maxBytesBody{http.MaxBytesReader(c.Response(), req.Body, limit)}
			return next(c)
		}
	}
}

type maxBytesBody struct {
	io.ReadCloser
}

func (b maxBytesBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

// parseLimit converts a size string to bytes, falling back to 1MB when s is
// empty or unparseable.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, sz := range sizeSuffixes {
		if strings.HasSuffix(s, sz.suffix) {
			s, shift = strings.TrimSuffix(s, sz.suffix), sz.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return defaultBodyLimit
	}
	return n << shift
}
