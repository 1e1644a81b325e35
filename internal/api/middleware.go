package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GzipRequestMiddleware decompresses gzip-encoded request bodies so the
// write handler can decode plain JSON snapshots. Requests with invalid
// gzip payloads are rejected with a 400 response. The decompressed stream
// is capped at the document write limit, so a small compressed payload
// cannot expand without bound.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isGzipEncoded(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}

			req.Body = &gzipBody{
				r:   io.LimitReader(gr, putTasksMaxSize),
				gz:  gr,
				raw: body,
			}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)

			return next(c)
		}
	}
}

func isGzipEncoded(header string) bool {
	if header == "" {
		return false
	}
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type gzipBody struct {
	r   io.Reader
	gz  *gzip.Reader
	raw io.Closer
}

func (g *gzipBody) Read(p []byte) (int, error) {
	return g.r.Read(p)
}

func (g *gzipBody) Close() error {
	var err error
	if g.gz != nil {
		err = g.gz.Close()
	}
	if g.raw != nil {
		if cerr := g.raw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
