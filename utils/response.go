// File: /utils/response.go
package utils

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventhub-api/logging"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   int                 `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// PaginatedResponse mirrors page-number pagination: count plus next/previous links.
type PaginatedResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func SendError(c *gin.Context, status int, err string) {
	c.JSON(status, ErrorResponse{
		Error: err,
		Code:  status,
	})
}

// RespondError writes err using the error taxonomy and logs server-side failures.
func RespondError(c *gin.Context, err error) {
	kind := KindOf(err)
	status := kind.Status()

	resp := ErrorResponse{Code: status}
	var appErr *AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Fields = appErr.Fields
	}
	switch {
	case resp.Error != "":
	case kind == KindNotFound:
		resp.Error = "Not found"
	case kind == KindConflict:
		resp.Error = "Object already exists"
	default:
		resp.Error = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Page is a parsed ?page= query parameter.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ParsePage reads ?page= (1-based) and ?page_size= (capped at 100).
func ParsePage(c *gin.Context, defaultSize int) (Page, error) {
	p := Page{Number: 1, Size: defaultSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, NewNotFound("Invalid page.")
		}
		p.Number = n
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, NewValidationError("page_size must be a positive integer")
		}
		if n > 100 {
			n = 100
		}
		p.Size = n
	}
	return p, nil
}

func SendPaginated(c *gin.Context, results interface{}, page Page, total int64) {
	resp := PaginatedResponse{Count: total, Results: results}
	if int64(page.Number*page.Size) < total {
		resp.Next = pageLink(c, page.Number+1)
	}
	if page.Number > 1 {
		resp.Previous = pageLink(c, page.Number-1)
	}
	c.JSON(http.StatusOK, resp)
}

func pageLink(c *gin.Context, number int) *string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
