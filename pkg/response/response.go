package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// APIResponse is the envelope every endpoint answers with.
type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

// ErrorBody is the stable error shape: a machine-readable code plus optional details.
type ErrorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Count   int   `json:"count"`
	HasMore bool  `json:"has_more"`
	Owner   int64 `json:"owner,omitempty"`
}

// NewPageMeta reports HasMore whenever the page came back full.
func NewPageMeta(limit, offset, count int) PageMeta {
	return PageMeta{Limit: limit, Offset: offset, Count: count, HasMore: limit > 0 && count >= limit}
}

// RequestID returns the id assigned by the request id middleware, if any.
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func envelope[T any](c *gin.Context, status, def int, ok bool, message string) APIResponse[T] {
	if status == 0 {
		status = def
	}
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: RequestID(c),
		Success:   ok,
		Message:   message,
	}
}

// Success writes a success envelope; status 0 means 200.
func Success[T any](c *gin.Context, status int, data T, message string, meta any) {
	resp := envelope[T](c, status, http.StatusOK, true, message)
	resp.Data = data
	resp.Meta = meta
	c.JSON(resp.Status, resp)
}

// Error writes an error envelope; status 0 means 400.
func Error(c *gin.Context, status int, message string, body any) {
	resp := envelope[any](c, status, http.StatusBadRequest, false, message)
	resp.Error = body
	c.JSON(resp.Status, resp)
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string, body any) {
	resp := envelope[any](c, status, http.StatusBadRequest, false, message)
	resp.Error = body
	c.AbortWithStatusJSON(resp.Status, resp)
}
