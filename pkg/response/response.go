// Package response renders the envelope every growth API endpoint speaks:
// a success flag, the payload under data, and either an error block or
// list metadata depending on the outcome.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/lumoapp/lumo-growth/pkg/errors"
)

// Response is the envelope returned by every endpoint. Exactly one of Data
// and Error is set; Meta accompanies list payloads.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo carries the client-safe code and message for a failed request.
// Internal error detail never crosses this boundary.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes a list payload. Suggestion and invitation listings report
// Total; paged endpoints fill the rest.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// Success writes data inside a success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes data with explicit list metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// List writes a collection payload with its total count in the metadata.
func List(c *gin.Context, items interface{}, total int) {
	SuccessWithMeta(c, http.StatusOK, items, &Meta{Total: total})
}

// Error maps err onto the envelope's error block. Unrecognised errors are
// reported as an internal server failure.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
