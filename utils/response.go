package utils

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// EncodeSuccess renders the success envelope to bytes so it can be cached
// and replayed verbatim with SuccessBytes.
func EncodeSuccess(data interface{}) ([]byte, error) {
	return json.Marshal(JSONResponse{Code: 0, Message: "success", Data: data})
}

// SuccessBytes writes a pre-rendered success envelope.
func SuccessBytes(ctx *gin.Context, b []byte) {
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// PagePayload is the JSON body of a paginated listing.
func PagePayload[T any](p Page[T]) gin.H {
	return gin.H{
		"items":      p.Items,
		"pagination": p.Meta(),
	}
}
