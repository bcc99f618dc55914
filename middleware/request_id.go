package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/yatube/utils"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or assigns a new one, echoes it
// in the response and stores it in the request context for event headers.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		ctx.Set("request_id", rid)
		ctx.Header(RequestIDHeader, rid)
		ctx.Request = ctx.Request.WithContext(context.WithValue(ctx.Request.Context(), utils.RequestIDKey{}, rid))
		ctx.Next()
	}
}
