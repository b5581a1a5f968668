package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeOK is the envelope code of a successful response.
const CodeOK = 0

// Envelope is the response body shape.
type Envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// RespondOK sends a 200 with a success envelope wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Code: CodeOK, Data: data, Message: "ok"})
}

// RespondBusinessError sends a 200 whose envelope reports failure.
func RespondBusinessError(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Envelope{Code: code, Message: message})
}

// RespondError aborts with status and a {"message"} body.
func RespondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Code: status, Message: message})
}
