package utils

import (
	"github.com/gin-gonic/gin"
)

// Envelope wraps every successful response. Data is always present, null
// when there is nothing to return.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorEnvelope wraps every failed response
type ErrorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// JSONResponse sends data inside an Envelope
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Status: status, Message: message, Data: data})
}

// JSONError sends err inside an ErrorEnvelope and stops the handler chain
func JSONError(c *gin.Context, status int, err error, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Status: status, Message: message, Error: err.Error()})
}
