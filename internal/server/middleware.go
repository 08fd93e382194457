package server

import (
	"slices"
	"time"

	"live-shopping/internal/telemetry"
	"live-shopping/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"route":     c.FullPath(),
		"status":    c.Writer.Status(),
		"latency":   time.Since(start).String(),
		"client_ip": c.ClientIP(),
	}
	for k, v := range telemetry.TraceFields(c.Request.Context()) {
		fields[k] = v
	}
	utils.Info("HTTP Request", fields)
}

// CORSMiddleware allows browser clients from origins. "*" allows any origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	if slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}
