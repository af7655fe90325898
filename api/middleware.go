package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billetera "github.com/billetera/billetera-api"
	"github.com/billetera/billetera-api/core"
)

// Headers set on every response.
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderResponseTime = "X-Response-Time-Ms"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "billetera.request_id"

// routeUnmatched labels metrics of requests that matched no route, so
// arbitrary paths do not become label values.
const routeUnmatched = "unmatched"

// timedWriter stamps the elapsed time on the response just before the status
// line is written.
type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

func (w *timedWriter) stamp() {
	if w.stamped || w.Written() {
		return
	}
	w.stamped = true
	w.Header().Set(HeaderResponseTime, formatMillis(time.Since(w.start)))
}

func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64)
}

// requestContext tags each request with an id, times it, logs it and
// records it in metrics.
func requestContext(logger billetera.Logger, metrics billetera.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: start}

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		metrics.ObserveRequest(c.Request.Method, route, status, elapsed)

		logger.Info("request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"elapsed_ms", formatMillis(elapsed),
		)
	}
}

// recovery turns a panic into a 500 INTERNAL_SERVER_ERROR envelope.
func recovery(logger billetera.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			"request_id", c.GetString(RequestIDKey),
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered),
		)
		respondError(c, core.ErrInternal)
	})
}

func noRoute(c *gin.Context) {
	respondError(c, core.NewError(http.StatusNotFound, core.CodeHTTP, "Not Found", nil))
}
