package billetera

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/billetera/billetera-api/core"
)

// IdentityKey is the gin context key holding the *core.Identity.
const IdentityKey = "billetera.identity"

// Gin returns the middleware as a gin handler. On success the identity is
// stored both in the request context and under IdentityKey. Failures go to
// GinErrorHandler, or to the handler set with WithErrorHandler.
func (m *Middleware) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.skip(c.Request) {
			c.Next()
			return
		}

		identity, err := m.authenticate(c.Request)
		if err != nil {
			m.ginErrorHandler(c, err)
			return
		}

		c.Request = c.Request.WithContext(core.WithIdentity(c.Request.Context(), identity))
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// GinErrorHandler aborts the chain with the JSON error envelope.
func GinErrorHandler(c *gin.Context, err error) {
	status, body := NewErrorBody(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// ginAdapter runs a net/http ErrorHandler on the gin writer and stops the chain.
func ginAdapter(h ErrorHandler) func(*gin.Context, error) {
	return func(c *gin.Context, err error) {
		_ = c.Error(err)
		h(c.Writer, c.Request, err)
		c.Abort()
	}
}

// GinIdentity returns the identity stored by Gin.
func GinIdentity(c *gin.Context) (*core.Identity, error) {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(*core.Identity); ok && identity != nil {
			return identity, nil
		}
	}
	return core.IdentityFromContext(c.Request.Context())
}
