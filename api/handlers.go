package api

import (
	"github.com/gin-gonic/gin"

	billetera "github.com/billetera/billetera-api"
	"github.com/billetera/billetera-api/service"
)

var success = service.Success{Success: true}

// identity runs fn with the authenticated caller or aborts the request.
func identity(c *gin.Context, fn func(caller service.Caller)) {
	id, err := billetera.GinIdentity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	fn(id)
}

type authHandler struct {
	auth *service.AuthService
}

func (h authHandler) signUp(c *gin.Context) {
	var req service.Credentials
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, session)
}

func (h authHandler) signIn(c *gin.Context) {
	var req service.Credentials
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, session)
}

func (h authHandler) refresh(c *gin.Context) {
	var req service.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, session)
}

// signOut revokes the session of the bearer token. The refresh token in the
// body is validated but the provider revokes by access token.
func (h authHandler) signOut(c *gin.Context) {
	var req service.SignOutRequest
	if !bindJSON(c, &req) {
		return
	}
	identity(c, func(caller service.Caller) {
		if err := h.auth.SignOut(c.Request.Context(), caller); err != nil {
			respondError(c, err)
			return
		}
		respond(c, success)
	})
}

func (h authHandler) resetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	respond(c, success)
}

func (h authHandler) me(c *gin.Context) {
	id, err := billetera.GinIdentity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, h.auth.Me(id))
}

type profileHandler struct {
	profiles *service.ProfileService
}

func (h profileHandler) get(c *gin.Context) {
	identity(c, func(caller service.Caller) {
		p, err := h.profiles.Get(c.Request.Context(), caller)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, p)
	})
}

func (h profileHandler) update(c *gin.Context) {
	var req service.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	identity(c, func(caller service.Caller) {
		p, err := h.profiles.Update(c.Request.Context(), caller, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, p)
	})
}
