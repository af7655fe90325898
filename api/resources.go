package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/billetera/billetera-api/service"
)

// crud adapts the list/create/update/delete operations of one owned resource
// to gin handlers. T is the stored row, C the create body and U the patch body.
type crud[T, C, U any] struct {
	list   func(ctx context.Context, caller service.Caller) ([]T, error)
	create func(ctx context.Context, caller service.Caller, req C) (*T, error)
	update func(ctx context.Context, caller service.Caller, id string, req U) (*T, error)
	remove func(ctx context.Context, caller service.Caller, id string) error
}

func (h crud[T, C, U]) register(g *gin.RouterGroup) {
	if h.list != nil {
		g.GET("", h.listAll)
	}
	g.POST("", h.createOne)
	if h.update != nil {
		g.PATCH("/:id", h.updateOne)
	}
	g.DELETE("/:id", h.removeOne)
}

func (h crud[T, C, U]) listAll(c *gin.Context) {
	identity(c, func(caller service.Caller) {
		rows, err := h.list(c.Request.Context(), caller)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, rows)
	})
}

func (h crud[T, C, U]) createOne(c *gin.Context) {
	var req C
	if !bindJSON(c, &req) {
		return
	}
	identity(c, func(caller service.Caller) {
		row, err := h.create(c.Request.Context(), caller, req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, row)
	})
}

func (h crud[T, C, U]) updateOne(c *gin.Context) {
	var req U
	if !bindJSON(c, &req) {
		return
	}
	identity(c, func(caller service.Caller) {
		row, err := h.update(c.Request.Context(), caller, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, row)
	})
}

func (h crud[T, C, U]) removeOne(c *gin.Context) {
	identity(c, func(caller service.Caller) {
		if err := h.remove(c.Request.Context(), caller, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		respond(c, success)
	})
}

// listTransactions binds the page and filters from the query string.
func listTransactions(s *service.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f service.TransactionFilter
		if !bindQuery(c, &f) {
			return
		}
		identity(c, func(caller service.Caller) {
			txs, err := s.List(c.Request.Context(), caller, f)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, txs)
		})
	}
}
