package opslog

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey int

const clientCtxKey ctxKey = 1

func WithClient(ctx context.Context, c *Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientCtxKey, c)
}

func FromContext(ctx context.Context) *Client {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(clientCtxKey).(*Client)
	return c
}

// InjectMiddleware makes the client reachable from handlers via FromGin.
func InjectMiddleware(p *Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil && c.Request != nil {
			c.Request = c.Request.WithContext(WithClient(c.Request.Context(), p))
		}
		c.Next()
	}
}

func FromGin(c *gin.Context) *Client {
	if c == nil || c.Request == nil {
		return nil
	}
	return FromContext(c.Request.Context())
}

// NotifyGin is Notify for the client injected into the request, if any.
func NotifyGin(c *gin.Context, action, level string, details map[string]any) {
	p := FromGin(c)
	if p == nil {
		return
	}
	p.Notify(c.Request.Context(), action, level, details)
}
