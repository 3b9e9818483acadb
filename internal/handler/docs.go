package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDocs serves a short operator guide at /docs.
func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# spielebasar sync service

Mirrors the open referee games of the TeamSL portal into the marketplace
database. Three jobs run on their own schedules:

- w1: games of the coming week, every few minutes
- w3: games of the coming three weeks, twice an hour
- all: every open game, twice an hour, removes games no longer offered

Only one job runs at a time. Ticks that arrive while a job is busy are skipped.

## Auth

All /api/* routes require a Bearer token. Health endpoints and /metrics are public.

## Routes

- GET /healthz
- GET /readyz
- GET /metrics
- GET /swagger/index.html
- GET /api/sync/status
- POST /api/sync/run?horizon=w1|w3|all
- GET /api/sync/runs
- GET /api/sync/state
- GET /api/clubs/:id
- PUT /api/clubs/:id/visibility
- GET /api/settings
- PUT /api/settings/:key
`)
	})
}
