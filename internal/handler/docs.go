package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Quote Panel

Daily OHLCV panel fed from J-Quants, with an ingestion ledger and a
composite factor ranking.

## Auth

When server.api_token is set, /api/* and /swagger require
"Authorization: Bearer <token>". Health endpoints are public.

## Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- POST /api/panel/sync?from=YYYY-MM-DD&to=YYYY-MM-DD[&codes=7203,6758][&force=true]
- GET /api/panel/ranking?from=...&to=...[&factorSet=medium|intraday][&limit=50]
  [&capMode=over|under&capThreshold=100000000000][&w.ret_mean=2][&skipSync=true]
- GET /api/panel/ingest-days[?from=...&to=...]
- GET /api/panel/sync-state
- POST /api/panel/universe/reload

## Factors

medium: ret_mean, vol_change_ratio, volatility_ratio_mean, momentum_n_days
intraday: open_volatility_ratio, gap_ratio, volatility_spike_ratio,
intraday_momentum, volume_surge_today

Each factor is turned into a percentile rank across scored codes; the score
is the weighted mean of those ranks.
`)
	})
}
