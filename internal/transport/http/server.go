package http

import (
	"context"
	stdhttp "net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/auth"
	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/config"
)

// CallStore is the part of callstate.Store the transport needs.
type CallStore interface {
	Dispatch(ctx context.Context, ev callstate.Event) (callstate.Result, error)
	Current(ctx context.Context) (callstate.Snapshot, error)
	Subscribe() *callstate.Subscriber
	Unsubscribe(sub *callstate.Subscriber)
}

// NewServer builds the HTTP server exposing the call store.
func NewServer(store CallStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(store, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires routes and middleware.
func NewRouter(store CallStore, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(corsMiddleware(cfg.CORSOrigins))
	}

	r.GET("/health", healthHandler)

	protected := r.Group("/")
	if cfg.AuthEnabled() {
		jwtCfg := &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.JWTTTL,
		}
		protected.Use(AuthMiddleware(jwtCfg, logger))
	}

	api := NewAPIHandlers(store, logger)
	protected.GET("/api/state", api.State)
	protected.POST("/api/dispatch", api.Dispatch)
	protected.POST("/api/signal", api.Signal)

	ws := NewWSHandler(store, WSOptions{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxMessageBytes:    cfg.MaxMessageBytes,
		WriteTimeout:       10 * time.Second,
		OriginPatterns:     cfg.CORSOrigins,
	}, logger)
	protected.GET("/ws", ws.Handle)

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}
