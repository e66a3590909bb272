package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/api"
	"github.com/ParkPal-co/parking-app-sub000/config"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/checkout"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/conversation"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Services struct {
	Checkout      checkout.CheckoutUseCase
	Bookings      booking.BookingUseCase
	Conversations conversation.ConversationUseCase
}

// Run serves the HTTP API and blocks until ctx is cancelled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, log *slog.Logger) error {
	srv := newServer(cfg, NewRouter(cfg, svc, log))

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", slog.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// newServer ends every request context once Shutdown starts, so that event
// streams, which never go idle by themselves, let the server drain.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.Timeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// NewRouter builds the gin engine. Everything under /api/v1 needs a bearer
// token.
func NewRouter(cfg *config.Config, svc Services, log *slog.Logger) *gin.Engine {
	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1", api.Authenticate(cfg.Auth.JWTSecret))
	api.NewBookingHandler(svc.Checkout, svc.Bookings, svc.Conversations, log).Register(v1.Group("/bookings"))
	api.NewConversationHandler(svc.Conversations, log).Register(v1.Group("/conversations"))

	if cfg.HTTP.SwaggerDir != "" {
		docPath := filepath.Join(cfg.HTTP.SwaggerDir, "swagger.json")
		ui := gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
		router.GET("/swagger/*any", func(c *gin.Context) {
			if c.Param("any") == "/doc.json" {
				c.File(docPath)
				return
			}
			ui(c)
		})
	}

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
