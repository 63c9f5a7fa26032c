// Package httpapi exposes the console façade, branch scope and notification
// feed over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"food-console/console"
	"food-console/notify"
	"food-console/scope"
)

type Server struct {
	console *console.Client
	scope   *scope.Manager
	feed    *notify.Feed
	log     *zap.Logger
}

// Config provides dependencies for Server.
type Config struct {
	Console *console.Client
	Scope   *scope.Manager
	Feed    *notify.Feed
	Logger  *zap.Logger
}

func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{console: cfg.Console, scope: cfg.Scope, feed: cfg.Feed, log: log}
}

// Router builds the chi router with every route mounted under /v1.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/branches", s.getBranches)
		r.Put("/branches/selected", s.selectBranch)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.listOrders)
			r.Get("/recent", s.recentOrders)
			r.Get("/range", s.ordersRange)
			r.Get("/by-status/{status}", s.ordersForStatus)
			r.Get("/{id}", s.orderDetails)
			r.Patch("/{id}/status", s.updateOrderStatus)
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", s.listDeliveries)
			r.Post("/", s.assignDelivery)
			r.Post("/{id}/advance", s.advanceDelivery)
		})

		r.Route("/riders", func(r chi.Router) {
			r.Get("/", s.listRiders)
			r.Post("/", s.insertRider)
			r.Patch("/{id}", s.updateRider)
		})
		r.Patch("/profiles/{id}", s.updateProfile)

		r.Get("/staff", s.listStaff)
		r.Get("/staff/allowlist", s.listAllowlist)
		r.Put("/staff/allowlist", s.upsertAllowlist)

		r.Get("/customers", s.listCustomers)
		r.Get("/customers/{id}/addresses", s.customerAddresses)
		r.Get("/customers/{id}/orders", s.customerOrders)

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", s.listChats)
			r.Get("/{id}/messages", s.chatMessages)
			r.Post("/{id}/messages", s.sendChatMessage)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Post("/read-all", s.markAllNotificationsRead)
			r.Post("/{id}/read", s.markNotificationRead)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", s.getMenu)
			r.Post("/items", s.insertMenuItem)
			r.Patch("/items/{id}", s.updateMenuItem)
			r.Post("/categories", s.insertCategory)
			r.Patch("/categories/{id}", s.updateCategory)
			r.Get("/addons", s.listAddons)
			r.Post("/addons", s.insertAddon)
			r.Delete("/addons/{id}", s.deleteAddon)
		})

		r.Route("/promos", func(r chi.Router) {
			r.Get("/", s.listPromos)
			r.Post("/", s.insertPromo)
			r.Patch("/{id}", s.updatePromo)
		})
		r.Get("/reviews", s.listReviews)
		r.Get("/audit", s.auditLog)

		r.Get("/settings/delivery", s.getDeliverySettings)
		r.Put("/settings/delivery", s.saveDeliverySettings)
		r.Get("/settings/restaurant", s.getRestaurantSettings)
		r.Put("/settings/restaurant", s.saveRestaurantSettings)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
