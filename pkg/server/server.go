/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes the document password workflow over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var logger = logging.NewLogger("docsecrets/server")

// Config configures the API and metrics listeners.
type Config struct {
	ListenAddress        string
	MetricsListenAddress string
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	ShutdownTimeout      time.Duration
}

// Server serves the HTTP API and, optionally, Prometheus metrics.
type Server struct {
	cfg     Config
	isReady atomic.Bool
	handler *Handler
	metrics *metrics.ServerMetrics

	srv        *http.Server
	metricsSrv *http.Server
}

// New returns a server for handler. metricsHandler may be nil, in which case
// no metrics listener is started.
func New(cfg Config, handler *Handler, m *metrics.ServerMetrics, metricsHandler http.Handler) *Server {
	if m == nil {
		m = metrics.NewDiscardServerMetrics()
	}

	srv := &Server{
		cfg:     cfg,
		handler: handler,
		metrics: m,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if metricsHandler != nil && cfg.MetricsListenAddress != "" {
		mux := chi.NewRouter()
		mux.Handle("/metrics", metricsHandler)
		srv.metricsSrv = &http.Server{
			Addr:    cfg.MetricsListenAddress,
			Handler: mux,
		}
	}

	return srv
}

// Router returns the API routes.
func (srv *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(srv.instrument)

	mux.Post("/user/wallet", srv.handler.ImportIdentity)
	mux.Post("/user/eccrypto/generate", srv.handler.Register)
	mux.Post("/document/password", srv.handler.StoreSecret)
	mux.Post("/document/password/exist", srv.handler.SecretExists)
	mux.Post("/document/password/get", srv.handler.RetrieveSecret)
	mux.Post("/document/password/remove", srv.handler.RemoveSecret)
	mux.Post("/system/identity", srv.handler.ClientID)
	mux.Post("/system/blockchaininfo", srv.handler.BlockchainInfo)

	mux.Get("/livez", srv.handleLivenessCheck)
	mux.Get("/readyz", srv.handleReadinessCheck)

	return mux
}

// SetReady marks the server ready or not ready for traffic.
func (srv *Server) SetReady(ready bool) {
	if srv.isReady.Swap(ready) != ready {
		logger.Infof("server ready: %t", ready)
	}
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (srv *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}

		srv.metrics.RequestsReceived.With("route", route, "code", strconv.Itoa(code)).Add(1)
		srv.metrics.RequestDuration.With("route", route).Observe(time.Since(start).Seconds())

		logger.Debugf("%s %s %d %s", r.Method, r.URL.Path, code, time.Since(start))
	})
}

// RunInBackground starts the listeners. Errors other than a normal close are
// sent to errs.
func (srv *Server) RunInBackground(errs chan<- error) {
	if srv.metricsSrv != nil {
		go func() {
			logger.Infof("starting metrics server on %s", srv.metricsSrv.Addr)
			if err := srv.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errs <- errors.Wrap(err, "metrics server failed")
			}
		}()
	}

	go func() {
		logger.Infof("starting HTTP server on %s", srv.srv.Addr)
		if err := srv.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- errors.Wrap(err, "HTTP server failed")
		}
	}()
}

// Shutdown stops accepting requests and waits for those in flight.
func (srv *Server) Shutdown() {
	srv.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		logger.Errorf("graceful HTTP server shutdown failed: %s", err)
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	if srv.metricsSrv != nil {
		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			logger.Errorf("graceful metrics server shutdown failed: %s", err)
		} else {
			logger.Info("metrics server gracefully stopped")
		}
	}
}
