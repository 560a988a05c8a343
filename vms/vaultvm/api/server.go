// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm"

	avajson "github.com/luxfi/vault/utils/json"
	utilmetric "github.com/luxfi/vault/utils/metric"
)

const (
	baseURL              = "/ext"
	maxConcurrentStreams = 64

	vaultServiceName = "vault"
	devServiceName   = "dev"
)

// HealthCheck reports nil while the process is healthy.
type HealthCheck func(context.Context) error

type ServerConfig struct {
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// Server routes JSON-RPC calls to the vault of each ledger:
//
//	/ext/vault/<ledgerID>  vault.* calls
//	/ext/dev               dev.* calls, when a DevService is registered
//	/ext/metrics           prometheus exposition
//	/ext/health            liveness
type Server struct {
	log             log.Logger
	shutdownTimeout time.Duration
	router          *mux.Router
	interceptor     utilmetric.APIInterceptor
	srv             *http.Server
}

func NewServer(
	logger log.Logger,
	cfg ServerConfig,
	interceptor utilmetric.APIInterceptor,
	gatherer prometheus.Gatherer,
	health HealthCheck,
) *Server {
	router := mux.NewRouter()
	s := &Server{
		log:             logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          router,
		interceptor:     interceptor,
	}

	router.Handle(baseURL+"/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.HandleFunc(baseURL+"/health", healthHandler(health)).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
	}).Handler(router)
	s.srv = &http.Server{
		Handler: h2c.NewHandler(
			handler,
			&http2.Server{
				MaxConcurrentStreams: maxConcurrentStreams,
			}),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	logger.Info("API created with allowed origins: " + strings.Join(cfg.AllowedOrigins, ","))
	return s
}

func (s *Server) newRPCServer(service any, name string) (*rpc.Server, error) {
	codec := avajson.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if s.interceptor != nil {
		server.RegisterInterceptFunc(s.interceptor.InterceptRequest)
		server.RegisterAfterFunc(s.interceptor.AfterRequest)
	}
	if err := server.RegisterService(service, name); err != nil {
		return nil, fmt.Errorf("couldn't register %s service: %w", name, err)
	}
	return server, nil
}

// RegisterVault serves [v] at /ext/vault/<ledgerID>.
func (s *Server) RegisterVault(v *vaultvm.Vault, a *Authenticator) error {
	server, err := s.newRPCServer(NewService(v, a, s.log), vaultServiceName)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/vault/%s", baseURL, v.LedgerID())
	s.log.Info("adding route",
		log.String("url", url),
		log.Stringer("ledger", v.LedgerID()),
	)
	s.router.Handle(url, server).Methods(http.MethodPost)
	return nil
}

// RegisterDev serves [d] at /ext/dev.
func (s *Server) RegisterDev(d *DevService) error {
	server, err := s.newRPCServer(d, devServiceName)
	if err != nil {
		return err
	}
	s.log.Info("adding route", log.String("url", baseURL+"/dev"))
	s.router.Handle(baseURL+"/dev", server).Methods(http.MethodPost)
	return nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Dispatch serves on [listener] until Shutdown.
func (s *Server) Dispatch(listener net.Listener) error {
	err := s.srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	err := s.srv.Shutdown(ctx)
	cancel()

	// If shutdown times out, make sure the server is still shutdown.
	_ = s.srv.Close()
	return err
}

type healthReply struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := healthReply{Healthy: true}
		status := http.StatusOK
		if check != nil {
			if err := check(r.Context()); err != nil {
				reply = healthReply{Error: err.Error()}
				status = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}
}
