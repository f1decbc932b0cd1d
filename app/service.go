// Package app wires the engine together from the configuration: store,
// pool, registry, lifecycle, coordinator, broker edge, sinks and the HTTP
// surfaces.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apidrivers "github.com/openrescue/dispatch/api/drivers"
	apireports "github.com/openrescue/dispatch/api/reports"
	apirequests "github.com/openrescue/dispatch/api/requests"
	"github.com/openrescue/dispatch/config"
	"github.com/openrescue/dispatch/core/dispatch"
	"github.com/openrescue/dispatch/core/lifecycle"
	corelogger "github.com/openrescue/dispatch/core/logger"
	coremetrics "github.com/openrescue/dispatch/core/metrics"
	"github.com/openrescue/dispatch/core/pool"
	"github.com/openrescue/dispatch/core/registry"
	"github.com/openrescue/dispatch/infra/logger"
	"github.com/openrescue/dispatch/infra/metrics"
	"github.com/openrescue/dispatch/infra/mqtt"
	memstore "github.com/openrescue/dispatch/infra/store"
)

// Service orchestrates the dispatch coordinator and its edges.
type Service struct {
	Coordinator *dispatch.Coordinator
	Pool        *pool.Pool
	Registry    *registry.Registry
	Store       *memstore.Memory

	client      *mqtt.PahoClient
	apiAddr     string
	promEnabled bool
	promAddr    string
	log         corelogger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st := memstore.NewMemory()
	p := pool.New(cfg.Pool, logger.New("pool"))
	reg := registry.New(st.Drivers(), logger.New("registry"))
	lc, err := lifecycle.NewManager(st.Requests(), p, reg, cfg.Pool.TTL(), logger.New("lifecycle"))
	if err != nil {
		return nil, fmt.Errorf("lifecycle manager: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxURL != "" {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	coord, err := dispatch.NewCoordinator(lc, p, reg, st, nil, sink, logg)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	client, err := mqtt.NewPahoClient(cfg.MQTT, coord)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	coord.SetNotifier(client)

	svc := &Service{
		Coordinator: coord,
		Pool:        p,
		Registry:    reg,
		Store:       st,
		client:      client,
		apiAddr:     cfg.API.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
		log:         logg,
	}

	for _, d := range cfg.Seed.ModelDrivers() {
		if err := reg.Register(context.Background(), d); err != nil {
			return nil, fmt.Errorf("seed driver %s: %w", d.ID, err)
		}
	}
	return svc, nil
}

// Run starts the coordinator and the HTTP surfaces, blocking until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Coordinator.Run(ctx)

	mux := http.NewServeMux()
	reqHandler := apirequests.NewHandler(s.Coordinator)
	drvHandler := apidrivers.NewHandler(s.Coordinator, s.Registry)
	mux.Handle("/api/requests", reqHandler)
	mux.Handle("/api/requests/", reqHandler)
	mux.Handle("/api/drivers", drvHandler)
	mux.Handle("/api/drivers/", drvHandler)
	mux.Handle("/api/reports/summary", apireports.NewSummaryHandler(s.Store))

	srv := &http.Server{Addr: s.apiAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()

	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.log.Infof("dispatch engine listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	s.Coordinator.Close()
	return nil
}
