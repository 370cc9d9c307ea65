// Package app wires configuration, infrastructure and the dispatch core into
// a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kurirhub/kurir/api/status"
	"github.com/kurirhub/kurir/config"
	"github.com/kurirhub/kurir/core/analytics"
	"github.com/kurirhub/kurir/core/clock"
	"github.com/kurirhub/kurir/core/dispatch"
	"github.com/kurirhub/kurir/core/events"
	coremetrics "github.com/kurirhub/kurir/core/metrics"
	corenotify "github.com/kurirhub/kurir/core/notify"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
	coresnapshot "github.com/kurirhub/kurir/core/snapshot"
	"github.com/kurirhub/kurir/infra/logger"
	"github.com/kurirhub/kurir/infra/metrics"
	"github.com/kurirhub/kurir/infra/notify"
	"github.com/kurirhub/kurir/infra/snapshot"
	"github.com/kurirhub/kurir/internal/eventbus"
)

// Service orchestrates the dispatcher, its background jobs and the status API.
type Service struct {
	Dispatcher *dispatch.Dispatcher
	Registry   *registry.Registry
	Orders     *orders.Store
	Queue      *queue.Queue
	Reporter   *analytics.Reporter

	cfg      *config.Config
	bus      *eventbus.Bus[events.Event]
	clock    clock.Clock
	snapshot coresnapshot.Store
	notifier corenotify.Notifier
	log      logger.Logger
}

// New creates a Service from the configuration. A previously saved snapshot is
// restored before the dispatcher starts.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	clk := clock.RealClock{}

	reg := registry.New(clk)
	store := orders.New(clk)
	q := queue.New(clk)

	var snapStore coresnapshot.Store
	if cfg.Snapshot.Path != "" {
		fs, err := snapshot.NewFileStore(cfg.Snapshot.Path, logger.New("snapshot"))
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		snap, ok, err := fs.Load()
		if err != nil {
			return nil, fmt.Errorf("snapshot load: %w", err)
		}
		if ok {
			coresnapshot.Apply(snap, reg, store, q)
			logg.Infof("restored snapshot from %s (%d drivers, %d orders, %d queued)",
				cfg.Snapshot.Path, len(snap.Drivers), len(snap.Orders), len(snap.Queue))
		}
		snapStore = fs
	}

	var notifier corenotify.Notifier
	if cfg.MQTT.Enabled {
		n, err := notify.NewMQTTNotifier(cfg.MQTT.Client)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		notifier = n
	} else {
		notifier = notify.NewLogNotifier()
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusPort != "" {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		in := cfg.Metrics.Influx
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(in.URL, in.Token, in.Org, in.Bucket))
	}
	var sink coremetrics.MetricsSink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[events.Event]()
	offerTimeout := time.Duration(cfg.Dispatch.OfferTimeoutSeconds) * time.Second
	d, err := dispatch.New(reg, store, q, notifier, clk, offerTimeout, sink, bus, logger.New("dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	return &Service{
		Dispatcher: d,
		Registry:   reg,
		Orders:     store,
		Queue:      q,
		Reporter:   analytics.NewReporter(store, reg, clk),
		cfg:        cfg,
		bus:        bus,
		clock:      clk,
		snapshot:   snapStore,
		notifier:   notifier,
		log:        logg,
	}, nil
}

// Events returns a subscription to the dispatch event stream.
func (s *Service) Events() <-chan events.Event {
	return s.bus.Subscribe()
}

// Run starts the background jobs and servers and blocks until the context is
// cancelled. A final snapshot is saved on the way out.
func (s *Service) Run(ctx context.Context) error {
	go s.logEvents(ctx)
	go s.runJobs(ctx)

	if s.cfg.Metrics.PrometheusPort != "" {
		readTimeout := time.Duration(s.cfg.Metrics.ReadTimeoutSeconds) * time.Second
		grace := time.Duration(s.cfg.Metrics.ShutdownGraceSeconds) * time.Second
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort, readTimeout, grace); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Addr != "" {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("status api: %v", err)
			}
		}()
	}

	<-ctx.Done()
	s.saveSnapshot()
	return nil
}

func (s *Service) serveAPI(ctx context.Context) error {
	mux := status.NewMux(s.Orders, s.Queue, s.Registry, s.Reporter)
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("status api shutdown: %v", err)
		}
	}()
	s.log.Infof("status api listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// logEvents mirrors the dispatch event stream into the service log.
func (s *Service) logEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			s.bus.Unsubscribe(sub)
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.log.Debugf("event %s: %+v", ev.Kind(), ev)
		}
	}
}

func (s *Service) saveSnapshot() {
	if s.snapshot == nil {
		return
	}
	snap := coresnapshot.Capture(s.Registry, s.Orders, s.Queue, s.clock.Now())
	if err := s.snapshot.Save(snap); err != nil {
		s.log.Errorf("snapshot save: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Dispatcher.Close()
	s.bus.Close()
	if n, ok := s.notifier.(*notify.MQTTNotifier); ok {
		n.Disconnect()
	}
	return err
}
