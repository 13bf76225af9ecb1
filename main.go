package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signalboard/config"
	"signalboard/internal/alert"
	"signalboard/internal/calendar"
	"signalboard/internal/command"
	"signalboard/internal/dashboard"
	"signalboard/internal/engine"
	"signalboard/internal/feed"
	"signalboard/internal/metrics"
	"signalboard/internal/model"
	"signalboard/logger"
)

// hubPlayer satisfies alert.Player by forwarding audio control frames to
// dashboard clients; the actual audio element lives in the browser. The
// volume is tracked locally so the unlock sequence can mute and restore it.
type hubPlayer struct {
	hub *dashboard.Hub

	mu     sync.Mutex
	volume float64
}

func newHubPlayer(hub *dashboard.Hub) *hubPlayer {
	return &hubPlayer{hub: hub, volume: 1}
}

func (p *hubPlayer) Play() error {
	p.mu.Lock()
	vol := p.volume
	p.mu.Unlock()
	p.hub.SendAudio("play", vol)
	return nil
}

func (p *hubPlayer) Pause() {
	p.mu.Lock()
	vol := p.volume
	p.mu.Unlock()
	p.hub.SendAudio("pause", vol)
}

func (p *hubPlayer) Reset() {
	p.mu.Lock()
	vol := p.volume
	p.mu.Unlock()
	p.hub.SendAudio("reset", vol)
}

func (p *hubPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *hubPlayer) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	p.hub.SendAudio("volume", v)
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Signalboard.Name,
		"version": cfg.Signalboard.Version,
	}).Info("starting signalboard")

	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The hub routes UI intents into the manager, engine and gate, which
	// are constructed after it; the closures bind the variables, not the
	// values, so assignment order below is safe as long as no client
	// connects before the dashboard server starts.
	var (
		mgr  *feed.Manager
		eng  *engine.Engine
		gate *alert.Gate
	)

	hub := dashboard.NewHub(dashboard.Intents{
		SetVisible: func(name string, visible bool) {
			if name == "chart" {
				eng.SetChartOpen(visible)
				return
			}
			mgr.SetVisible(feed.ID(name), visible)
		},
		SetFocusBroker: func(broker string) {
			eng.SetFocusBroker(broker)
		},
		SetSymbol: func(symbol string) {
			mgr.SetParam(feed.FeedSymbol, symbol)
		},
		SetBrokerTarget: func(broker string) {
			mgr.SetParam(feed.FeedBrokerDetail, broker)
		},
		UnlockAudio: func() {
			if err := gate.Unlock(); err != nil {
				log.WithComponent("main").WithError(err).Warn("audio unlock failed")
			}
		},
		DismissAlert: func() {
			gate.Dismiss()
		},
	})

	gate = alert.NewGate(newHubPlayer(hub), func(pending bool) {
		hub.Broadcast(dashboard.StateAlert, map[string]bool{"pending": pending})
	})

	eng = engine.New(cfg.Engine, func(payload *model.ComparisonChartPayload) {
		hub.Broadcast(dashboard.StateChart, payload)
	})

	mgr = feed.NewManager(cfg.Feeds, feed.NewDialer(cfg.Feeds.DialTimeout), feed.Handlers{
		OnAnalysis: func(frame model.AnalysisFrame) {
			snapshot := model.AnalysisSnapshot{
				Symbols:      frame.Symbols,
				Resetting:    frame.Resetting,
				TimeAnalysis: frame.TimeAnalysis,
				Buckets:      engine.SplitSignals(frame.Signals),
			}
			gate.Observe(snapshot.Buckets)
			hub.Broadcast(dashboard.StateAnalysis, snapshot)
		},
		OnBrokers: func(rows []model.BrokerRow) {
			hub.Broadcast(dashboard.StateBrokers, rows)
		},
		OnBrokerDetail: func(broker string, ticks []model.SymbolTick) {
			hub.Broadcast(dashboard.StateBrokerDetail, map[string]interface{}{
				"broker": broker,
				"ticks":  ticks,
			})
		},
		OnSymbolTicks: func(symbol string, ticks []model.SymbolTick) {
			eng.UpdateTicks(ticks)
			hub.Broadcast(dashboard.StateSymbol, map[string]interface{}{
				"symbol": symbol,
				"ticks":  ticks,
			})
		},
		OnFeedState: func(id feed.ID, state feed.State) {
			hub.Broadcast(dashboard.StateFeed, map[string]string{
				"feed":  string(id),
				"state": state.String(),
			})
		},
	})

	var commands *command.Client
	if cfg.Commands.BaseURL != "" {
		commands = command.NewClient(cfg.Commands, func() {
			hub.Broadcast(dashboard.StateSession, map[string]bool{"expired": true})
		})
	}

	fetcher := calendar.NewFetcher(cfg.Calendar, func(clusters []model.NewsCluster) {
		hub.Broadcast(dashboard.StateNews, clusters)
	})

	go hub.Run(ctx)

	// The analysis feed is always on; the other feeds follow UI visibility.
	mgr.SetVisible(feed.FeedAnalysis, true)

	if cfg.Calendar.URL != "" {
		if err := fetcher.Start(ctx); err != nil {
			log.WithError(err).Warn("calendar fetcher failed to start")
		}
	}

	var wg sync.WaitGroup
	server := dashboard.NewServer(cfg.Dashboard, log, hub, commands)
	if server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				log.WithError(err).Warn("dashboard server stopped with error")
			}
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping calendar fetcher")
	fetcher.Stop()

	log.Info("stopping feed manager")
	mgr.Close()

	log.Info("stopping aggregation engine")
	eng.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("signalboard stopped")
}
