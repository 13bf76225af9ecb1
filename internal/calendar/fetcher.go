package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"signalboard/config"
	"signalboard/internal/model"
	"signalboard/logger"
)

// Fetcher periodically pulls the economic-calendar feed, drops events
// already in the past, clusters the rest by time label and hands the
// clusters to the consumer.
type Fetcher struct {
	cfg        config.CalendarConfig
	httpClient *http.Client
	onClusters func([]model.NewsCluster)
	now        func() time.Time
	log        *logger.Entry

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

func NewFetcher(cfg config.CalendarConfig, onClusters func([]model.NewsCluster)) *Fetcher {
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		onClusters: onClusters,
		now:        time.Now,
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger().WithComponent("calendar_fetcher"),
	}
}

// Start begins the refresh loop. An immediate fetch runs before the
// first tick so the dashboard is not empty for a full interval.
func (f *Fetcher) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("calendar fetcher already running")
	}
	f.running = true
	f.ctx = ctx
	f.mu.Unlock()

	if f.cfg.URL == "" {
		f.log.Warn("calendar url not configured, fetcher idle")
		return nil
	}

	f.log.WithFields(logger.Fields{
		"url":      f.cfg.URL,
		"interval": f.cfg.RefreshInterval.String(),
	}).Info("starting calendar fetcher")

	f.wg.Add(1)
	go f.loop()
	return nil
}

// Stop waits for the refresh loop to finish.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	f.wg.Wait()
	f.log.Info("calendar fetcher stopped")
}

func (f *Fetcher) loop() {
	defer f.wg.Done()

	f.refresh()

	ticker := time.NewTicker(f.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.refresh()
		}
	}
}

func (f *Fetcher) refresh() {
	events, err := f.fetch()
	if err != nil {
		f.log.WithError(err).Warn("calendar fetch failed")
		return
	}

	now := f.now()
	nowMinutes := now.Hour()*60 + now.Minute()
	upcoming := FilterUpcoming(events, nowMinutes, f.cfg.SoonWindowMinutes)
	clusters := GroupByMinute(upcoming)

	f.log.WithFields(logger.Fields{
		"events":   len(events),
		"clusters": len(clusters),
	}).Debug("calendar refreshed")

	if f.onClusters != nil {
		f.onClusters(clusters)
	}
}

func (f *Fetcher) fetch() ([]model.NewsEvent, error) {
	req, err := http.NewRequestWithContext(f.ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar feed returned status %d", resp.StatusCode)
	}

	var events []model.NewsEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode calendar feed: %w", err)
	}
	return events, nil
}
