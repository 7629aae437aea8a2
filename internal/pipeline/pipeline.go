package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riverwatch/flood-risk-service/internal/config"
	"github.com/riverwatch/flood-risk-service/internal/domain"
	"github.com/riverwatch/flood-risk-service/internal/observability"
)

// GaugeReader fetches the latest instantaneous readings for a set of sites.
type GaugeReader interface {
	FetchReadings(ctx context.Context, sites []string) ([]domain.SiteReading, error)
}

// SiteCatalog resolves static metadata for a gauge site.
type SiteCatalog interface {
	SiteInfo(ctx context.Context, siteCode string) (domain.SiteInfo, error)
}

// AlertSource fetches active flood alerts for the configured area.
type AlertSource interface {
	FetchFloodAlerts(ctx context.Context) ([]domain.FloodAlert, error)
}

// WeatherSource fetches precipitation and river discharge forecasts for a
// location.
type WeatherSource interface {
	Rainfall(ctx context.Context, lat, lon float64) (currentMM, forecast24MM float64, err error)
	RiverDischarge(ctx context.Context, lat, lon float64, days int) ([]float64, error)
}

// Publisher writes the assessments of one cycle to the sink. May be nil when
// publishing is disabled.
type Publisher interface {
	Publish(ctx context.Context, assessments []domain.Assessment) error
}

// dischargeForecastDays is how far ahead river discharge is requested.
const dischargeForecastDays = 3

// historyWindow bounds the regional risk history.
const historyWindow = 24 * time.Hour

// Dashboard is the aggregate regional picture served to the frontend.
type Dashboard struct {
	Regional           domain.RegionalAssessment  `json:"regional_risk"`
	Trend              domain.TrendAnalysis       `json:"trend"`
	CriticalWatersheds int                        `json:"critical_watersheds"`
	Watersheds         []domain.WatershedSnapshot `json:"watersheds"`
	ActiveAlerts       []domain.FloodAlert        `json:"active_alerts"`
	RapidRise          *domain.RapidRise          `json:"rapid_rise,omitempty"`
	Breaches           []domain.Breach            `json:"threshold_breaches,omitempty"`
	AnomalyDetected    bool                       `json:"anomaly_detected"`
	PeakRisk           *domain.PeakRiskWindow     `json:"peak_risk,omitempty"`
	DischargeForecasts map[string][]float64       `json:"discharge_forecast_cfs,omitempty"`
	UpdatedAt          time.Time                  `json:"updated_at,omitzero"`
}

// watershedState is the per-site carry-over between cycles.
type watershedState struct {
	reading   domain.SiteReading
	trend     string
	rate      float64
	stability float64
}

// Pipeline orchestrates the collect-score-publish loop and holds the
// regional state served by the HTTP API.
type Pipeline struct {
	gauges    GaugeReader
	catalog   SiteCatalog
	alerts    AlertSource
	weather   WeatherSource
	publisher Publisher

	sites    []string
	interval time.Duration

	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	ready   atomic.Bool

	mu         sync.RWMutex
	snapshots  map[string]domain.WatershedSnapshot
	prev       map[string]watershedState
	history    []domain.RiskObservation
	dashboard  Dashboard
	discharges map[string][]float64
}

// New creates a Pipeline with the given sources and observability.
func New(cfg *config.Config, gauges GaugeReader, catalog SiteCatalog, alerts AlertSource,
	weather WeatherSource, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		gauges:     gauges,
		catalog:    catalog,
		alerts:     alerts,
		weather:    weather,
		publisher:  publisher,
		sites:      cfg.USGSSites,
		interval:   cfg.CollectInterval,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		snapshots:  make(map[string]domain.WatershedSnapshot),
		prev:       make(map[string]watershedState),
		discharges: make(map[string][]float64),
	}
}

// SetClock replaces the pipeline clock. Passing nil restores the real clock.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	p.clock = c
}

// CheckReadiness returns nil once at least one assessment cycle has
// completed, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no assessment cycle has completed yet")
	}
	return nil
}

// Ready reports whether at least one assessment cycle has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run executes the assessment loop until the context is cancelled. The first
// cycle starts immediately; later cycles follow the configured interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "sites", len(p.sites))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.runCycle(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.runCycle(ctx)
		}
	}
}

// runCycle performs one collect-score-publish pass. Collector failures
// degrade their inputs for the cycle and are logged and counted, never fatal;
// only a gauge outage (no readings at all) fails the whole cycle.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := p.clock.Now()

	readings, err := p.collectGauges(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("assessment cycle failed", "error", err)
		p.metrics.CycleFailures.Inc()
		return
	}
	if len(readings) == 0 {
		p.logger.Warn("no gauge readings this cycle")
		return
	}

	floodAlerts := p.collectAlerts(ctx)
	now := p.clock.Now().UTC()

	assessments := make([]domain.Assessment, 0, len(readings))
	for _, reading := range readings {
		snapshot, risk := p.assessWatershed(ctx, reading, len(floodAlerts))

		p.mu.Lock()
		p.snapshots[snapshot.ID] = snapshot
		p.mu.Unlock()

		assessments = append(assessments, domain.Assessment{
			Watershed:  snapshot,
			Risk:       risk,
			AssessedAt: now,
		})
	}

	p.updateRegionalState(floodAlerts, now)

	if p.publisher != nil {
		if err := p.publishWithRetry(ctx, assessments); err != nil {
			p.logger.Error("publish assessments failed", "error", err, "count", len(assessments))
			p.metrics.CycleFailures.Inc()
			return
		}
		p.metrics.AssessmentsPublished.Add(float64(len(assessments)))
	}

	p.metrics.CyclesCompleted.Inc()
	p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
}

// collectGauges polls the gauge source, timing and counting failures.
func (p *Pipeline) collectGauges(ctx context.Context) ([]domain.SiteReading, error) {
	start := p.clock.Now()
	readings, err := p.gauges.FetchReadings(ctx, p.sites)
	p.metrics.CollectorDuration.WithLabelValues("usgs").Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.CollectorErrors.WithLabelValues("usgs").Inc()
	}
	return readings, err
}

// collectAlerts polls the alert source. An outage degrades to zero alerts.
func (p *Pipeline) collectAlerts(ctx context.Context) []domain.FloodAlert {
	start := p.clock.Now()
	alerts, err := p.alerts.FetchFloodAlerts(ctx)
	p.metrics.CollectorDuration.WithLabelValues("noaa").Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.CollectorErrors.WithLabelValues("noaa").Inc()
		p.logger.Warn("alert collection failed, assuming none active", "error", err)
		return nil
	}
	return alerts
}

// assessWatershed turns one gauge reading into a scored snapshot. Metadata
// and weather failures degrade that input to its defaults.
func (p *Pipeline) assessWatershed(ctx context.Context, reading domain.SiteReading, alertCount int) (domain.WatershedSnapshot, domain.RiskResult) {
	info, err := p.catalog.SiteInfo(ctx, reading.SiteCode)
	if err != nil {
		p.metrics.CollectorErrors.WithLabelValues("usgs").Inc()
		p.logger.Warn("site metadata lookup failed", "site", reading.SiteCode, "error", err)
	}

	currentRain, forecastRain := p.collectRainfall(ctx, reading)
	p.collectDischarge(ctx, reading)

	floodStageCFS := floodStagesCFS[reading.SiteCode]
	_, flowRiskScore := domain.FlowRisk(reading.FlowCFS, floodStageCFS)

	trend, rate, stability := p.trendFor(reading)

	name := info.Name
	if name == "" {
		name = reading.SiteName
	}

	snapshot := domain.WatershedSnapshot{
		ID:                   reading.SiteCode,
		Name:                 name,
		BasinSizeSqMi:        info.DrainageAreaSqMi,
		CurrentStreamflowCFS: reading.FlowCFS,
		RiskScore:            flowRiskScore,
		RiskLevel:            domain.FlowRiskLevel(flowRiskScore),
		FloodStageCFS:        floodStageCFS,
		Trend:                trend,
		TrendRateCFSPerHour:  rate,
		TrendStability:       stability,
		LastUpdated:          reading.ObservedAt,
	}

	measurement := domain.Measurement{
		CurrentRainfallMM:  currentRain,
		ForecastRainfallMM: forecastRain,
		FlowCFS:            reading.FlowCFS,
		RiverStageFT:       reading.GageHeightFT,
		WeatherAlerts:      alertCount,
	}.ApplyDefaults()

	return snapshot, domain.ComputeRisk(measurement)
}

// collectRainfall fetches precipitation for the gauge location, degrading to
// zero rain on failure.
func (p *Pipeline) collectRainfall(ctx context.Context, reading domain.SiteReading) (currentMM, forecastMM float64) {
	start := p.clock.Now()
	current, forecast, err := p.weather.Rainfall(ctx, reading.Lat, reading.Lon)
	p.metrics.CollectorDuration.WithLabelValues("openmeteo").Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.CollectorErrors.WithLabelValues("openmeteo").Inc()
		p.logger.Warn("rainfall collection failed", "site", reading.SiteCode, "error", err)
		return 0, 0
	}
	return current, forecast
}

// collectDischarge refreshes the model discharge forecast shown alongside
// the gauge-derived forecast. Failures keep the previous forecast.
func (p *Pipeline) collectDischarge(ctx context.Context, reading domain.SiteReading) {
	discharge, err := p.weather.RiverDischarge(ctx, reading.Lat, reading.Lon, dischargeForecastDays)
	if err != nil {
		p.metrics.CollectorErrors.WithLabelValues("openmeteo").Inc()
		p.logger.Warn("discharge forecast failed", "site", reading.SiteCode, "error", err)
		return
	}
	p.mu.Lock()
	p.discharges[reading.SiteCode] = discharge
	p.mu.Unlock()
}

// trendFor derives the flow trend against the previous cycle's reading.
// Stability reflects whether the direction held between cycles; the first
// sighting of a site reports unknown (zero) stability.
func (p *Pipeline) trendFor(reading domain.SiteReading) (trend string, rate, stability float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, seen := p.prev[reading.SiteCode]
	if seen {
		hours := reading.ObservedAt.Sub(state.reading.ObservedAt).Hours()
		// Gauges update slower than the cycle interval; an unchanged
		// observation keeps the established trend.
		if hours <= 0 {
			return state.trend, state.rate, state.stability
		}
		trend, rate = domain.FlowTrend(reading.FlowCFS, state.reading.FlowCFS, hours)
		if trend == state.trend {
			stability = 0.9
		} else {
			stability = 0.6
		}
	} else {
		trend = "stable"
	}

	p.prev[reading.SiteCode] = watershedState{
		reading:   reading,
		trend:     trend,
		rate:      rate,
		stability: stability,
	}
	return trend, rate, stability
}

// updateRegionalState recomputes the dashboard aggregate after a cycle's
// snapshots have landed.
func (p *Pipeline) updateRegionalState(alerts []domain.FloodAlert, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshots := p.sortedSnapshotsLocked()

	regional := domain.AssessRegionalRisk(snapshots, p.history)
	p.history = append(p.history, domain.RiskObservation{
		Timestamp: now,
		Score:     regional.Score,
		Level:     regional.Level,
	})
	p.history = domain.TrimHistory(p.history, historyWindow)

	critical := domain.CountCritical(snapshots)

	discharges := make(map[string][]float64, len(p.discharges))
	for code, d := range p.discharges {
		discharges[code] = d
	}

	p.dashboard = Dashboard{
		Regional:           regional,
		Trend:              domain.AnalyzeTrend(p.history),
		CriticalWatersheds: critical,
		Watersheds:         snapshots,
		ActiveAlerts:       alerts,
		RapidRise:          domain.DetectRapidRise(snapshots),
		Breaches:           domain.DetectBreaches(snapshots),
		AnomalyDetected:    domain.DetectAnomaly(snapshots),
		PeakRisk:           domain.PredictPeakRisk(p.history),
		DischargeForecasts: discharges,
		UpdatedAt:          now,
	}

	p.metrics.WatershedsTracked.Set(float64(len(snapshots)))
	p.metrics.CriticalWatersheds.Set(float64(critical))
	p.metrics.RegionalRiskScore.Set(regional.Score)
}

// publishWithRetry writes the cycle's assessments with exponential backoff:
// start at 200ms, double each retry, cap at 5s, give up after five attempts.
func (p *Pipeline) publishWithRetry(ctx context.Context, assessments []domain.Assessment) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = p.publisher.Publish(ctx, assessments)
		if err == nil {
			return nil
		}
		p.logger.Warn("publish failed, retrying", "error", err, "backoff", backoff)
		if !p.sleepWithContext(ctx, backoff) {
			return err
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// Dashboard returns the latest regional aggregate.
func (p *Pipeline) Dashboard() Dashboard {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dashboard
}

// Watersheds returns the current snapshots ordered by risk, highest first.
func (p *Pipeline) Watersheds() []domain.WatershedSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sortedSnapshotsLocked()
}

func (p *Pipeline) sortedSnapshotsLocked() []domain.WatershedSnapshot {
	snapshots := make([]domain.WatershedSnapshot, 0, len(p.snapshots))
	for _, s := range p.snapshots {
		snapshots = append(snapshots, s)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].RiskScore != snapshots[j].RiskScore {
			return snapshots[i].RiskScore > snapshots[j].RiskScore
		}
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}

// Forecast projects all tracked watersheds hoursAhead.
func (p *Pipeline) Forecast(hoursAhead int) domain.ForecastResult {
	return domain.Forecast(p.Watersheds(), hoursAhead, p.logger)
}

// CriticalPeriod estimates the next critical flood window, or nil.
func (p *Pipeline) CriticalPeriod() *domain.CriticalPeriodEstimate {
	return domain.PredictCriticalPeriod(p.Watersheds())
}

// floodStagesCFS holds NWS flood-stage discharge for the default gauge
// sites. Sites absent from the table score on absolute flow instead.
var floodStagesCFS = map[string]float64{
	"08057000": 49000, // Trinity Rv at Dallas
	"08048000": 30000, // W Fk Trinity Rv at Fort Worth
	"08066250": 65000, // Trinity Rv nr Goodrich
	"08068500": 14000, // Spring Ck nr Spring
	"08074000": 20000, // Buffalo Bayou at Houston
	"08167000": 18000, // Guadalupe Rv at Comfort
	"08171000": 12000, // Blanco Rv at Wimberley
	"08158000": 15000, // Colorado Rv at Austin
}
