// Package engine orchestrates the detection pipeline: collect, smooth,
// score, accumulate risk, detect drift, update the baselines, persist,
// publish. All mutable state belongs to the single goroutine calling
// Tick; observers only ever see value snapshots.
package engine

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/shadow30812/sentinel/internal/bus"
	"github.com/shadow30812/sentinel/internal/collect"
	"github.com/shadow30812/sentinel/internal/config"
	"github.com/shadow30812/sentinel/internal/feature"
	"github.com/shadow30812/sentinel/internal/model"
	"github.com/shadow30812/sentinel/internal/persist"
	"github.com/shadow30812/sentinel/internal/state"
	"github.com/shadow30812/sentinel/internal/stats"
	"github.com/shadow30812/sentinel/internal/telemetry"
)

// elevatedRisk separates "Normal" from "Elevated" on snapshots.
const elevatedRisk = 5.0

// Engine owns the dual-timescale statistical core and the
// training/monitoring state machine.
type Engine struct {
	cfg config.Config
	log *slog.Logger

	collector collect.Collector
	smoother  *feature.Smoother
	dim       int

	short *stats.Model
	long  *stats.Model
	risk  *stats.RiskAccumulator
	drift *stats.DriftDetector

	store   *persist.Manager
	bus     *bus.Bus
	history *state.RingBuffer
	metrics *telemetry.Metrics

	training       bool
	trainingTarget int
	trainingBuf    [][]float64

	// retrainCh carries retrain commands from other goroutines (the
	// control endpoint) into the engine; they apply at the next tick.
	retrainCh chan int

	tick         uint64
	shutdownDone bool
}

// New wires an Engine and attempts to restore the previous baselines
// from disk. With no usable persisted state the engine starts in
// training mode.
func New(
	cfg config.Config,
	collector collect.Collector,
	store *persist.Manager,
	b *bus.Bus,
	history *state.RingBuffer,
	metrics *telemetry.Metrics,
	log *slog.Logger,
) (*Engine, error) {
	builder, err := feature.NewBuilder(cfg.FeatureKeys)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:            cfg,
		log:            log,
		collector:      collector,
		smoother:       feature.NewSmoother(builder, cfg.SmoothingWindow),
		dim:            builder.Dim(),
		short:          stats.NewModel(cfg.LambdaShort, cfg.EpsilonBase, cfg.MaxConditionNumber),
		long:           stats.NewModel(cfg.LambdaLong, cfg.EpsilonBase, cfg.MaxConditionNumber),
		risk:           stats.NewRiskAccumulator(cfg.RiskAlertThreshold),
		drift:          stats.NewDriftDetector(cfg.CusumK, cfg.CusumThreshold),
		store:          store,
		bus:            b,
		history:        history,
		metrics:        metrics,
		training:       true,
		trainingTarget: cfg.TrainingSeconds,
		retrainCh:      make(chan int, 1),
	}

	e.attemptLoad()
	return e, nil
}

// attemptLoad restores both models and the scalar state from disk.
// Anything short of a complete, dimension-consistent set of artefacts
// means training from scratch.
func (e *Engine) attemptLoad() {
	shortArc := e.store.LoadModel(e.store.ShortModelFile())
	longArc := e.store.LoadModel(e.store.LongModelFile())
	st, ok := e.store.LoadState()

	if shortArc == nil || longArc == nil || !ok ||
		shortArc.Dim != e.dim || longArc.Dim != e.dim {
		e.log.Info("no valid persisted state, entering training mode",
			"target_seconds", e.trainingTarget)
		return
	}

	if err := e.short.Restore(shortArc.Dim, shortArc.Mu, shortArc.Cov, shortArc.CovInv, st.Threshold); err != nil {
		e.log.Warn("short model restore failed, entering training mode", "err", err)
		return
	}
	if err := e.long.Restore(longArc.Dim, longArc.Mu, longArc.Cov, longArc.CovInv, st.Threshold); err != nil {
		e.log.Warn("long model restore failed, entering training mode", "err", err)
		e.short.Reset()
		return
	}

	e.risk.SetRisk(st.Risk)
	e.training = false
	e.log.Info("restored models from persistence",
		"threshold", st.Threshold, "risk", st.Risk)
}

// Tick runs one pipeline pass. It is invoked by the scheduler at the
// sample rate and must only ever run on that one goroutine.
func (e *Engine) Tick() {
	start := time.Now()
	defer func() { e.metrics.ObserveTick(time.Since(start)) }()

	// Apply a pending retrain command before sampling, so the command
	// takes effect atomically between ticks.
	select {
	case seconds := <-e.retrainCh:
		e.applyRetrain(seconds)
	default:
	}

	e.tick++

	raw, err := e.collector.Collect()
	if err != nil {
		// Next tick retries; risk and CUSUM state stay untouched.
		e.log.Warn("metrics collection failed", "err", err)
		return
	}

	x, ok := e.smoother.Process(raw)
	if !ok {
		return // smoothing window still warming
	}

	if e.training {
		e.handleTraining(x, raw)
	} else {
		e.handleMonitoring(x, raw)
	}
}

// handleTraining accumulates smoothed vectors until the batch target,
// then promotes both models and transitions to monitoring.
func (e *Engine) handleTraining(x *mat.VecDense, raw map[string]float64) {
	e.trainingBuf = append(e.trainingBuf, append([]float64(nil), x.RawVector().Data...))
	progress := len(e.trainingBuf)

	if progress >= e.trainingTarget {
		flat := make([]float64, 0, progress*e.dim)
		for _, row := range e.trainingBuf {
			flat = append(flat, row...)
		}
		batch := mat.NewDense(progress, e.dim, flat)

		if err := e.short.InitFromBatch(batch); err != nil {
			// A one-sample batch cannot seed a covariance; keep
			// accumulating and retry next tick.
			e.log.Warn("model initialization failed", "err", err)
		} else if err := e.long.InitFromBatch(batch); err != nil {
			e.log.Warn("model initialization failed", "err", err)
			e.short.Reset()
		} else {
			e.log.Info("training complete, models initialized",
				"samples", progress, "threshold", e.long.Threshold())
			e.saveAll()
			e.trainingBuf = nil
			e.training = false
		}
	}

	e.publish(model.Snapshot{
		Mode:     model.ModeTraining,
		Tick:     e.tick,
		Time:     time.Now().Unix(),
		Metrics:  raw,
		Progress: progress,
		Target:   e.trainingTarget,
	})
}

// handleMonitoring scores the sample against the long baseline, feeds
// the risk and drift detectors, and performs the gated online updates.
func (e *Engine) handleMonitoring(x *mat.VecDense, raw map[string]float64) {
	severity := stats.Severity(x, e.long.Mu(), e.long.CovInv(), e.long.Threshold())

	riskVal, alert := e.risk.Update(severity)
	if alert {
		e.log.Warn("anomaly detected", "risk", riskVal, "severity", severity)
	}

	drifted := e.drift.Update(severity)
	e.metrics.ObserveCusum(e.drift.Value())
	if drifted {
		// Snap the short model onto the long baseline so it re-tracks
		// the new regime quickly. Value copies only — the two models
		// never alias.
		e.log.Info("distribution drift detected, snapping short model to baseline")
		e.short.SnapTo(e.long)
	}

	divergence := stats.Divergence(e.short.Mu(), e.long.Mu())

	if !stats.IsContaminated(severity, e.cfg.ContaminationLimit) {
		e.short.Update(x, severity, e.cfg.ContaminationLimit)
		e.long.Update(x, severity, e.cfg.ContaminationLimit)
	}

	status := model.StatusNormal
	switch {
	case alert:
		status = model.StatusAnomaly
	case riskVal > elevatedRisk:
		status = model.StatusElevated
	}

	e.publish(model.Snapshot{
		Mode:       model.ModeMonitoring,
		Tick:       e.tick,
		Time:       time.Now().Unix(),
		Metrics:    raw,
		Severity:   severity,
		Risk:       riskVal,
		Status:     status,
		Divergence: divergence,
		Frozen:     e.long.Frozen(),
		Alarm:      riskVal > e.cfg.AudioAlarmThreshold,
	})
}

func (e *Engine) publish(snap model.Snapshot) {
	if e.history != nil {
		e.history.Add(snap)
	}
	e.metrics.ObserveSnapshot(snap)
	if e.bus != nil {
		e.bus.Publish(snap)
	}
}

// RequestRetrain asks the engine to discard its baselines and retrain
// for the given number of seconds (ticks at 1 Hz). Safe to call from
// any goroutine; the command is applied at the next tick, and a newer
// request supersedes an unapplied one. Non-positive durations fall
// back to the configured default.
func (e *Engine) RequestRetrain(seconds int) {
	if seconds <= 0 {
		seconds = e.cfg.TrainingSeconds
	}
	select {
	case <-e.retrainCh:
	default:
	}
	select {
	case e.retrainCh <- seconds:
	default:
	}
}

func (e *Engine) applyRetrain(seconds int) {
	e.log.Info("retraining triggered", "target_seconds", seconds)
	e.trainingTarget = seconds
	e.trainingBuf = nil
	e.short.Reset()
	e.long.Reset()
	e.risk.SetRisk(0)
	e.training = true
	// Previous on-disk models stay in place until the next successful
	// initialization overwrites them.
}

// Mode reports the current engine mode.
func (e *Engine) Mode() model.Mode {
	if e.training {
		return model.ModeTraining
	}
	return model.ModeMonitoring
}

// Shutdown persists the current state unless a training run is in
// flight (a partial batch is worthless across restarts). Idempotent.
func (e *Engine) Shutdown() {
	if e.shutdownDone {
		return
	}
	e.shutdownDone = true

	if e.training {
		e.log.Info("shutdown during training, nothing to persist")
		return
	}
	e.saveAll()
	e.log.Info("shutdown complete, state saved")
}

// saveAll persists both model archives and the scalar state. Write
// failures are logged here at the engine boundary; the atomic writer
// guarantees no partial file is ever exposed.
func (e *Engine) saveAll() {
	dim, mu, cov, covInv := e.short.Export()
	if err := e.store.SaveModel(e.store.ShortModelFile(), persist.ModelArchive{
		Dim: dim, Mu: mu, Cov: cov, CovInv: covInv,
	}); err != nil {
		e.log.Error("short model save failed", "err", err)
	}

	dim, mu, cov, covInv = e.long.Export()
	if err := e.store.SaveModel(e.store.LongModelFile(), persist.ModelArchive{
		Dim: dim, Mu: mu, Cov: cov, CovInv: covInv,
	}); err != nil {
		e.log.Error("long model save failed", "err", err)
	}

	if err := e.store.SaveState(persist.State{
		Threshold: e.long.Threshold(),
		Risk:      e.risk.Risk(),
	}); err != nil {
		e.log.Error("state save failed", "err", err)
	}
}
