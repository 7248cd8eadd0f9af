/*

This file contains the lifecycle engine: the boundary translating pool
lifecycle calls (creation, activation, liquidity add/remove, swap) into
operations on the asset registry, risk event log, collateral tracker, and the
pure scoring/fee helpers. The external pool manager is the only collaborator
invoking it, one call at a time; each invocation is atomic end-to-end and
validates before it mutates.

*/

package engine

import (
	"errors"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/tradefin-network/riskengine/internal/analyzer"
	"github.com/tradefin-network/riskengine/internal/collateral"
	"github.com/tradefin-network/riskengine/internal/compliance"
	"github.com/tradefin-network/riskengine/internal/eventlog"
	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/metrics"
	"github.com/tradefin-network/riskengine/internal/registry"
	"github.com/tradefin-network/riskengine/internal/types"
)

var ErrUnknownPool = errors.New("unknown pool")
var ErrReentrantCall = errors.New("re-entrant lifecycle invocation")

var engineLogger = logger.GetForComponent("lifecycle_engine")

// Journal persists engine state changes for warm starts and audit. Journal
// failures are logged and do not abort the invocation; the in-memory engine
// remains the source of truth within a run.
type Journal interface {
	SavePool(pool types.PoolID, st types.PoolComplianceState) error
	SaveAsset(key types.ParticipantKey, asset types.TradeAsset) error
	SaveHealth(key types.ParticipantKey, health types.CollateralHealth) error
	SaveRiskEvent(key types.ParticipantKey, event types.RiskEvent) error
	SaveNotification(n types.Notification) error
}

// Config carries the engine's dependencies.
type Config struct {
	Params  types.RiskParameters
	Journal Journal                // optional persistence
	Sink    types.NotificationSink // optional extra notification sink
	Now     func() time.Time       // optional clock override
}

// Snapshot is the persisted state an engine can be warm-started from.
type Snapshot struct {
	Pools   map[types.PoolID]types.PoolComplianceState
	Assets  map[types.ParticipantKey]types.TradeAsset
	Healths map[types.ParticipantKey]types.CollateralHealth
	Events  map[types.ParticipantKey][]types.RiskEvent
}

// LiquidityPayload accompanies a liquidity addition: the caller's attestation
// flag, an optional asset to register, and the resulting collateral change.
type LiquidityPayload struct {
	KycApproved     bool
	Asset           *types.TradeAsset
	CollateralDelta sdkmath.Int
}

// SwapQuote is the result of a swap pre-check: the fee to apply to this swap
// and the outcome of the liquidation evaluation that ran with it.
type SwapQuote struct {
	RiskScore           int64       `json:"risk_score"`
	FeeBps              int64       `json:"fee_bps"`
	LiquidationExecuted bool        `json:"liquidation_executed"`
	LiquidatedAmount    sdkmath.Int `json:"liquidated_amount"`
}

// Engine owns all per-pool and per-participant state and exposes the
// lifecycle contract.
type Engine struct {
	params     types.RiskParameters
	pools      map[types.PoolID]*types.PoolComplianceState
	registry   *registry.Registry
	events     *eventlog.Log
	collateral *collateral.Tracker
	journal    Journal
	now        func() time.Time

	// inFlight structurally excludes re-entrant lifecycle invocations: no
	// callback can resume a second lifecycle point before the first finishes.
	inFlight atomic.Bool
}

// New creates an engine with validated parameters and empty state.
func New(cfg Config) (*Engine, error) {
	if err := analyzer.ValidateRiskParameters(cfg.Params); err != nil {
		return nil, errors.Join(analyzer.ErrInvalidRiskParameters, err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		params:  cfg.Params,
		pools:   make(map[types.PoolID]*types.PoolComplianceState),
		journal: cfg.Journal,
		now:     now,
	}

	sink := e.fanout(cfg.Sink)
	e.registry = registry.New(cfg.Params, sink, now)
	e.events = eventlog.New(cfg.Params, now)
	e.collateral = collateral.New(cfg.Params, sink, now)
	return e, nil
}

// Restore seeds the engine from persisted state. Call before serving any
// lifecycle invocation.
func (e *Engine) Restore(snapshot Snapshot) {
	for pool, st := range snapshot.Pools {
		stCopy := st
		e.pools[pool] = &stCopy
	}
	e.registry.Restore(snapshot.Assets)
	e.collateral.Restore(snapshot.Healths)
	e.events.Restore(snapshot.Events)

	engineLogger.Info().
		Int("pools", len(snapshot.Pools)).
		Int("assets", len(snapshot.Assets)).
		Int("healthRecords", len(snapshot.Healths)).
		Msg("Engine state restored")
}

// OnPoolCreate marks a new pool compliant. Default policy: every new pool is
// compliant unless the collaborator overrides before this call. Creating an
// existing pool is a no-op.
func (e *Engine) OnPoolCreate(pool types.PoolID) error {
	if err := e.begin("pool_create"); err != nil {
		return err
	}
	defer e.end()

	if _, ok := e.pools[pool]; ok {
		engineLogger.Warn().Uint64("pool", uint64(pool)).Msg("Pool already created, ignoring")
		return nil
	}

	st := &types.PoolComplianceState{IsCompliant: true}
	e.pools[pool] = st
	e.journalPool(pool, *st)

	engineLogger.Info().Uint64("pool", uint64(pool)).Msg("Pool created and marked compliant")
	return nil
}

// OnPoolActivate sets the pool's default risk score, the medium-risk baseline
// used for participants with no active asset.
func (e *Engine) OnPoolActivate(pool types.PoolID) error {
	if err := e.begin("pool_activate"); err != nil {
		return err
	}
	defer e.end()

	st, ok := e.pools[pool]
	if !ok {
		return ErrUnknownPool
	}
	st.DefaultRiskScore = e.params.DefaultRiskScore
	st.Activated = true
	e.journalPool(pool, *st)

	engineLogger.Info().
		Uint64("pool", uint64(pool)).
		Int64("defaultRiskScore", st.DefaultRiskScore).
		Msg("Pool activated")
	return nil
}

// OnLiquidityAdd gates the operation on compliance, registers the accompanying
// asset if one is supplied, and applies the resulting collateral change. All
// validation runs before any state mutation: a rejection leaves no partial
// write behind.
func (e *Engine) OnLiquidityAdd(pool types.PoolID, owner string, payload LiquidityPayload) (types.CollateralHealth, error) {
	if err := e.begin("liquidity_add"); err != nil {
		return types.CollateralHealth{}, err
	}
	defer e.end()

	key := types.ParticipantKey{Pool: pool, Owner: owner}

	st, ok := e.pools[pool]
	poolCompliant := ok && st.IsCompliant
	if err := compliance.GateAsset(poolCompliant, payload.KycApproved); err != nil {
		metrics.LifecycleRejections.WithLabelValues("compliance").Inc()
		return types.CollateralHealth{}, err
	}

	if payload.Asset != nil {
		if err := e.registry.Register(key, *payload.Asset); err != nil {
			metrics.LifecycleRejections.WithLabelValues("invalid_asset").Inc()
			return types.CollateralHealth{}, err
		}
		if asset, ok := e.registry.Get(key); ok {
			e.journalAsset(key, asset)
		}
	}

	delta := payload.CollateralDelta
	if delta.IsNil() {
		delta = sdkmath.ZeroInt()
	}
	health := e.collateral.ApplyDelta(key, delta, nil)
	e.journalHealth(key, health)
	return health, nil
}

// OnLiquidityRemovePreCheck is the read-only withdrawal gate. It rejects the
// removal while the participant's health factor is below the healthy
// threshold; the caller may retry once health recovers.
func (e *Engine) OnLiquidityRemovePreCheck(pool types.PoolID, owner string) error {
	if err := e.begin("liquidity_remove_precheck"); err != nil {
		return err
	}
	defer e.end()

	key := types.ParticipantKey{Pool: pool, Owner: owner}
	if err := e.collateral.CheckWithdrawal(key); err != nil {
		metrics.WithdrawalRejections.Inc()
		return err
	}
	return nil
}

// OnSwapPreCheck produces the fee to apply to this swap from the current risk
// score, then runs one soft-liquidation step if the participant is AtRisk.
func (e *Engine) OnSwapPreCheck(pool types.PoolID, owner string) (SwapQuote, error) {
	if err := e.begin("swap_precheck"); err != nil {
		return SwapQuote{}, err
	}
	defer e.end()

	key := types.ParticipantKey{Pool: pool, Owner: owner}
	score, err := e.scoreFor(key)
	if err != nil {
		return SwapQuote{}, err
	}

	feeBps, err := analyzer.CalculateDynamicFee(score.Score, e.params)
	if err != nil {
		return SwapQuote{}, err
	}
	metrics.FeeQuotes.Observe(float64(feeBps))

	quote := SwapQuote{
		RiskScore:        score.Score,
		FeeBps:           feeBps,
		LiquidatedAmount: sdkmath.ZeroInt(),
	}

	if e.collateral.State(key) == types.HealthStateAtRisk {
		health, amount, executed := e.collateral.RunLiquidationStep(key)
		if executed {
			quote.LiquidationExecuted = true
			quote.LiquidatedAmount = amount
			metrics.LiquidationSteps.Inc()
			e.journalHealth(key, health)
		}
	}

	engineLogger.Debug().
		Uint64("pool", uint64(pool)).
		Str("owner", owner).
		Int64("riskScore", quote.RiskScore).
		Int64("feeBps", quote.FeeBps).
		Bool("liquidationExecuted", quote.LiquidationExecuted).
		Msg("Swap pre-check complete")
	return quote, nil
}

// OnSwapPostUpdate applies the swap's resulting collateral change.
func (e *Engine) OnSwapPostUpdate(pool types.PoolID, owner string, collateralDelta sdkmath.Int) (types.CollateralHealth, error) {
	if err := e.begin("swap_post_update"); err != nil {
		return types.CollateralHealth{}, err
	}
	defer e.end()

	key := types.ParticipantKey{Pool: pool, Owner: owner}
	health := e.collateral.ApplyDelta(key, collateralDelta, nil)
	e.journalHealth(key, health)
	return health, nil
}

// AddRiskEvent appends one adverse event to the participant's history.
func (e *Engine) AddRiskEvent(pool types.PoolID, owner string, severity int, isLatePayment, isCreditDowngrade bool) error {
	if err := e.begin("add_risk_event"); err != nil {
		return err
	}
	defer e.end()

	key := types.ParticipantKey{Pool: pool, Owner: owner}
	event, err := e.events.Append(key, severity, isLatePayment, isCreditDowngrade)
	if err != nil {
		metrics.LifecycleRejections.WithLabelValues("invalid_severity").Inc()
		return err
	}

	metrics.RiskEventsRecorded.WithLabelValues(
		boolLabel(isLatePayment), boolLabel(isCreditDowngrade)).Inc()
	e.journalEvent(key, event)
	return nil
}

// QueryRiskScore computes the participant's current risk score. Pure read: no
// state changes, identical results for identical state and evaluation time.
// Queries deliberately skip the in-flight guard; only mutating invocations
// must be exclusive.
func (e *Engine) QueryRiskScore(pool types.PoolID, owner string) (types.RiskScoreResult, error) {
	return e.scoreFor(types.ParticipantKey{Pool: pool, Owner: owner})
}

// QueryFee computes the fee that a swap pre-check would currently quote,
// without running the liquidation evaluation. Pure read; like QueryRiskScore
// it skips the in-flight guard.
func (e *Engine) QueryFee(pool types.PoolID, owner string) (int64, error) {
	score, err := e.QueryRiskScore(pool, owner)
	if err != nil {
		return 0, err
	}
	return analyzer.CalculateDynamicFee(score.Score, e.params)
}

// Params returns the engine's risk parameters.
func (e *Engine) Params() types.RiskParameters {
	return e.params
}

// PoolState returns the compliance state for a pool, if it exists.
func (e *Engine) PoolState(pool types.PoolID) (types.PoolComplianceState, bool) {
	st, ok := e.pools[pool]
	if !ok {
		return types.PoolComplianceState{}, false
	}
	return *st, true
}

// Health returns the collateral health record for a participant, if any.
func (e *Engine) Health(pool types.PoolID, owner string) (types.CollateralHealth, bool) {
	return e.collateral.Get(types.ParticipantKey{Pool: pool, Owner: owner})
}

// Asset returns the registered asset for a participant, if any.
func (e *Engine) Asset(pool types.PoolID, owner string) (types.TradeAsset, bool) {
	return e.registry.Get(types.ParticipantKey{Pool: pool, Owner: owner})
}

// scoreFor assembles the pure scoring inputs for one participant.
func (e *Engine) scoreFor(key types.ParticipantKey) (types.RiskScoreResult, error) {
	st, ok := e.pools[key.Pool]
	if !ok {
		return types.RiskScoreResult{}, ErrUnknownPool
	}

	var asset *types.TradeAsset
	if a, ok := e.registry.Get(key); ok {
		asset = &a
	}
	events := e.events.Recent(key)
	return analyzer.CalculateRiskScore(asset, st.DefaultRiskScore, events, e.now(), e.params)
}

// fanout builds the notification sink shared by the registry and tracker:
// metrics, the journal, and the optional external sink.
func (e *Engine) fanout(external types.NotificationSink) types.NotificationSink {
	return types.NotificationSinkFunc(func(n types.Notification) {
		switch n.Type {
		case types.NotificationAssetRegistered:
			metrics.AssetRegistrations.WithLabelValues(string(n.AssetType)).Inc()
		}
		if e.journal != nil {
			if err := e.journal.SaveNotification(n); err != nil {
				engineLogger.Warn().Err(err).Str("type", string(n.Type)).Msg("Failed to journal notification")
			}
		}
		if external != nil {
			external.Notify(n)
		}
	})
}

func (e *Engine) begin(op string) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		engineLogger.Error().Str("op", op).Msg("Re-entrant lifecycle invocation rejected")
		metrics.LifecycleRejections.WithLabelValues("reentrant").Inc()
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) end() { e.inFlight.Store(false) }

func (e *Engine) journalPool(pool types.PoolID, st types.PoolComplianceState) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SavePool(pool, st); err != nil {
		engineLogger.Warn().Err(err).Uint64("pool", uint64(pool)).Msg("Failed to journal pool state")
	}
}

func (e *Engine) journalAsset(key types.ParticipantKey, asset types.TradeAsset) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SaveAsset(key, asset); err != nil {
		engineLogger.Warn().Err(err).Str("participant", key.String()).Msg("Failed to journal asset")
	}
}

func (e *Engine) journalHealth(key types.ParticipantKey, health types.CollateralHealth) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SaveHealth(key, health); err != nil {
		engineLogger.Warn().Err(err).Str("participant", key.String()).Msg("Failed to journal health")
	}
}

func (e *Engine) journalEvent(key types.ParticipantKey, event types.RiskEvent) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SaveRiskEvent(key, event); err != nil {
		engineLogger.Warn().Err(err).Str("participant", key.String()).Msg("Failed to journal risk event")
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
