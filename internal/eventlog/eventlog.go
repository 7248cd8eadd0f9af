/*

This file contains the append-only risk event log. Entries are never mutated
or deleted by appends, and volume is never a reason to reject one; the scoring
window below bounds the scan cost instead. Only the most recently appended
entries inside the trailing time window are ever considered by scoring, so
entries outside it are inert and may be pruned without observable effect.

*/

package eventlog

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/types"
)

var ErrInvalidSeverity = errors.New("invalid severity")

var eventLogger = logger.GetForComponent("risk_event_log")

// Log is the keyed store of per-participant risk event histories.
type Log struct {
	events map[types.ParticipantKey][]types.RiskEvent
	params types.RiskParameters
	now    func() time.Time
}

// New creates an empty event log.
func New(params types.RiskParameters, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{
		events: make(map[types.ParticipantKey][]types.RiskEvent),
		params: params,
		now:    now,
	}
}

// Append validates and records one event, stamped with the current time.
func (l *Log) Append(key types.ParticipantKey, severity int, isLatePayment, isCreditDowngrade bool) (types.RiskEvent, error) {
	if severity < 0 || int64(severity) > l.params.SeverityCeiling {
		return types.RiskEvent{}, fmt.Errorf("%w: severity %d outside [0, %d]",
			ErrInvalidSeverity, severity, l.params.SeverityCeiling)
	}

	event := types.RiskEvent{
		Timestamp:         l.now(),
		Severity:          severity,
		IsLatePayment:     isLatePayment,
		IsCreditDowngrade: isCreditDowngrade,
	}
	l.events[key] = append(l.events[key], event)

	eventLogger.Info().
		Uint64("pool", uint64(key.Pool)).
		Str("owner", key.Owner).
		Int("severity", severity).
		Bool("latePayment", isLatePayment).
		Bool("creditDowngrade", isCreditDowngrade).
		Int("historyLen", len(l.events[key])).
		Msg("Risk event recorded")

	return event, nil
}

// Recent returns the events considered by scoring: scanning backward from the
// most recently appended entry, it collects entries with timestamp inside the
// trailing window, stopping at the scan limit or at the first entry outside
// the window, whichever comes first. Recency of insertion governs, not recency
// of event time. The result is in append order.
func (l *Log) Recent(key types.ParticipantKey) []types.RiskEvent {
	history := l.events[key]
	if len(history) == 0 {
		return nil
	}

	cutoff := l.now().Add(-time.Duration(l.params.EventWindowDays) * 24 * time.Hour)
	limit := int(l.params.MaxScoredEvents)

	collected := make([]types.RiskEvent, 0, limit)
	for i := len(history) - 1; i >= 0 && len(collected) < limit; i-- {
		if !history[i].Timestamp.After(cutoff) {
			break
		}
		collected = append(collected, history[i])
	}

	// Reverse back into append order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

// Prune drops stored entries older than the scoring window for one
// participant and returns how many were removed. Dead entries never affect
// the score, so pruning has no observable scoring effect.
func (l *Log) Prune(key types.ParticipantKey) int {
	history := l.events[key]
	if len(history) == 0 {
		return 0
	}

	cutoff := l.now().Add(-time.Duration(l.params.EventWindowDays) * 24 * time.Hour)
	firstLive := len(history)
	for i, ev := range history {
		if ev.Timestamp.After(cutoff) {
			firstLive = i
			break
		}
	}
	if firstLive == 0 {
		return 0
	}

	l.events[key] = append([]types.RiskEvent(nil), history[firstLive:]...)
	eventLogger.Debug().
		Uint64("pool", uint64(key.Pool)).
		Str("owner", key.Owner).
		Int("pruned", firstLive).
		Msg("Pruned expired risk events")
	return firstLive
}

// History returns the full stored history for the key, for persistence and
// inspection. The returned slice must not be mutated.
func (l *Log) History(key types.ParticipantKey) []types.RiskEvent {
	return l.events[key]
}

// Restore seeds the log from persisted state. Histories must already be in
// append order.
func (l *Log) Restore(events map[types.ParticipantKey][]types.RiskEvent) {
	for key, history := range events {
		l.events[key] = append([]types.RiskEvent(nil), history...)
	}
}
