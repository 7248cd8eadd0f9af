/*

This file contains the asset registry. It owns the TradeAsset records, one
slot per (pool, owner); registration overwrites the slot (last-write-wins, no
history). Registration through the registry is the only path that activates an
asset for scoring.

*/

package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/types"
)

var ErrInvalidAsset = errors.New("invalid asset")

var registryLogger = logger.GetForComponent("asset_registry")

// Registry is the keyed store of registered trade assets.
type Registry struct {
	assets map[types.ParticipantKey]types.TradeAsset
	params types.RiskParameters
	sink   types.NotificationSink
	now    func() time.Time
}

// New creates an empty registry. The sink may be nil.
func New(params types.RiskParameters, sink types.NotificationSink, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		assets: make(map[types.ParticipantKey]types.TradeAsset),
		params: params,
		sink:   sink,
		now:    now,
	}
}

// Validate checks the asset invariants without touching the store:
// faceValue > 0, maturity strictly in the future, credit score within bounds,
// and a recognized asset type.
func (r *Registry) Validate(asset types.TradeAsset) error {
	if asset.FaceValue.IsNil() || !asset.FaceValue.IsPositive() {
		return fmt.Errorf("%w: face value must be positive", ErrInvalidAsset)
	}
	if !asset.Maturity.After(r.now()) {
		return fmt.Errorf("%w: maturity must be strictly in the future", ErrInvalidAsset)
	}
	if asset.CreditScore < 0 || int64(asset.CreditScore) > r.params.CreditScoreCeiling {
		return fmt.Errorf("%w: credit score %d outside [0, %d]",
			ErrInvalidAsset, asset.CreditScore, r.params.CreditScoreCeiling)
	}
	if !asset.Type.Valid() {
		return fmt.Errorf("%w: unknown asset type %q", ErrInvalidAsset, asset.Type)
	}
	return nil
}

// Register validates and stores the asset, marking it active and overwriting
// any prior record for the key. Emits a registration notification on success.
func (r *Registry) Register(key types.ParticipantKey, asset types.TradeAsset) error {
	if err := r.Validate(asset); err != nil {
		registryLogger.Debug().
			Uint64("pool", uint64(key.Pool)).
			Str("owner", key.Owner).
			Err(err).
			Msg("Asset registration rejected")
		return err
	}

	asset.IsActive = true
	r.assets[key] = asset

	registryLogger.Info().
		Uint64("pool", uint64(key.Pool)).
		Str("owner", key.Owner).
		Str("faceValue", asset.FaceValue.String()).
		Str("assetType", string(asset.Type)).
		Msg("Asset registered")

	if r.sink != nil {
		r.sink.Notify(types.Notification{
			Type:      types.NotificationAssetRegistered,
			Pool:      key.Pool,
			Owner:     key.Owner,
			Timestamp: r.now(),
			Amount:    asset.FaceValue,
			AssetType: asset.Type,
		})
	}
	return nil
}

// Get returns the registered asset for the key, if any.
func (r *Registry) Get(key types.ParticipantKey) (types.TradeAsset, bool) {
	asset, ok := r.assets[key]
	return asset, ok
}

// Restore seeds the registry from persisted state. Used at warm start only;
// no validation or notifications.
func (r *Registry) Restore(assets map[types.ParticipantKey]types.TradeAsset) {
	for key, asset := range assets {
		r.assets[key] = asset
	}
}
