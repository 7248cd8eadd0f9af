/*

This file contains the compliance gate evaluated before any asset registration
or liquidity-linked registration. The gate is a hard stop: it runs before any
state mutation and consumes only the pool compliance flag and the caller's
attestation flag. The attestation issuance process itself lives outside this
engine.

*/

package compliance

import (
	"errors"

	"github.com/tradefin-network/riskengine/internal/logger"
)

var ErrPoolNotCompliant = errors.New("pool not compliant")
var ErrKycRequired = errors.New("kyc approval required")

var gateLogger = logger.GetForComponent("compliance_gate")

// GateAsset permits or rejects an asset-bearing liquidity operation. A pool
// that was never marked compliant can never accept any registration.
func GateAsset(poolCompliant bool, kycApproved bool) error {
	if !poolCompliant {
		gateLogger.Debug().Msg("Rejected: pool is not compliant")
		return ErrPoolNotCompliant
	}
	if !kycApproved {
		gateLogger.Debug().Msg("Rejected: caller has no KYC approval")
		return ErrKycRequired
	}
	return nil
}
