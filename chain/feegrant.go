package chain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const (
	basicAllowanceTypeURL      = "/cosmos.feegrant.v1beta1.BasicAllowance"
	periodicAllowanceTypeURL   = "/cosmos.feegrant.v1beta1.PeriodicAllowance"
	allowedMsgAllowanceTypeURL = "/cosmos.feegrant.v1beta1.AllowedMsgAllowance"

	// Limits at or below this amount are considered spent.
	exhaustedLimit = 0.0005
)

type restGrant struct {
	Granter   string          `json:"granter"`
	Grantee   string          `json:"grantee"`
	Allowance json.RawMessage `json:"allowance"`
}

type restAllowance struct {
	Type       string            `json:"@type"`
	SpendLimit []interfaces.Coin `json:"spend_limit"`
	Expiration *time.Time        `json:"expiration"`

	// PeriodicAllowance
	Basic          *restAllowance    `json:"basic"`
	PeriodCanSpend []interfaces.Coin `json:"period_can_spend"`

	// AllowedMsgAllowance
	Allowance *restAllowance `json:"allowance"`
}

// decodeGrant flattens a REST encoded grant into an Allowance.
func decodeGrant(g restGrant) (interfaces.Allowance, error) {
	var a restAllowance
	if err := json.Unmarshal(g.Allowance, &a); err != nil {
		return interfaces.Allowance{}, fmt.Errorf("invalid allowance from %s: %w", g.Granter, err)
	}

	// Message filters wrap a basic or periodic allowance.
	if a.Type == allowedMsgAllowanceTypeURL && a.Allowance != nil {
		a = *a.Allowance
	}

	allowance := interfaces.Allowance{Granter: g.Granter, Grantee: g.Grantee}
	switch a.Type {
	case basicAllowanceTypeURL:
		allowance.Kind = interfaces.BasicAllowance
		allowance.Expiration = a.Expiration
		allowance.Limit = uixoAmount(a.SpendLimit)
	case periodicAllowanceTypeURL:
		allowance.Kind = interfaces.PeriodicAllowance
		if a.Basic != nil {
			allowance.Expiration = a.Basic.Expiration
		}
		switch {
		case a.PeriodCanSpend != nil:
			allowance.Limit = uixoAmount(a.PeriodCanSpend)
		case a.Basic != nil:
			allowance.Limit = uixoAmount(a.Basic.SpendLimit)
		}
	default:
		return interfaces.Allowance{}, fmt.Errorf("unsupported allowance type %q from %s", a.Type, g.Granter)
	}

	return allowance, nil
}

// uixoAmount returns the uixo entry of coins. A missing entry means the
// grant does not limit uixo spending.
func uixoAmount(coins []interfaces.Coin) *float64 {
	for _, c := range coins {
		if c.Denom != FeeDenom {
			continue
		}
		amount, err := strconv.ParseFloat(c.Amount, 64)
		if err != nil {
			// Unparseable limits are treated as spent.
			amount = 0
		}
		return &amount
	}
	return nil
}

// AllowanceUsable reports whether a grant is unexpired at now and its limit
// is not reached.
func AllowanceUsable(a interfaces.Allowance, now time.Time) bool {
	if a.Expiration != nil && a.Expiration.Before(now) {
		return false
	}
	if a.Limit != nil && *a.Limit <= exhaustedLimit {
		return false
	}
	return true
}

// SelectGranter returns the granter of the first usable allowance, or "" when
// no grant can pay the fees.
func SelectGranter(allowances []interfaces.Allowance, now time.Time) string {
	for _, a := range allowances {
		if AllowanceUsable(a, now) {
			return a.Granter
		}
	}
	return ""
}
