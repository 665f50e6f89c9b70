package chain

import (
	"math"
	"strconv"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const (
	// FeeDenom pays for gas.
	FeeDenom = "uixo"

	// Simulations below this are treated as unreliable.
	minSimulatedGas = 50000

	// Gas budgeted per message when the simulation is unreliable.
	fallbackGasPerMsg = 500000

	gasAdjustment   = 1.7
	averageGasPrice = 0.035
)

// EstimateFee applies the gas rule to a simulation result:
//
//	gasUsed = simulated if simulated > 50000 else msgCount*500000
//	gas     = gasUsed * 1.7
//	fee     = round(gas * 0.035) uixo
func EstimateFee(simulated uint64, msgCount int, granter string) Fee {
	gasUsed := float64(simulated)
	if simulated <= minSimulatedGas {
		gasUsed = float64(msgCount * fallbackGasPerMsg)
	}

	gas := gasUsed * gasAdjustment
	return Fee{
		Amount: []interfaces.Coin{{
			Denom:  FeeDenom,
			Amount: strconv.FormatInt(int64(math.Round(gas*averageGasPrice)), 10),
		}},
		GasLimit: uint64(math.Round(gas)),
		Granter:  granter,
	}
}
