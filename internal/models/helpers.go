package models

import (
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei digits in one ether.
const EtherDecimals = 18

// GenerateRoundID returns an id that is unique across clients, since round
// keys are shared by every play session.
func GenerateRoundID() string {
	return "round_" + uuid.New().String()
}

func GenerateClientID() string {
	return uuid.New().String()
}

func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// EtherToWei truncates anything below one wei.
func EtherToWei(ether decimal.Decimal) *big.Int {
	return ether.Shift(EtherDecimals).Truncate(0).BigInt()
}

func FormatEther(ether decimal.Decimal) string {
	return ether.String() + " ETH"
}
