// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"
)

var weiPerGwei = big.NewFloat(1e9)

// GasPrice is a suggested gas price.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: wei, Timestamp: time.Now()}
}

// Gwei renders the price for logs and metrics.
func (p *GasPrice) Gwei() float64 {
	gwei := new(big.Float).SetInt(p.Wei)
	gwei.Quo(gwei, weiPerGwei)
	f, _ := gwei.Float64()
	return f
}

// GasEstimate is the expected cost of executing a transaction.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
}

func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{GasLimit: gasLimit, GasPrice: price}
}

// TotalWei is gas limit times gas price.
func (e *GasEstimate) TotalWei() *big.Int {
	return new(big.Int).Mul(e.GasPrice.Wei, new(big.Int).SetUint64(e.GasLimit))
}
