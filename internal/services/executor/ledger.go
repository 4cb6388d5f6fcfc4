package executor

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// Token is a ledger-known asset with its on-chain address and precision
type Token struct {
	Symbol   string
	Address  string
	Decimals int32
}

// SwapReceipt is the confirmed outcome of one delegated swap
type SwapReceipt struct {
	TxHash    string
	AmountOut *big.Int
}

// Ledger is the executor's view of the balance ledger contract. All amounts
// are raw token units; the executor owns the human/raw conversion so the
// slippage bound is computed in the ledger's own arithmetic.
type Ledger interface {
	IsBotAuthorized(ctx context.Context, owner string) (bool, error)
	BalanceOf(ctx context.Context, owner string, token Token) (*big.Int, error)
	EstimateSwapOutput(ctx context.Context, tokenIn, tokenOut Token, amountIn *big.Int) (*big.Int, error)
	SwapForUser(ctx context.Context, owner string, tokenIn, tokenOut Token, amountIn, minAmountOut *big.Int) (*SwapReceipt, error)

	ResolveToken(symbol string) (Token, error)
	QuoteToken() (Token, error)
}

// ToRawUnits converts a human amount to raw token units, truncating any
// precision beyond the token's decimals
func ToRawUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromRawUnits converts raw token units back to a human amount
func FromRawUnits(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}

// MinOutput computes the slippage-bounded minimum acceptable output:
// estimate * (100 - slippagePercent) / 100 with floor truncation, so the
// bound never exceeds what integer math on chain would accept.
// estimate=3, slippage=5 floors to 2.
func MinOutput(estimate *big.Int, slippagePercent int64) *big.Int {
	scaled := new(big.Int).Mul(estimate, big.NewInt(100-slippagePercent))
	return scaled.Div(scaled, big.NewInt(100))
}
