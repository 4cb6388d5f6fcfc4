package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/config"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/executor"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// Client talks to the balance ledger contract with the bot signing identity.
// One instance owns the bot nonce; see the single-scheduler assumption.
type Client struct {
	eth        *ethclient.Client
	contract   common.Address
	chainID    *big.Int
	botKey     *ecdsa.PrivateKey
	botAddress common.Address
	parsedABI   abi.ABI
	registry    map[string]executor.Token
	quoteToken  string
	confirmWait time.Duration
	log         *logger.Logger

	// txMu serializes submissions so nonce assignment stays ordered
	txMu sync.Mutex
}

// Compile-time check that we implement the executor's ledger port
var _ executor.Ledger = (*Client)(nil)

// NewClient dials the RPC endpoint and prepares the bot signer
func NewClient(cfg config.ChainConfig) (*Client, error) {
	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial chain rpc")
	}

	parsed, err := abi.JSON(strings.NewReader(ledgerABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ledger abi")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.BotPrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bot private key")
	}

	registry := make(map[string]executor.Token, len(cfg.TokenAddrs))
	for symbol, addr := range cfg.TokenAddrs {
		decimals, ok := cfg.TokenDecimals[symbol]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "token %s has no decimals configured", symbol)
		}
		if !common.IsHexAddress(addr) {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "token %s has invalid address %q", symbol, addr)
		}
		registry[strings.ToUpper(symbol)] = executor.Token{
			Symbol:   strings.ToUpper(symbol),
			Address:  common.HexToAddress(addr).Hex(),
			Decimals: decimals,
		}
	}

	confirmWait := cfg.ConfirmWait
	if confirmWait <= 0 {
		confirmWait = 2 * time.Minute
	}

	return &Client{
		eth:         eth,
		contract:    common.HexToAddress(cfg.LedgerAddress),
		chainID:     big.NewInt(cfg.ChainID),
		botKey:      key,
		botAddress:  crypto.PubkeyToAddress(key.PublicKey),
		parsedABI:   parsed,
		registry:    registry,
		quoteToken:  strings.ToUpper(cfg.QuoteToken),
		confirmWait: confirmWait,
		log:         logger.Get().With("component", "ledger_client"),
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// BotAddress returns the bot signing address
func (c *Client) BotAddress() string {
	return c.botAddress.Hex()
}

// ResolveToken maps a symbol onto its configured address and decimals
func (c *Client) ResolveToken(symbol string) (executor.Token, error) {
	t, ok := c.registry[strings.ToUpper(symbol)]
	if !ok {
		return executor.Token{}, errors.Wrapf(errors.ErrUnknownToken, "symbol %q", symbol)
	}
	return t, nil
}

// QuoteToken returns the token sold on BUY triggers
func (c *Client) QuoteToken() (executor.Token, error) {
	return c.ResolveToken(c.quoteToken)
}

// IsBotAuthorized reads the (user, bot) authorization flag
func (c *Client) IsBotAuthorized(ctx context.Context, owner string) (bool, error) {
	out, err := c.call(ctx, "isBotAuthorized", common.HexToAddress(owner), c.botAddress)
	if err != nil {
		return false, err
	}

	authorized, ok := out[0].(bool)
	if !ok {
		return false, errors.Wrap(errors.ErrInternal, "unexpected isBotAuthorized return type")
	}
	return authorized, nil
}

// BalanceOf reads the confirmed ledger balance for (owner, token) in raw units
func (c *Client) BalanceOf(ctx context.Context, owner string, token executor.Token) (*big.Int, error) {
	out, err := c.call(ctx, "balances", common.HexToAddress(owner), common.HexToAddress(token.Address))
	if err != nil {
		return nil, err
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Wrap(errors.ErrInternal, "unexpected balances return type")
	}
	return balance, nil
}

// EstimateSwapOutput queries the ledger's quoted output for an exact input
func (c *Client) EstimateSwapOutput(ctx context.Context, tokenIn, tokenOut executor.Token, amountIn *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, "getAmountOut",
		common.HexToAddress(tokenIn.Address), common.HexToAddress(tokenOut.Address), amountIn)
	if err != nil {
		return nil, err
	}

	estimate, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Wrap(errors.ErrInternal, "unexpected getAmountOut return type")
	}
	return estimate, nil
}

// SwapForUser submits the bot-authorized swap and waits for confirmation.
// The realized output is decoded from the SwapExecuted event.
func (c *Client) SwapForUser(ctx context.Context, owner string, tokenIn, tokenOut executor.Token, amountIn, minAmountOut *big.Int) (*executor.SwapReceipt, error) {
	data, err := c.parsedABI.Pack("swapForUser",
		common.HexToAddress(owner),
		common.HexToAddress(tokenIn.Address),
		common.HexToAddress(tokenOut.Address),
		amountIn, minAmountOut,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack swapForUser")
	}

	signedTx, err := c.buildAndSign(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, classifyRPCError(err)
	}

	c.log.Infow("Swap submitted",
		"tx_hash", signedTx.Hash().Hex(),
		"user", owner,
		"token_in", tokenIn.Symbol,
		"token_out", tokenOut.Symbol,
	)

	// Bound the confirmation wait so a hung node cannot stall the cycle
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmWait)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, signedTx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTimeout, "waiting for swap confirmation: %v", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		// The tx mined but reverted; without a revert reason treat the
		// minAmountOut check as the likely cause only when estimation
		// still succeeds next cycle, so classify as terminal here
		return nil, errors.Wrapf(errors.ErrSwapReverted, "tx %s reverted", signedTx.Hash().Hex())
	}

	amountOut, err := c.decodeSwapOutput(receipt)
	if err != nil {
		return nil, err
	}

	return &executor.SwapReceipt{
		TxHash:    signedTx.Hash().Hex(),
		AmountOut: amountOut,
	}, nil
}

// buildAndSign assembles a dynamic-fee transaction under the nonce mutex
func (c *Client) buildAndSign(ctx context.Context, data []byte) (*types.Transaction, error) {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, c.botAddress)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "failed to fetch bot nonce: %v", err)
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "failed to suggest gas tip cap: %v", err)
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "failed to fetch chain head: %v", err)
	}

	feeCap := feeCapFor(tipCap, head.BaseFee)

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.botAddress,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		// Estimation failure usually means the call would revert
		return nil, classifyRPCError(err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &c.contract,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.botKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	return signedTx, nil
}

// feeCapFor computes the fee cap as the tip plus twice the current base fee,
// which rides out base-fee growth between submission and inclusion. A nil
// base fee (pre-1559 node) leaves the tip as the cap.
func feeCapFor(tipCap, baseFee *big.Int) *big.Int {
	feeCap := new(big.Int).Set(tipCap)
	if baseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(baseFee, big.NewInt(2)))
	}
	return feeCap
}

// decodeSwapOutput extracts the realized amountOut from the SwapExecuted event
func (c *Client) decodeSwapOutput(receipt *types.Receipt) (*big.Int, error) {
	eventID := c.parsedABI.Events["SwapExecuted"].ID

	for _, lg := range receipt.Logs {
		if lg.Address != c.contract || len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}

		values := map[string]interface{}{}
		if err := c.parsedABI.UnpackIntoMap(values, "SwapExecuted", lg.Data); err != nil {
			return nil, errors.Wrap(err, "failed to unpack SwapExecuted event")
		}

		amountOut, ok := values["amountOut"].(*big.Int)
		if !ok {
			return nil, errors.Wrap(errors.ErrInternal, "SwapExecuted missing amountOut")
		}
		return amountOut, nil
	}

	return nil, errors.Wrapf(errors.ErrInternal, "no SwapExecuted event in tx %s", receipt.TxHash.Hex())
}

// call performs a read-only contract call
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.parsedABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "%s call failed: %v", method, err)
	}

	out, err := c.parsedABI.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s result", method)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "%s returned no values", method)
	}

	return out, nil
}

// classifyRPCError maps node error strings onto the engine's settlement
// sentinels so the executor can decide retryable vs terminal
func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "nonce too high"),
		strings.Contains(msg, "replacement transaction underpriced"),
		strings.Contains(msg, "already known"):
		return errors.Wrap(errors.ErrNonceConflict, err.Error())

	case strings.Contains(msg, "insufficient output"),
		strings.Contains(msg, "slippage"),
		strings.Contains(msg, "min amount"):
		return errors.Wrap(errors.ErrSlippageExceeded, err.Error())

	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "temporarily unavailable"),
		strings.Contains(msg, "eof"):
		return errors.Wrap(errors.ErrUnavailable, err.Error())

	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "revert"):
		return errors.Wrap(errors.ErrSwapReverted, err.Error())
	}

	// Unknown node errors are treated as transient; the trigger stays
	// ACTIVE and the next cycle retries
	return errors.Wrap(errors.ErrUnavailable, err.Error())
}
