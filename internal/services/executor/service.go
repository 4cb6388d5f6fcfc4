package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/settlement"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/user"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// ExecutedNotice carries everything the notification path needs after a
// settlement; it must never reach back into trigger state
type ExecutedNotice struct {
	Owner     user.User
	TriggerID uuid.UUID
	Symbol    string
	Side      trigger.Side
	Amount    decimal.Decimal
	AmountOut decimal.Decimal
	TokenOut  string
	Price     decimal.Decimal
	TxHash    string
}

// Notifier is the fire-and-forget notification port
type Notifier interface {
	NotifyExecuted(notice ExecutedNotice)
}

// Service settles qualifying triggers against the balance ledger
type Service struct {
	triggers    trigger.Repository
	settlements settlement.Repository
	ledger      Ledger
	notifier    Notifier
	log         *logger.Logger
}

// NewService creates a new executor service
func NewService(
	triggers trigger.Repository,
	settlements settlement.Repository,
	ledger Ledger,
	notifier Notifier,
) *Service {
	return &Service{
		triggers:    triggers,
		settlements: settlements,
		ledger:      ledger,
		notifier:    notifier,
		log:         logger.Get().With("component", "executor"),
	}
}

// Execute settles one qualifying trigger. Preconditions are hard gates in
// order: persisted status re-check, bot authorization, sale-token balance.
// Returned errors are classified: errors.IsRetryable leaves the trigger
// ACTIVE for the next cycle, errors.IsTerminal has already moved it to
// FAILED, ErrTriggerNotActive means a concurrent path won the race.
func (s *Service) Execute(
	ctx context.Context,
	trg *trigger.Trigger,
	owner *user.User,
	price decimal.Decimal,
	snapshot map[string]decimal.Decimal,
) (*settlement.Execution, error) {
	log := s.log.With("trigger_id", trg.ID, "symbol", trg.Symbol, "side", trg.Side)

	// Race-safety gate: the evaluator decided on a loaded snapshot; only
	// the persisted status right now authorizes settlement. This narrows
	// the race window, it does not eliminate it.
	fresh, err := s.triggers.GetByID(ctx, trg.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to re-read trigger status")
	}
	if fresh.Status != trigger.StatusActive {
		log.Debugw("Trigger no longer active, skipping execution", "status", fresh.Status)
		return nil, errors.ErrTriggerNotActive
	}

	authorized, err := s.ledger.IsBotAuthorized(ctx, owner.WalletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bot authorization")
	}
	if !authorized {
		// The user must re-authorize out of band; retrying is pointless
		s.markFailed(ctx, trg.ID, "bot not authorized")
		return nil, errors.Wrapf(errors.ErrBotNotAuthorized, "user %s", owner.ID)
	}

	tokenIn, tokenOut, err := s.resolveTokens(trg)
	if err != nil {
		s.markFailed(ctx, trg.ID, "unresolvable token")
		return nil, err
	}

	amountIn := ToRawUnits(trg.Amount, tokenIn.Decimals)

	balance, err := s.ledger.BalanceOf(ctx, owner.WalletAddress, tokenIn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ledger balance")
	}
	if balance.Cmp(amountIn) < 0 {
		// The user may deposit later; the trigger stays ACTIVE
		log.Infow("Insufficient ledger balance, will retry next cycle",
			"token", tokenIn.Symbol,
			"balance", FromRawUnits(balance, tokenIn.Decimals),
			"required", trg.Amount,
		)
		return nil, errors.Wrapf(errors.ErrInsufficientBalance, "token %s", tokenIn.Symbol)
	}

	estimate, err := s.ledger.EstimateSwapOutput(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate swap output")
	}

	slippage := trg.SlippagePercent
	if slippage <= 0 || slippage >= 100 {
		slippage = trigger.DefaultSlippagePercent
	}
	minOut := MinOutput(estimate, slippage)

	log.Infow("Submitting delegated swap",
		"token_in", tokenIn.Symbol,
		"token_out", tokenOut.Symbol,
		"amount_in", trg.Amount,
		"estimate", FromRawUnits(estimate, tokenOut.Decimals),
		"min_out", FromRawUnits(minOut, tokenOut.Decimals),
		"price", price,
	)

	receipt, err := s.ledger.SwapForUser(ctx, owner.WalletAddress, tokenIn, tokenOut, amountIn, minOut)
	if err != nil {
		if errors.IsTerminal(err) {
			s.markFailed(ctx, trg.ID, err.Error())
			return nil, err
		}
		// Transient: ordering conflict, slippage race, node trouble.
		// Leave ACTIVE untouched; the next cycle retries.
		log.Warnw("Swap failed with retryable cause", "error", err)
		return nil, err
	}

	amountOut := FromRawUnits(receipt.AmountOut, tokenOut.Decimals)

	moved, err := s.triggers.UpdateStatusFrom(ctx, trg.ID, trigger.StatusActive, trigger.StatusExecuted)
	if err != nil {
		// Funds already moved on chain; surface loudly but keep going so
		// the audit records still land
		log.Errorw("Failed to persist EXECUTED status after settlement",
			"tx_hash", receipt.TxHash, "error", err)
	} else if !moved {
		log.Warnw("Trigger left ACTIVE concurrently after settlement", "tx_hash", receipt.TxHash)
	}

	exec, err := s.recordSettlement(ctx, trg, owner, receipt, amountOut, tokenIn, tokenOut, snapshot)
	if err != nil {
		log.Errorw("Failed to append settlement records", "tx_hash", receipt.TxHash, "error", err)
		return nil, err
	}

	log.Infow("Trigger executed",
		"tx_hash", receipt.TxHash,
		"amount_out", amountOut,
		"token_out", tokenOut.Symbol,
	)

	if s.notifier != nil {
		s.notifier.NotifyExecuted(ExecutedNotice{
			Owner:     *owner,
			TriggerID: trg.ID,
			Symbol:    trg.Symbol,
			Side:      trg.Side,
			Amount:    trg.Amount,
			AmountOut: amountOut,
			TokenOut:  tokenOut.Symbol,
			Price:     price,
			TxHash:    receipt.TxHash,
		})
	}

	return exec, nil
}

// resolveTokens derives the sale and purchase tokens from the trigger side:
// BUY spends the quote token to acquire the base, SELL spends the base
func (s *Service) resolveTokens(trg *trigger.Trigger) (Token, Token, error) {
	base, err := s.ledger.ResolveToken(trg.Symbol)
	if err != nil {
		return Token{}, Token{}, err
	}
	quote, err := s.ledger.QuoteToken()
	if err != nil {
		return Token{}, Token{}, err
	}

	if trg.Side == trigger.SideBuy {
		return quote, base, nil
	}
	return base, quote, nil
}

// recordSettlement appends the immutable execution and transaction records
func (s *Service) recordSettlement(
	ctx context.Context,
	trg *trigger.Trigger,
	owner *user.User,
	receipt *SwapReceipt,
	amountOut decimal.Decimal,
	tokenIn, tokenOut Token,
	snapshot map[string]decimal.Decimal,
) (*settlement.Execution, error) {
	now := time.Now().UTC()

	exec := &settlement.Execution{
		ID:        uuid.New(),
		TriggerID: trg.ID,
		UserID:    owner.ID,
		Symbol:    trg.Symbol,
		Side:      trg.Side,
		Amount:    trg.Amount,
		AmountOut: amountOut,
		TxHash:    receipt.TxHash,
		CreatedAt: now,
	}
	if err := exec.SetMetricsSnapshot(snapshot); err != nil {
		return nil, err
	}

	if err := s.settlements.CreateExecution(ctx, exec); err != nil {
		return nil, errors.Wrap(err, "failed to create execution record")
	}

	triggerID := trg.ID
	tx := &settlement.Transaction{
		ID:        uuid.New(),
		UserID:    owner.ID,
		TriggerID: &triggerID,
		TokenIn:   tokenIn.Symbol,
		TokenOut:  tokenOut.Symbol,
		AmountIn:  trg.Amount,
		AmountOut: amountOut,
		TxHash:    receipt.TxHash,
		Status:    settlement.TxStatusConfirmed,
		CreatedAt: now,
	}
	if err := s.settlements.CreateTransaction(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to create transaction record")
	}

	return exec, nil
}

// markFailed moves an ACTIVE trigger to the terminal FAILED status
func (s *Service) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	moved, err := s.triggers.UpdateStatusFrom(ctx, id, trigger.StatusActive, trigger.StatusFailed)
	if err != nil {
		s.log.Errorw("Failed to mark trigger FAILED", "trigger_id", id, "reason", reason, "error", err)
		return
	}
	if moved {
		s.log.Warnw("Trigger marked FAILED", "trigger_id", id, "reason", reason)
	}
}
