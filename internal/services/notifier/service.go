package notifier

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/services/executor"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// EmailSender delivers a rendered message to one address
type EmailSender interface {
	Send(to, subject, body string) error
}

// TelegramSender delivers a rendered message to one chat
type TelegramSender interface {
	Send(chatID int64, text string) error
}

// Service dispatches settlement notices. Everything here is best-effort:
// delivery failures are logged and dropped, never surfaced to the engine,
// and never touch trigger state.
type Service struct {
	email    EmailSender
	telegram TelegramSender
	log      *logger.Logger

	// wg lets tests and shutdown wait for in-flight sends
	wg sync.WaitGroup
}

// Compile-time check that we implement the executor's notification port
var _ executor.Notifier = (*Service)(nil)

// NewService creates a new notification dispatcher. telegram may be nil
// when no bot token is configured.
func NewService(email EmailSender, telegram TelegramSender) *Service {
	return &Service{
		email:    email,
		telegram: telegram,
		log:      logger.Get().With("component", "notifier"),
	}
}

// NotifyExecuted dispatches one settled-execution notice asynchronously
func (s *Service) NotifyExecuted(notice executor.ExecutedNotice) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("Notification dispatch panicked", "panic", r)
			}
		}()
		s.dispatch(notice)
	}()
}

// Wait blocks until all in-flight notifications are done
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) dispatch(notice executor.ExecutedNotice) {
	subject := fmt.Sprintf("Trigger executed: %s %s %s",
		notice.Side, formatAmount(notice.Amount), notice.Symbol)
	body := s.renderBody(notice)

	if s.email != nil && notice.Owner.Email != "" {
		if err := s.email.Send(notice.Owner.Email, subject, body); err != nil {
			s.log.Warnw("Email notification failed",
				"trigger_id", notice.TriggerID,
				"email", notice.Owner.Email,
				"error", err,
			)
		}
	}

	if s.telegram != nil && notice.Owner.TelegramChatID != nil {
		if err := s.telegram.Send(*notice.Owner.TelegramChatID, subject+"\n\n"+body); err != nil {
			s.log.Warnw("Telegram notification failed",
				"trigger_id", notice.TriggerID,
				"chat_id", *notice.Owner.TelegramChatID,
				"error", err,
			)
		}
	}
}

func (s *Service) renderBody(notice executor.ExecutedNotice) string {
	return fmt.Sprintf(
		"Your trigger on %s has executed.\n\n"+
			"Side: %s\n"+
			"Amount in: %s\n"+
			"Amount out: %s %s\n"+
			"Price at execution: %s\n"+
			"Transaction: %s\n",
		notice.Symbol,
		notice.Side,
		formatAmount(notice.Amount),
		formatAmount(notice.AmountOut), notice.TokenOut,
		notice.Price.String(),
		notice.TxHash,
	)
}

// formatAmount renders a decimal with thousands separators
func formatAmount(d decimal.Decimal) string {
	return humanize.CommafWithDigits(d.InexactFloat64(), 6)
}
