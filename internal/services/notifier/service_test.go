package notifier

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/user"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/executor"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

type fakeEmail struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	panic bool
}

func (f *fakeEmail) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("smtp adapter blew up")
	}
	if f.fail {
		return errors.Wrap(errors.ErrUnavailable, "smtp down")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []int64
	fail bool
}

func (f *fakeTelegram) Send(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.Wrap(errors.ErrUnavailable, "telegram down")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func fixtureNotice(owner user.User) executor.ExecutedNotice {
	return executor.ExecutedNotice{
		Owner:     owner,
		TriggerID: uuid.New(),
		Symbol:    "MNT",
		Side:      trigger.SideSell,
		Amount:    decimal.NewFromInt(50),
		AmountOut: decimal.RequireFromString("24.40"),
		TokenOut:  "USDT",
		Price:     decimal.RequireFromString("0.49"),
		TxHash:    "0xdeadbeef",
	}
}

func TestNotifyExecutedDeliversToAllChannels(t *testing.T) {
	email := &fakeEmail{}
	telegram := &fakeTelegram{}
	svc := NewService(email, telegram)

	chatID := int64(42)
	owner := user.User{ID: uuid.New(), Email: "owner@example.com", TelegramChatID: &chatID}

	svc.NotifyExecuted(fixtureNotice(owner))
	svc.Wait()

	require.Len(t, email.sent, 1)
	assert.Equal(t, "owner@example.com", email.sent[0])
	require.Len(t, telegram.sent, 1)
	assert.Equal(t, chatID, telegram.sent[0])
}

func TestNotifyExecutedSkipsUnlinkedChannels(t *testing.T) {
	email := &fakeEmail{}
	telegram := &fakeTelegram{}
	svc := NewService(email, telegram)

	// No telegram chat linked
	owner := user.User{ID: uuid.New(), Email: "owner@example.com"}

	svc.NotifyExecuted(fixtureNotice(owner))
	svc.Wait()

	assert.Len(t, email.sent, 1)
	assert.Empty(t, telegram.sent)
}

func TestNotifyExecutedFailureIsSwallowed(t *testing.T) {
	email := &fakeEmail{fail: true}
	telegram := &fakeTelegram{}
	svc := NewService(email, telegram)

	chatID := int64(42)
	owner := user.User{ID: uuid.New(), Email: "owner@example.com", TelegramChatID: &chatID}

	// A dead email channel must not stop the telegram delivery
	svc.NotifyExecuted(fixtureNotice(owner))
	svc.Wait()

	assert.Empty(t, email.sent)
	assert.Len(t, telegram.sent, 1)
}

func TestNotifyExecutedPanicIsContained(t *testing.T) {
	email := &fakeEmail{panic: true}
	svc := NewService(email, nil)

	owner := user.User{ID: uuid.New(), Email: "owner@example.com"}

	assert.NotPanics(t, func() {
		svc.NotifyExecuted(fixtureNotice(owner))
		svc.Wait()
	})
}

func TestNotifyExecutedNilChannels(t *testing.T) {
	svc := NewService(nil, nil)

	owner := user.User{ID: uuid.New(), Email: "owner@example.com"}

	assert.NotPanics(t, func() {
		svc.NotifyExecuted(fixtureNotice(owner))
		svc.Wait()
	})
}
