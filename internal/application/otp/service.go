package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/sns"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/telegram"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/voice"
)

// Service issues, delivers and consumes one-time signing codes.
type Service interface {
	Request(ctx context.Context, subjectID, channel string) (*domain.DispatchResult, error)
	Verify(ctx context.Context, subjectID, channel, code string) (*domain.SignatureArtifact, error)
	DeliverPending(ctx context.Context, username string, chatID int64, subjectID string) error
}

type chatLinkStore interface {
	Put(ctx context.Context, link *domain.ChatLink) error
	Get(ctx context.Context, username string) (*domain.ChatLink, error)
}

// ServiceDeps carries everything the service needs. Optional delivery
// backends (SMSSender, Caller, BotSender) may be nil; outside production the
// strategies then fall back to returning the code in the response.
type ServiceDeps struct {
	VerificationRepo verificationStore
	ChatLinkRepo     chatLinkStore
	Contacts         ContactSource
	SMSSender        sns.SMSSender
	Caller           voice.Caller
	BotSender        telegram.Sender

	CodeLength        int
	CodeTTL           time.Duration
	VoiceCallerNumber string
	BotUsername       string
	Production        bool
}

type service struct {
	ledger     *Ledger
	strategies map[string]Strategy
	chatLinks  chatLinkStore
	bot        telegram.Sender
	production bool
}

func NewService(deps ServiceDeps) Service {
	ledger := NewLedger(deps.VerificationRepo, deps.CodeTTL)
	return &service{
		ledger: ledger,
		strategies: map[string]Strategy{
			domain.ChannelSMS: &smsStrategy{
				ledger:     ledger,
				sender:     deps.SMSSender,
				contacts:   deps.Contacts,
				codeLen:    deps.CodeLength,
				production: deps.Production,
			},
			domain.ChannelCall: &callStrategy{
				ledger:       ledger,
				caller:       deps.Caller,
				contacts:     deps.Contacts,
				callerNumber: deps.VoiceCallerNumber,
				production:   deps.Production,
			},
			domain.ChannelTelegram: &telegramStrategy{
				ledger:      ledger,
				botUsername: deps.BotUsername,
				codeLen:     deps.CodeLength,
			},
		},
		chatLinks:  deps.ChatLinkRepo,
		bot:        deps.BotSender,
		production: deps.Production,
	}
}

func (s *service) Request(ctx context.Context, subjectID, channel string) (*domain.DispatchResult, error) {
	strategy, ok := s.strategies[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q: %w", channel, domain.ErrBadRequest)
	}
	return strategy.Request(ctx, subjectID)
}

func (s *service) Verify(ctx context.Context, subjectID, channel, code string) (*domain.SignatureArtifact, error) {
	if _, ok := s.strategies[channel]; !ok {
		return nil, fmt.Errorf("unknown channel %q: %w", channel, domain.ErrBadRequest)
	}
	return s.ledger.Consume(ctx, subjectID, channel, code)
}

// DeliverPending handles the bot /start callback: remember the chat binding,
// then push the outstanding telegram code into the chat.
func (s *service) DeliverPending(ctx context.Context, username string, chatID int64, subjectID string) error {
	if username != "" {
		link := &domain.ChatLink{Username: username, ChatID: chatID, UpdatedAt: time.Now().UTC()}
		if err := s.chatLinks.Put(ctx, link); err != nil {
			slog.Warn("store chat link", "username", username, "error", err)
		}
	}
	rec, err := s.ledger.Peek(ctx, subjectID, domain.ChannelTelegram)
	if err != nil {
		return err
	}
	if s.bot == nil {
		if s.production {
			return fmt.Errorf("telegram sender unavailable: %w", domain.ErrDispatchFailed)
		}
		slog.Info("telegram sender not configured, skipping delivery", "subject_id", subjectID)
		return nil
	}
	if err := s.bot.SendMessage(ctx, chatID, "Your signing code: "+rec.Code); err != nil {
		return fmt.Errorf("deliver code: %v: %w", err, domain.ErrDispatchFailed)
	}
	return nil
}
