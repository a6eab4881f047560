package otp

import (
	"context"
	"fmt"
	"strings"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/sns"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/voice"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/code"
)

// Strategy issues a code for one delivery channel. Each strategy records the
// code in the ledger before attempting delivery, so verification works even
// when the delivery outcome is uncertain. A backend known to be unavailable
// up front fails before anything lands in the ledger.
type Strategy interface {
	Request(ctx context.Context, subjectID string) (*domain.DispatchResult, error)
}

type smsStrategy struct {
	ledger     *Ledger
	sender     sns.SMSSender
	contacts   ContactSource
	codeLen    int
	production bool
}

func (s *smsStrategy) Request(ctx context.Context, subjectID string) (*domain.DispatchResult, error) {
	if s.sender == nil && s.production {
		return nil, fmt.Errorf("sms sender unavailable: %w", domain.ErrDispatchFailed)
	}
	c, err := code.NewNumeric(s.codeLen)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Issue(ctx, subjectID, domain.ChannelSMS, c); err != nil {
		return nil, err
	}
	res := &domain.DispatchResult{
		Channel:    domain.ChannelSMS,
		CodeLength: s.codeLen,
		Hint:       "code sent by SMS",
	}
	if s.sender == nil {
		res.FallbackCode = c
		return res, nil
	}
	phone, err := s.contacts.SignerPhone(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.sender.SendSMS(ctx, phone, "Your signing code: "+c); err != nil {
		if s.production {
			return nil, fmt.Errorf("send sms: %v: %w", err, domain.ErrDispatchFailed)
		}
		res.FallbackCode = c
	}
	return res, nil
}

type callStrategy struct {
	ledger       *Ledger
	caller       voice.Caller
	contacts     ContactSource
	callerNumber string
	production   bool
}

// callCodeDigits is how many trailing digits of the caller ID form the code.
const callCodeDigits = 4

func (s *callStrategy) Request(ctx context.Context, subjectID string) (*domain.DispatchResult, error) {
	c := lastDigits(s.callerNumber, callCodeDigits)
	if c == "" {
		return nil, fmt.Errorf("caller number not configured: %w", domain.ErrDispatchFailed)
	}
	if s.caller == nil && s.production {
		return nil, fmt.Errorf("voice caller unavailable: %w", domain.ErrDispatchFailed)
	}
	if err := s.ledger.Issue(ctx, subjectID, domain.ChannelCall, c); err != nil {
		return nil, err
	}
	res := &domain.DispatchResult{
		Channel:    domain.ChannelCall,
		CodeLength: callCodeDigits,
		Hint:       "enter the last 4 digits of the number calling you",
	}
	if s.caller == nil {
		res.FallbackCode = c
		return res, nil
	}
	phone, err := s.contacts.SignerPhone(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.caller.PlaceCall(ctx, phone); err != nil {
		if s.production {
			return nil, fmt.Errorf("place call: %v: %w", err, domain.ErrDispatchFailed)
		}
		res.FallbackCode = c
	}
	return res, nil
}

// lastDigits extracts the trailing n digits of a phone number, ignoring
// formatting characters.
func lastDigits(phone string, n int) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < n {
		return ""
	}
	return digits[len(digits)-n:]
}

type telegramStrategy struct {
	ledger      *Ledger
	botUsername string
	codeLen     int
}

// Request generates the code up front and hands back a deep link. The code
// reaches the signer only after they open the bot, which reports their chat ID
// back through the start handler.
func (s *telegramStrategy) Request(ctx context.Context, subjectID string) (*domain.DispatchResult, error) {
	if s.botUsername == "" {
		return nil, fmt.Errorf("telegram bot not configured: %w", domain.ErrDispatchFailed)
	}
	c, err := code.NewNumeric(s.codeLen)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Issue(ctx, subjectID, domain.ChannelTelegram, c); err != nil {
		return nil, err
	}
	return &domain.DispatchResult{
		Channel:    domain.ChannelTelegram,
		CodeLength: s.codeLen,
		DeepLink:   fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, subjectID),
		Hint:       "open the bot link and press Start to receive the code",
	}, nil
}
