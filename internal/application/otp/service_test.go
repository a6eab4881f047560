package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

type mockVerificationRepo struct{ mock.Mock }

func (m *mockVerificationRepo) Put(ctx context.Context, v *domain.VerificationRecord) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockVerificationRepo) Get(ctx context.Context, subjectID, channel string) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, subjectID, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRecord), args.Error(1)
}

func (m *mockVerificationRepo) MarkConsumed(ctx context.Context, subjectID, channel string) error {
	args := m.Called(ctx, subjectID, channel)
	return args.Error(0)
}

type mockChatLinkRepo struct{ mock.Mock }

func (m *mockChatLinkRepo) Put(ctx context.Context, link *domain.ChatLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *mockChatLinkRepo) Get(ctx context.Context, username string) (*domain.ChatLink, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatLink), args.Error(1)
}

type mockContacts struct{ mock.Mock }

func (m *mockContacts) SignerPhone(ctx context.Context, subjectID string) (string, error) {
	args := m.Called(ctx, subjectID)
	return args.String(0), args.Error(1)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

type mockCaller struct{ mock.Mock }

func (m *mockCaller) PlaceCall(ctx context.Context, to string) error {
	args := m.Called(ctx, to)
	return args.Error(0)
}

type mockBotSender struct{ mock.Mock }

func (m *mockBotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func TestRequestUnknownChannel(t *testing.T) {
	svc := NewService(ServiceDeps{
		VerificationRepo: new(mockVerificationRepo),
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Request(context.Background(), "c1", "carrier-pigeon")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRequestSMSSandboxFallback(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.VerificationRecord) bool {
		return v.SubjectID == "c1" && v.Channel == domain.ChannelSMS && len(v.Code) == 6 && !v.Consumed
	})).Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
		Production:       false,
	})

	res, err := svc.Request(context.Background(), "c1", domain.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelSMS, res.Channel)
	assert.Len(t, res.FallbackCode, 6)
	repo.AssertExpectations(t)
}

func TestRequestSMSProductionWithoutSender(t *testing.T) {
	repo := new(mockVerificationRepo)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
		Production:       true,
	})

	_, err := svc.Request(context.Background(), "c1", domain.ChannelSMS)
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
	// Nothing consumable may linger when dispatch never had a chance.
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRequestCallProductionWithoutCaller(t *testing.T) {
	repo := new(mockVerificationRepo)

	svc := NewService(ServiceDeps{
		VerificationRepo:  repo,
		ChatLinkRepo:      new(mockChatLinkRepo),
		CodeTTL:           10 * time.Minute,
		VoiceCallerNumber: "+7 (700) 555-99-44",
		Production:        true,
	})

	_, err := svc.Request(context.Background(), "c1", domain.ChannelCall)
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRequestSMSDelivers(t *testing.T) {
	repo := new(mockVerificationRepo)
	var issued string
	repo.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		issued = args.Get(1).(*domain.VerificationRecord).Code
	}).Return(nil)

	contacts := new(mockContacts)
	contacts.On("SignerPhone", mock.Anything, "c1").Return("+77001234567", nil)

	sender := new(mockSMSSender)
	sender.On("SendSMS", mock.Anything, "+77001234567", mock.MatchedBy(func(msg string) bool {
		return msg == "Your signing code: "+issued
	})).Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		Contacts:         contacts,
		SMSSender:        sender,
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
		Production:       true,
	})

	res, err := svc.Request(context.Background(), "c1", domain.ChannelSMS)
	require.NoError(t, err)
	assert.Empty(t, res.FallbackCode)
	sender.AssertExpectations(t)
}

func TestRequestCallUsesCallerNumberDigits(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.VerificationRecord) bool {
		return v.Channel == domain.ChannelCall && v.Code == "9944"
	})).Return(nil)

	contacts := new(mockContacts)
	contacts.On("SignerPhone", mock.Anything, "c1").Return("+77001234567", nil)

	caller := new(mockCaller)
	caller.On("PlaceCall", mock.Anything, "+77001234567").Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo:  repo,
		ChatLinkRepo:      new(mockChatLinkRepo),
		Contacts:          contacts,
		Caller:            caller,
		CodeLength:        6,
		CodeTTL:           10 * time.Minute,
		VoiceCallerNumber: "+7 (700) 555-99-44",
		Production:        true,
	})

	res, err := svc.Request(context.Background(), "c1", domain.ChannelCall)
	require.NoError(t, err)
	assert.Equal(t, callCodeDigits, res.CodeLength)
	repo.AssertExpectations(t)
	caller.AssertExpectations(t)
}

func TestRequestTelegramReturnsDeepLink(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.VerificationRecord) bool {
		return v.Channel == domain.ChannelTelegram && len(v.Code) == 6
	})).Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
		BotUsername:      "sign_bot",
	})

	res, err := svc.Request(context.Background(), "c1", domain.ChannelTelegram)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/sign_bot?start=c1", res.DeepLink)
	assert.Empty(t, res.FallbackCode)
}

func TestVerifyConsumesCode(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelSMS,
		Code:      "123456",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}, nil)
	repo.On("MarkConsumed", mock.Anything, "c1", domain.ChannelSMS).Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
	})

	artifact, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelSMS, artifact.Channel)
	assert.Len(t, artifact.Hash, 64)
	repo.AssertExpectations(t)
}

func TestVerifyWrongCode(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelSMS,
		Code:      "123456",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}, nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "654321")
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
	repo.AssertNotCalled(t, "MarkConsumed", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyExpiredCode(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelSMS,
		Code:      "123456",
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute).Unix(),
	}, nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerifyConsumedCode(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelSMS,
		Code:      "123456",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
		Consumed:  true,
	}, nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeAlreadyUsed)
}

func TestVerifyNoCodeIssued(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestVerifyConsumeRaceLoses(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelSMS).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelSMS,
		Code:      "123456",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}, nil)
	repo.On("MarkConsumed", mock.Anything, "c1", domain.ChannelSMS).Return(domain.ErrCodeAlreadyUsed)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Verify(context.Background(), "c1", domain.ChannelSMS, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeAlreadyUsed)
}

func TestDeliverPendingSendsCode(t *testing.T) {
	now := time.Now().UTC()
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelTelegram).Return(&domain.VerificationRecord{
		SubjectID: "c1",
		Channel:   domain.ChannelTelegram,
		Code:      "987654",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}, nil)

	links := new(mockChatLinkRepo)
	links.On("Put", mock.Anything, mock.MatchedBy(func(l *domain.ChatLink) bool {
		return l.Username == "alice" && l.ChatID == 42
	})).Return(nil)

	bot := new(mockBotSender)
	bot.On("SendMessage", mock.Anything, int64(42), "Your signing code: 987654").Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     links,
		BotSender:        bot,
		CodeTTL:          10 * time.Minute,
	})

	err := svc.DeliverPending(context.Background(), "alice", 42, "c1")
	require.NoError(t, err)
	links.AssertExpectations(t)
	bot.AssertExpectations(t)
}

func TestDeliverPendingNoOutstandingCode(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Get", mock.Anything, "c1", domain.ChannelTelegram).Return(nil, domain.ErrNotFound)

	links := new(mockChatLinkRepo)
	links.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     links,
		CodeTTL:          10 * time.Minute,
	})

	err := svc.DeliverPending(context.Background(), "alice", 42, "c1")
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestLastDigits(t *testing.T) {
	assert.Equal(t, "9944", lastDigits("+7 (700) 555-99-44", 4))
	assert.Equal(t, "", lastDigits("12", 4))
	assert.Equal(t, "", lastDigits("", 4))
}

func TestArtifactDeterministic(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := domain.NewSignatureArtifact("c1", domain.ChannelSMS, at, "123456")
	b := domain.NewSignatureArtifact("c1", domain.ChannelSMS, at, "123456")
	assert.Equal(t, a.Hash, b.Hash)

	c := domain.NewSignatureArtifact("c1", domain.ChannelCall, at, "123456")
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestRequestContactLookupFailure(t *testing.T) {
	repo := new(mockVerificationRepo)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	contacts := new(mockContacts)
	contacts.On("SignerPhone", mock.Anything, "c1").Return("", errors.New("contract missing"))

	sender := new(mockSMSSender)

	svc := NewService(ServiceDeps{
		VerificationRepo: repo,
		ChatLinkRepo:     new(mockChatLinkRepo),
		Contacts:         contacts,
		SMSSender:        sender,
		CodeLength:       6,
		CodeTTL:          10 * time.Minute,
	})

	_, err := svc.Request(context.Background(), "c1", domain.ChannelSMS)
	assert.Error(t, err)
	sender.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}
