package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"enrollgate/internal/accounts"
	"enrollgate/internal/registration/models"
	"enrollgate/internal/registration/notify"
	"enrollgate/internal/registration/otp"
	"enrollgate/internal/registration/service/mocks"
	"enrollgate/internal/registration/store/code"
	"enrollgate/internal/registration/store/pending"
	"enrollgate/internal/token"
	dErrors "enrollgate/pkg/domain-errors"
)

// captureDispatcher records enqueued notifications so tests can read the
// plaintext code that would otherwise leave through the notifier.
type captureDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (d *captureDispatcher) Enqueue(msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *captureDispatcher) last(t *testing.T) notify.Message {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.messages, "no notification was dispatched")
	return d.messages[len(d.messages)-1]
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	pending    *pending.InMemoryStore
	codes      *code.InMemoryStore
	accounts   *accounts.InMemoryStore
	dispatched *captureDispatcher
	svc        *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.pending = pending.NewInMemoryStore()
	s.codes = code.NewInMemoryStore()
	s.accounts = accounts.NewInMemoryStore()
	s.dispatched = &captureDispatcher{}

	otpSvc, err := otp.New(s.codes, otp.Config{
		CodeWindow:   10 * time.Minute,
		IssueCeiling: 3,
		IssueWindow:  5 * time.Minute,
	})
	s.Require().NoError(err)

	issuer := token.NewIssuer("test-signing-secret", "enrollgate-test", 15*time.Minute, 720*time.Hour)

	s.svc, err = New(s.pending, otpSvc, s.accounts, s.dispatched, issuer, 15*time.Minute)
	s.Require().NoError(err)
}

func (s *ServiceSuite) initiateRequest(address string) *models.InitiateRequest {
	return &models.InitiateRequest{
		Address: address,
		Secret:  "correct horse battery",
		Role:    models.RolePatient,
		Profile: models.Profile{FirstName: "Dana", LastName: "Okafor"},
	}
}

func (s *ServiceSuite) initiate(address string) string {
	result, err := s.svc.Initiate(s.ctx, s.initiateRequest(address))
	s.Require().NoError(err)
	s.Require().Equal(address, result.Address)
	return s.dispatched.last(s.T()).Code
}

func (s *ServiceSuite) TestInitiateAndVerify() {
	codeValue := s.initiate("dana@example.com")
	s.Len(codeValue, 6)

	result, err := s.svc.Verify(s.ctx, &models.VerifyRequest{
		Address: "dana@example.com",
		Code:    codeValue,
	})
	s.Require().NoError(err)
	s.NotEmpty(result.Tokens.AccessToken)
	s.NotEmpty(result.Tokens.RefreshToken)
	s.Equal("dana@example.com", result.Account.Address)
	s.Equal(models.RolePatient, result.Account.Role)
	s.Equal("Dana", result.Account.FirstName)

	_, err = s.pending.Get(s.ctx, "dana@example.com")
	s.ErrorIs(err, pending.ErrNotFound, "staged record should be removed on success")

	login, err := s.svc.Login(s.ctx, &models.LoginRequest{
		Address: "dana@example.com",
		Secret:  "correct horse battery",
	})
	s.Require().NoError(err)
	s.Equal(result.Account.ID, login.Account.ID)
}

func (s *ServiceSuite) TestInitiateNormalizesAddress() {
	codeValue := s.initiate("  Dana@Example.COM  ")
	msg := s.dispatched.last(s.T())
	s.Equal("dana@example.com", msg.Address)
	s.Equal("Dana", msg.DisplayName)

	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{
		Address: "DANA@example.com",
		Code:    codeValue,
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestInitiateDuplicateAddress() {
	codeValue := s.initiate("taken@example.com")
	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "taken@example.com", Code: codeValue})
	s.Require().NoError(err)

	_, err = s.svc.Initiate(s.ctx, s.initiateRequest("taken@example.com"))
	s.ErrorIs(err, models.ErrDuplicateAddress)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestInitiateValidation() {
	cases := []struct {
		name    string
		mutate  func(*models.InitiateRequest)
		message string
	}{
		{"bad address", func(r *models.InitiateRequest) { r.Address = "not-an-email" }, "invalid contact address"},
		{"short secret", func(r *models.InitiateRequest) { r.Secret = "short" }, "secret must be between 8 and 128 characters"},
		{"unknown role", func(r *models.InitiateRequest) { r.Role = "wizard" }, "invalid role"},
		{"missing first name", func(r *models.InitiateRequest) { r.Profile.FirstName = "" }, "first name is required"},
		{"practitioner without license", func(r *models.InitiateRequest) {
			r.Role = models.RolePractitioner
			r.Profile.Specialization = "cardiology"
		}, "license number is required for practitioners"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.initiateRequest("valid@example.com")
			tc.mutate(req)
			_, err := s.svc.Initiate(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal(tc.message, dErrors.MessageOf(err))
		})
	}
}

func (s *ServiceSuite) TestInitiateOverwritesPriorAttempt() {
	first := s.initiate("retry@example.com")
	second := s.initiate("retry@example.com")

	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "retry@example.com", Code: first})
	if first != second {
		s.ErrorIs(err, models.ErrCodeInvalid, "superseded code must be dead")
		_, err = s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "retry@example.com", Code: second})
	}
	s.NoError(err)
}

func (s *ServiceSuite) TestVerifyWrongCodeKeepsAttemptAlive() {
	codeValue := s.initiate("dana@example.com")
	wrong := "000000"
	if wrong == codeValue {
		wrong = "000001"
	}

	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: wrong})
	s.ErrorIs(err, models.ErrCodeInvalid)

	// The staged attempt and live code both survive a wrong guess.
	result, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: codeValue})
	s.Require().NoError(err)
	s.NotEmpty(result.Tokens.AccessToken)
}

func (s *ServiceSuite) TestVerifyWithoutPendingAttempt() {
	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "ghost@example.com", Code: "123456"})
	s.ErrorIs(err, models.ErrSessionExpired)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
}

func (s *ServiceSuite) TestVerifyAfterSuccessIsSessionExpired() {
	codeValue := s.initiate("dana@example.com")
	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: codeValue})
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: codeValue})
	s.ErrorIs(err, models.ErrSessionExpired)
}

func (s *ServiceSuite) TestResendInvalidatesPriorCode() {
	first := s.initiate("dana@example.com")

	result, err := s.svc.Resend(s.ctx, &models.ResendRequest{Address: "dana@example.com"})
	s.Require().NoError(err)
	s.Equal("dana@example.com", result.Address)
	second := s.dispatched.last(s.T()).Code

	if first != second {
		_, err = s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: first})
		s.ErrorIs(err, models.ErrCodeInvalid)
	}
	_, err = s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: second})
	s.NoError(err)
}

func (s *ServiceSuite) TestResendWithoutPendingAttempt() {
	_, err := s.svc.Resend(s.ctx, &models.ResendRequest{Address: "ghost@example.com"})
	s.ErrorIs(err, models.ErrNoPendingAttempt)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestIssueCeiling() {
	s.initiate("dana@example.com")
	for range 2 {
		_, err := s.svc.Resend(s.ctx, &models.ResendRequest{Address: "dana@example.com"})
		s.Require().NoError(err)
	}

	_, err := s.svc.Resend(s.ctx, &models.ResendRequest{Address: "dana@example.com"})
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrRateLimited)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	var rateLimited *models.RateLimitedError
	s.Require().ErrorAs(err, &rateLimited)
	s.Greater(rateLimited.RetryAfter, time.Duration(0))

	// The ceiling is per address.
	_, err = s.svc.Initiate(s.ctx, s.initiateRequest("other@example.com"))
	s.NoError(err)
}

func (s *ServiceSuite) TestLoginBadCredentials() {
	codeValue := s.initiate("dana@example.com")
	_, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: codeValue})
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, &models.LoginRequest{Address: "dana@example.com", Secret: "wrong secret"})
	s.ErrorIs(err, models.ErrBadCredentials)

	_, err = s.svc.Login(s.ctx, &models.LoginRequest{Address: "nobody@example.com", Secret: "whatever1"})
	s.ErrorIs(err, models.ErrBadCredentials, "unknown address must not be distinguishable")
}

func (s *ServiceSuite) TestRefresh() {
	codeValue := s.initiate("dana@example.com")
	result, err := s.svc.Verify(s.ctx, &models.VerifyRequest{Address: "dana@example.com", Code: codeValue})
	s.Require().NoError(err)

	access, err := s.svc.Refresh(s.ctx, result.Tokens.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(access)

	_, err = s.svc.Refresh(s.ctx, result.Tokens.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "access token must not refresh")
}

func (s *ServiceSuite) TestConcurrentVerifyCreatesOneAccount() {
	codeValue := s.initiate("dana@example.com")

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.svc.Verify(s.ctx, &models.VerifyRequest{
				Address: "dana@example.com",
				Code:    codeValue,
			})
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(
			errors.Is(err, models.ErrCodeInvalid) || errors.Is(err, models.ErrSessionExpired),
			"unexpected loser error: %v", err,
		)
	}
	s.Equal(1, succeeded, "exactly one caller may finalize")

	account, err := s.accounts.FindByAddress(s.ctx, "dana@example.com")
	s.Require().NoError(err)
	s.Equal("dana@example.com", account.Address)
}

func TestInitiate_AccountLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAccounts := mocks.NewMockStore(ctrl)
	svc := newServiceWithAccounts(t, mockAccounts)

	mockAccounts.EXPECT().
		Exists(gomock.Any(), "dana@example.com").
		Return(false, errors.New("connection refused"))

	_, err := svc.Initiate(context.Background(), &models.InitiateRequest{
		Address: "dana@example.com",
		Secret:  "correct horse battery",
		Role:    models.RolePatient,
		Profile: models.Profile{FirstName: "Dana"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestVerify_CreateLosesUniquenessRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAccounts := mocks.NewMockStore(ctrl)
	svc := newServiceWithAccounts(t, mockAccounts)
	ctx := context.Background()

	mockAccounts.EXPECT().Exists(gomock.Any(), "dana@example.com").Return(false, nil)
	dispatched := svc.dispatcher.(*captureDispatcher)

	_, err := svc.Initiate(ctx, &models.InitiateRequest{
		Address: "dana@example.com",
		Secret:  "correct horse battery",
		Role:    models.RolePatient,
		Profile: models.Profile{FirstName: "Dana"},
	})
	require.NoError(t, err)

	mockAccounts.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(accounts.Account{}, accounts.ErrDuplicate)

	_, err = svc.Verify(ctx, &models.VerifyRequest{
		Address: "dana@example.com",
		Code:    dispatched.last(t).Code,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateAddress)
}

func newServiceWithAccounts(t *testing.T, store accounts.Store) *Service {
	t.Helper()
	otpSvc, err := otp.New(code.NewInMemoryStore(), otp.DefaultConfig())
	require.NoError(t, err)
	issuer := token.NewIssuer("test-signing-secret", "enrollgate-test", 15*time.Minute, 720*time.Hour)
	svc, err := New(pending.NewInMemoryStore(), otpSvc, store, &captureDispatcher{}, issuer, 15*time.Minute)
	require.NoError(t, err)
	return svc
}
