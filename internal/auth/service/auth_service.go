package service

import (
	"context"
	"errors"
	"time"

	authrepo "github.com/AlibekovAA/examination-system/internal/auth/repository"
	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/notification"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

const (
	msgRegistered     = "Registration successful. Please check your email to confirm your account."
	msgLoggedIn       = "Login Successed"
	msgTokenRefreshed = "Token refreshed"
)

type ConfirmationStore interface {
	Save(ctx context.Context, userID string, tokenHash string, ttl time.Duration) error
	Consume(ctx context.Context, userID string) (string, error)
}

type AccessTokenIssuer interface {
	IssueAccessToken(user userdomain.User, roles []string, extra []userdomain.Claim) (SignedToken, error)
}

type AuthServiceDeps struct {
	Users              userrepo.Repository
	Confirmations      ConfirmationStore
	Sender             notification.Sender
	Hasher             commoncrypto.PasswordHasher
	IDs                commoncrypto.IDGenerator
	ConfirmationTokens commoncrypto.TokenSource
	Issuer             AccessTokenIssuer
	RefreshTokens      RefreshTokenService
	Policy             PasswordPolicy
	Clock              clock.Clock
	Log                *logger.Logger
}

type AuthServiceConfig struct {
	ConfirmationTTL time.Duration
}

type AuthService struct {
	deps AuthServiceDeps
	cfg  AuthServiceConfig
	log  *logger.Logger
}

func NewAuthService(deps AuthServiceDeps, cfg AuthServiceConfig) *AuthService {
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = constants.DefaultEmailConfirmationTTL
	}
	if deps.ConfirmationTokens == nil {
		deps.ConfirmationTokens = commoncrypto.URLBase64Source{}
	}
	return &AuthService{deps: deps, cfg: cfg, log: deps.Log}
}

type AuthResult struct {
	IsAuthenticated        bool
	Message                string
	Username               string
	Email                  string
	Roles                  []string
	Token                  string
	ExpiresOn              time.Time
	RefreshToken           string
	RefreshTokenExpiration time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput, origin RequestOrigin) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if err := validateInput(input); err != nil {
		recordRegistration(outcomeFailure)
		return AuthResult{}, err
	}

	userType, ok := userdomain.ParseUserType(input.Type)
	if !ok {
		recordRegistration(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"type":     input.Type,
			"action":   "register_invalid_role",
		}).Warn("register failed: unknown user type")
		return AuthResult{}, ErrInvalidRole
	}

	if err := s.ensureAvailable(ctx, input.Username, input.Email); err != nil {
		recordRegistration(outcomeFailure)
		return AuthResult{}, err
	}

	if err := s.deps.Policy.Validate(input.Password); err != nil {
		recordRegistration(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_weak_password",
		}).Warn("register failed: password policy")
		return AuthResult{}, err
	}

	hash, err := s.deps.Hasher.Hash(input.Password)
	if err != nil {
		recordRegistration(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return AuthResult{}, ErrPersistence.WithCause(err)
	}

	id, err := s.deps.IDs.NewID()
	if err != nil {
		recordRegistration(outcomeFailure)
		return AuthResult{}, ErrPersistence.WithCause(err)
	}

	user := userdomain.User{
		ID:           userdomain.ID(id),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Type:         userType,
		CreatedAt:    s.deps.Clock.Now(),
	}

	if err := s.deps.Users.Create(ctx, user, userType.Role()); err != nil {
		recordRegistration(outcomeFailure)
		switch {
		case errors.Is(err, userrepo.ErrUsernameAlreadyExists):
			return AuthResult{}, ErrDuplicateUsername
		case errors.Is(err, userrepo.ErrEmailAlreadyExists):
			return AuthResult{}, ErrDuplicateEmail
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		return AuthResult{}, persistenceError(err)
	}

	if err := s.sendConfirmation(ctx, user, origin); err != nil {
		recordRegistration(outcomeFailure)
		return AuthResult{}, err
	}

	recordRegistration(outcomeSuccess)
	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"role":     userType.Role(),
		"action":   "register_success",
	}).Info("register success")

	return AuthResult{
		IsAuthenticated: false,
		Message:         msgRegistered,
		Username:        user.Username,
		Email:           user.Email,
	}, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	_, err := s.deps.Users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrDuplicateUsername
	case !errors.Is(err, userrepo.ErrUserNotFound):
		return persistenceError(err)
	}

	_, err = s.deps.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case !errors.Is(err, userrepo.ErrUserNotFound):
		return persistenceError(err)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "login_attempt",
	}).Info("login attempt")

	if err := validateInput(input); err != nil {
		recordLogin(outcomeFailure)
		return AuthResult{}, err
	}

	user, err := s.deps.Users.FindByEmail(ctx, input.Email)
	if err != nil {
		recordLogin(outcomeFailure)
		if errors.Is(err, userrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "login_user_not_found",
			}).Warn("login failed: unknown email")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return AuthResult{}, persistenceError(err)
	}

	if err := s.deps.Hasher.Compare(user.PasswordHash, input.Password); err != nil {
		recordLogin(outcomeFailure)
		fields := logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}
		if !errors.Is(err, commoncrypto.ErrPasswordMismatch) {
			s.log.WithFields(ctx, fields).Errorf("login failed: password compare error: %v", err)
		} else {
			s.log.WithFields(ctx, fields).Warn("login failed: invalid password")
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		recordLogin(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_email_not_confirmed",
		}).Warn("login failed: email not confirmed")
		return AuthResult{}, ErrEmailNotConfirmed
	}

	result, err := s.issueTokens(ctx, user, func() (userdomain.RefreshToken, error) {
		return s.deps.RefreshTokens.Rotate(ctx, user)
	})
	if err != nil {
		recordLogin(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	recordLogin(outcomeSuccess)
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	result.Message = msgLoggedIn
	return result, nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, input ConfirmEmailInput) error {
	if err := validateInput(input); err != nil {
		recordEmailConfirmation(outcomeFailure)
		return err
	}

	token, err := DecodeConfirmationCode(input.Code)
	if err != nil {
		recordEmailConfirmation(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"action": "confirm_email_bad_code",
		}).Warn("confirm email failed: code is not base64url")
		return ErrConfirmationFailed.WithCause(err)
	}

	user, err := s.deps.Users.FindByEmail(ctx, input.Email)
	if err != nil {
		recordEmailConfirmation(outcomeFailure)
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return persistenceError(err)
	}

	stored, err := s.deps.Confirmations.Consume(ctx, string(user.ID))
	if err != nil {
		recordEmailConfirmation(outcomeFailure)
		if errors.Is(err, authrepo.ErrConfirmationNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(user.ID),
				"action":  "confirm_email_no_pending_code",
			}).Warn("confirm email failed: no pending confirmation")
			return ErrConfirmationFailed
		}
		return persistenceError(err)
	}

	if !commoncrypto.EqualHash(stored, commoncrypto.SHA256Hex(token)) {
		recordEmailConfirmation(outcomeFailure)
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "confirm_email_code_mismatch",
		}).Warn("confirm email failed: code mismatch")
		return ErrConfirmationFailed
	}

	if err := s.deps.Users.MarkEmailConfirmed(ctx, user.ID); err != nil {
		recordEmailConfirmation(outcomeFailure)
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return persistenceError(err)
	}

	recordEmailConfirmation(outcomeSuccess)
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "confirm_email_success",
	}).Info("email confirmed")
	return nil
}

// ResendConfirmation answers the same way whether or not the email is known,
// so it cannot be used to enumerate accounts.
func (s *AuthService) ResendConfirmation(ctx context.Context, input ResendConfirmationInput, origin RequestOrigin) error {
	if err := validateInput(input); err != nil {
		return err
	}

	user, err := s.deps.Users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "resend_confirmation_unknown_email",
			}).Debug("resend confirmation skipped: unknown email")
			return nil
		}
		return persistenceError(err)
	}

	if user.EmailConfirmed {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "resend_confirmation_already_confirmed",
		}).Debug("resend confirmation skipped: already confirmed")
		return nil
	}

	return s.sendConfirmation(ctx, user, origin)
}

func (s *AuthService) RefreshToken(ctx context.Context, token string) (AuthResult, error) {
	user, refresh, err := s.deps.RefreshTokens.Exchange(ctx, token)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "refresh_token_failed",
		}).Warnf("refresh token failed: %v", err)
		return AuthResult{}, err
	}

	result, err := s.issueTokens(ctx, user, func() (userdomain.RefreshToken, error) {
		return refresh, nil
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "refresh_token_success",
	}).Info("refresh token exchanged")

	result.Message = msgTokenRefreshed
	return result, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, token string) error {
	if err := s.deps.RefreshTokens.Revoke(ctx, token); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "revoke_token_failed",
		}).Warnf("revoke token failed: %v", err)
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_token_revoked",
	}).Info("refresh token revoked")
	return nil
}

func (s *AuthService) issueTokens(
	ctx context.Context,
	user userdomain.User,
	refresh func() (userdomain.RefreshToken, error),
) (AuthResult, error) {
	roles, err := s.deps.Users.GetRoles(ctx, user.ID)
	if err != nil {
		return AuthResult{}, persistenceError(err)
	}
	claims, err := s.deps.Users.GetClaims(ctx, user.ID)
	if err != nil {
		return AuthResult{}, persistenceError(err)
	}

	access, err := s.deps.Issuer.IssueAccessToken(user, roles, claims)
	if err != nil {
		return AuthResult{}, ErrPersistence.WithMessage("failed to sign access token").WithCause(err)
	}

	token, err := refresh()
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		IsAuthenticated:        true,
		Username:               user.Username,
		Email:                  user.Email,
		Roles:                  roles,
		Token:                  access.Token,
		ExpiresOn:              access.ExpiresAt,
		RefreshToken:           token.Token,
		RefreshTokenExpiration: token.ExpiredOn,
	}, nil
}

// sendConfirmation replaces any pending code for the user and emails the new link.
func (s *AuthService) sendConfirmation(ctx context.Context, user userdomain.User, origin RequestOrigin) error {
	token, err := s.deps.ConfirmationTokens.Token(constants.ConfirmationTokenSize)
	if err != nil {
		return ErrPersistence.WithCause(err)
	}

	if err := s.deps.Confirmations.Save(ctx, string(user.ID), commoncrypto.SHA256Hex(token), s.cfg.ConfirmationTTL); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "confirmation_store_failed",
		}).Errorf("failed to store confirmation: %v", err)
		return persistenceError(err)
	}

	link := BuildConfirmationLink(origin, user.Email, EncodeConfirmationCode(token))
	msg, err := notification.ConfirmationMessage(user.Email, link)
	if err != nil {
		return ErrNotificationFailure.WithCause(err)
	}
	msg.ToName = user.Username

	if err := s.deps.Sender.Send(ctx, msg); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id":  string(user.ID),
			"provider": s.deps.Sender.Provider(),
			"action":   "confirmation_email_failed",
		}).Errorf("failed to send confirmation email: %v", err)
		return ErrNotificationFailure.WithCause(err)
	}
	return nil
}
