package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

const genericLoginMessage = "Incorrect email or password."

// Mailer dispatches email fire-and-forget; delivery failures never reach
// the request path.
type Mailer interface {
	Dispatch(to, subject, body string)
}

// Service orchestrates the account lifecycle: registration, login, password
// management, profile updates, activation and deletion. It composes the
// blacklist guard, OTP engine, password hasher and token service; the
// repository is the only stateful collaborator.
type Service struct {
	config     *config.AppConfig
	log        *zap.Logger
	repository Repository
	hasher     *Hasher
	otp        *OtpEngine
	guard      *BlacklistGuard
	tokens     *TokenService
	mailer     Mailer
}

func NewService(
	cfg *config.AppConfig,
	log *zap.Logger,
	repo Repository,
	hasher *Hasher,
	otp *OtpEngine,
	guard *BlacklistGuard,
	tokens *TokenService,
	mailer Mailer,
) *Service {
	return &Service{
		config:     cfg,
		log:        log,
		repository: repo,
		hasher:     hasher,
		otp:        otp,
		guard:      guard,
		tokens:     tokens,
		mailer:     mailer,
	}
}

// RegisterRequest starts registration for an email by issuing an OTP. The
// blacklist check always precedes OTP issuance.
func (s *Service) RegisterRequest(email string) (string, error) {
	if err := s.issueOtp(email, "Welcome to FastAuth"); err != nil {
		return "", err
	}
	return "Verification email sent.", nil
}

// RegisterConfirm trades a valid OTP for a new account.
func (s *Service) RegisterConfirm(email, username, password, code string) (*User, error) {
	otp, err := s.repository.GetOtpByEmail(email)
	if err != nil && !errors.Is(err, ErrOtpNotFound) {
		return nil, internalError("failed to load otp", err)
	}
	if !s.otp.IsValid(code, otp) {
		return nil, forbiddenError("Invalid or expired verification code.")
	}

	if _, err := s.repository.GetUserByUsername(username); err == nil {
		return nil, validationError("Username already taken.")
	}
	if _, err := s.repository.GetUserByEmail(email); err == nil {
		return nil, validationError("Email already exists.")
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalError("failed to hash password", err)
	}

	user := &User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     RoleUser,
		IsActive: true,
	}
	if err := s.repository.CreateUser(user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, conflictError("Duplicate entry or constraint violated.", err)
		}
		return nil, internalError("failed to create user", err)
	}

	if err := s.otp.Consume(otp); err != nil {
		s.log.Error("failed to consume otp after registration", zap.Error(err))
	}

	return user, nil
}

// Login verifies credentials and issues a token pair. All failure modes
// share one generic message so accounts cannot be enumerated.
func (s *Service) Login(email, password string) (*User, string, string, error) {
	user, err := s.repository.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Hash("dummy") // equalize timing with the found-user path
			return nil, "", "", validationError(genericLoginMessage)
		}
		return nil, "", "", internalError("failed to load user", err)
	}

	if !user.IsActive || !s.hasher.Verify(user.Password, password) {
		return nil, "", "", validationError(genericLoginMessage)
	}

	access, refresh, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, "", "", internalError("failed to issue tokens", err)
	}

	return user, access, refresh, nil
}

// Refresh exchanges a refresh token for a new pair, consuming the old one.
func (s *Service) Refresh(refreshToken string) (string, string, error) {
	return s.tokens.RefreshExchange(refreshToken)
}

// ExternalIdentityLogin provisions or logs in a user whose email was already
// verified by an external identity provider. Provisioned accounts carry the
// unusable-password marker and can never authenticate via password.
func (s *Service) ExternalIdentityLogin(email, displayName string) (*User, string, string, error) {
	user, err := s.repository.GetUserByEmail(email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, "", "", internalError("failed to load user", err)
		}

		user, err = s.provisionExternalUser(email, displayName)
		if err != nil {
			return nil, "", "", err
		}
	}

	access, refresh, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, "", "", internalError("failed to issue tokens", err)
	}

	return user, access, refresh, nil
}

func (s *Service) provisionExternalUser(email, displayName string) (*User, error) {
	username, err := s.disambiguateUsername(displayName)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username: username,
		Email:    email,
		Password: UnusablePassword,
		Role:     RoleUser,
		IsActive: true,
	}
	if err := s.repository.CreateUser(user); err != nil {
		return nil, internalError("failed to provision user", err)
	}
	return user, nil
}

// disambiguateUsername appends a random numeric suffix while the candidate
// collides with an existing username.
func (s *Service) disambiguateUsername(displayName string) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(displayName), " ", ""))
	if len(base) < 4 {
		base = base + "user"
	}

	candidate := base
	for attempt := 0; attempt < 10; attempt++ {
		if _, err := s.repository.GetUserByUsername(candidate); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return candidate, nil
			}
			return "", internalError("failed to check username", err)
		}

		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", internalError("failed to generate suffix", err)
		}
		candidate = fmt.Sprintf("%s%04d", base, n.Int64())
	}

	return "", internalError("failed to find free username", nil)
}

// ResetPasswordRequest issues an OTP allowing a password reset.
func (s *Service) ResetPasswordRequest(email string) (string, error) {
	message, err := s.guard.Check(email)
	if err != nil {
		return "", internalError("failed to check blacklist", err)
	}
	if message != "" {
		return "", forbiddenError(message)
	}

	if _, err := s.repository.GetUserByEmail(email); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", validationError("No account found for this email.")
		}
		return "", internalError("failed to load user", err)
	}

	if err := s.generateAndSend(email, "Password reset code"); err != nil {
		return "", err
	}
	return "Password reset email sent.", nil
}

// SetPassword finishes a password reset with a valid OTP. Field mismatches
// fail before any record is touched.
func (s *Service) SetPassword(email, code, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return unprocessableError("Passwords do not match.")
	}

	otp, err := s.repository.GetOtpByEmail(email)
	if err != nil && !errors.Is(err, ErrOtpNotFound) {
		return internalError("failed to load otp", err)
	}
	if !s.otp.IsValid(code, otp) {
		return forbiddenError("Invalid or expired verification code.")
	}

	user, err := s.repository.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return validationError("No account found for this email.")
		}
		return internalError("failed to load user", err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internalError("failed to hash password", err)
	}
	user.Password = hashed
	if err := s.repository.UpdateUser(user); err != nil {
		return internalError("failed to update password", err)
	}

	if err := s.otp.Consume(otp); err != nil {
		s.log.Error("failed to consume otp after password reset", zap.Error(err))
	}

	return nil
}

// ChangePassword replaces the password of an authenticated user after
// verifying the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return unprocessableError("Passwords do not match.")
	}

	user, err := s.repository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return unauthenticatedError("invalid user")
		}
		return internalError("failed to load user", err)
	}

	if !s.hasher.Verify(user.Password, oldPassword) {
		return validationError("Old password is incorrect.")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internalError("failed to hash password", err)
	}
	user.Password = hashed
	if err := s.repository.UpdateUser(user); err != nil {
		return internalError("failed to update password", err)
	}

	return nil
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// UpdateProfile applies username/email changes. Changing the email
// deactivates the account and starts a fresh OTP cycle against the new
// address before it is trusted.
func (s *Service) UpdateProfile(userID uint, input UpdateProfileInput) (*User, string, error) {
	user, err := s.repository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", unauthenticatedError("invalid user")
		}
		return nil, "", internalError("failed to load user", err)
	}

	message := "Profile updated."
	emailChanged := false

	if input.Username != nil && *input.Username != user.Username {
		if len(*input.Username) < 4 {
			return nil, "", validationError("Username must be at least 4 characters.")
		}
		if _, err := s.repository.GetUserByUsername(*input.Username); err == nil {
			return nil, "", validationError("Username already taken.")
		}
		user.Username = *input.Username
	}

	if input.Email != nil && *input.Email != user.Email {
		if _, err := s.repository.GetUserByEmail(*input.Email); err == nil {
			return nil, "", validationError("Email already exists.")
		}

		blocked, err := s.guard.Check(*input.Email)
		if err != nil {
			return nil, "", internalError("failed to check blacklist", err)
		}
		if blocked != "" {
			return nil, "", forbiddenError(blocked)
		}

		user.Email = *input.Email
		user.IsActive = false
		emailChanged = true
	}

	if err := s.repository.UpdateUser(user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, "", conflictError("Duplicate entry or constraint violated.", err)
		}
		return nil, "", internalError("failed to update profile", err)
	}

	if emailChanged {
		if err := s.generateAndSend(user.Email, "Verify your new email"); err != nil {
			return nil, "", err
		}
		message = "Profile updated. Verification email sent to the new address."
	}

	return user, message, nil
}

// Activate re-activates an account once its email is verified by OTP.
func (s *Service) Activate(email, code string) (*User, error) {
	otp, err := s.repository.GetOtpByEmail(email)
	if err != nil && !errors.Is(err, ErrOtpNotFound) {
		return nil, internalError("failed to load otp", err)
	}
	if !s.otp.IsValid(code, otp) {
		return nil, forbiddenError("Invalid or expired verification code.")
	}

	user, err := s.repository.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, validationError("No account found for this email.")
		}
		return nil, internalError("failed to load user", err)
	}

	user.IsActive = true
	if err := s.repository.UpdateUser(user); err != nil {
		return nil, internalError("failed to activate user", err)
	}

	if err := s.otp.Consume(otp); err != nil {
		s.log.Error("failed to consume otp after activation", zap.Error(err))
	}

	return user, nil
}

// DeleteAccount removes the authenticated user's account.
func (s *Service) DeleteAccount(userID uint) error {
	if err := s.repository.DeleteUser(userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return unauthenticatedError("invalid user")
		}
		return internalError("failed to delete user", err)
	}
	return nil
}

// Me returns the authenticated user.
func (s *Service) Me(userID uint) (*User, error) {
	user, err := s.repository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, unauthenticatedError("invalid user")
		}
		return nil, internalError("failed to load user", err)
	}
	return user, nil
}

// issueOtp runs the registration-request flow: blacklist gate, duplicate
// email check, then OTP issuance.
func (s *Service) issueOtp(email, subject string) error {
	message, err := s.guard.Check(email)
	if err != nil {
		return internalError("failed to check blacklist", err)
	}
	if message != "" {
		return forbiddenError(message)
	}

	if _, err := s.repository.GetUserByEmail(email); err == nil {
		return validationError("Email already exists.")
	} else if !errors.Is(err, ErrUserNotFound) {
		return internalError("failed to check email", err)
	}

	return s.generateAndSend(email, subject)
}

// generateAndSend issues or refreshes the OTP, escalating abusers into the
// blacklist, and dispatches the code without blocking.
func (s *Service) generateAndSend(email, subject string) error {
	otp, code, isNew, err := s.otp.GenerateOrRefresh(email)
	if err != nil {
		return internalError("failed to generate otp", err)
	}

	if s.otp.ShouldBlacklist(otp, isNew) {
		if err := s.guard.Escalate(email); err != nil {
			return internalError("failed to escalate blacklist", err)
		}
		return rateLimitedError("Too many requests. Your email has been added to the blacklist.")
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %.0f seconds.",
		code, s.config.OTP.Expiration.Seconds())
	s.mailer.Dispatch(email, subject, body)
	return nil
}
