package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/metrics"
	"github.com/hnms/hnms/internal/platform/policy"
)

// PasswordHasher hashes and checks secrets. *auth.Hasher satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer signs bearer tokens. *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(p policy.Principal) (string, time.Time, error)
}

// HospitalDirectory answers whether a hospital exists. *hospital.Service
// satisfies it.
type HospitalDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

var errInvalidCredentials = apperror.Unauthorized("Invalid credentials.")

type Service struct {
	users     Repository
	hospitals HospitalDirectory
	hasher    PasswordHasher
	tokens    TokenIssuer
	metrics   *metrics.Metrics

	dummyOnce sync.Once
	dummy     string
}

// NewService wires the user service. m may be nil.
func NewService(users Repository, hospitals HospitalDirectory, hasher PasswordHasher, tokens TokenIssuer, m *metrics.Metrics) *Service {
	return &Service{users: users, hospitals: hospitals, hasher: hasher, tokens: tokens, metrics: m}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is compared against when the email is unknown so that both
// failure paths spend the same hashing time.
func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummy
}

// Login exchanges an email and password for a token. An unknown email and a
// wrong password produce the same error. The disabled-account error is only
// returned once the password has verified.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperror.Validation("Email and password are required.")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Verify(req.Password, s.dummyHash())
		s.metrics.AuthAttempt("invalid_credentials")
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperror.Internal("Server error during login.", err)
	}

	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		s.metrics.AuthAttempt("invalid_credentials")
		return nil, errInvalidCredentials
	}
	if !u.IsActive {
		s.metrics.AuthAttempt("disabled")
		return nil, apperror.Forbidden("Account is disabled. Please contact administrator.")
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.metrics.AuthAttempt("success")
	return res, nil
}

// Register creates a self-registered account and returns a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return nil, apperror.Validation("Name, email, password, and role are required.")
	}
	if !req.Role.SelfRegistrable() {
		return nil, apperror.Validation("Invalid role. Must be one of: ADMIN, DOCTOR, NURSE, PATIENT")
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}

	if req.HospitalID != nil {
		ok, err := s.hospitals.Exists(ctx, *req.HospitalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.Validation("Hospital not found.")
		}
	}

	u := &User{
		HospitalID: req.HospitalID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Phone:      req.Phone,
		IsActive:   true,
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// CreateSuperAdmin creates a SUPER_ADMIN account. It is reachable only from
// the command line; the HTTP registration endpoint refuses the role.
func (s *Service) CreateSuperAdmin(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperror.Validation("Name, email, and password are required.")
	}
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	u := &User{Name: name, Email: email, Role: policy.RoleSuperAdmin, IsActive: true}
	if err := s.create(ctx, u, password); err != nil {
		return nil, err
	}
	return u, nil
}

func validateCredentials(email, password string) error {
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperror.Validation("Invalid email address.")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.Validationf("Password must be at least %d characters.", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return apperror.Validationf("Password must be at most %d bytes.", MaxPasswordLength)
	}
	return nil
}

func (s *Service) create(ctx context.Context, u *User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apperror.Internal("Server error during registration.", err)
	}
	u.PasswordHash = hash

	err = s.users.Create(ctx, u)
	if errors.Is(err, ErrEmailTaken) {
		return apperror.Conflict("Email already registered.")
	}
	if err != nil {
		return apperror.Internal("Server error during registration.", err)
	}
	return nil
}

func (s *Service) issue(u *User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, apperror.Internal("Error issuing token.", err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, p policy.Principal) (*User, error) {
	if !p.Authenticated() {
		return nil, apperror.Unauthorized("Authentication required.")
	}
	u, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("User not found.")
	}
	if err != nil {
		return nil, apperror.Internal("Server error retrieving profile.", err)
	}
	return u, nil
}

// UpdateProfile patches the caller's name and phone.
func (s *Service) UpdateProfile(ctx context.Context, p policy.Principal, req UpdateProfileRequest) (*User, error) {
	if !p.Authenticated() {
		return nil, apperror.Unauthorized("Authentication required.")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("Name cannot be empty.")
		}
		req.Name = &name
	}
	u, err := s.users.UpdateProfile(ctx, p.ID, req)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("User not found.")
	}
	if err != nil {
		return nil, apperror.Internal("Server error updating profile.", err)
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current
// one.
func (s *Service) ChangePassword(ctx context.Context, p policy.Principal, req ChangePasswordRequest) error {
	if !p.Authenticated() {
		return apperror.Unauthorized("Authentication required.")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperror.Validation("Current password and new password are required.")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("User not found.")
	}
	if err != nil {
		return apperror.Internal("Server error changing password.", err)
	}
	if !s.hasher.Verify(req.CurrentPassword, u.PasswordHash) {
		return apperror.Unauthorized("Current password is incorrect.")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperror.Internal("Server error changing password.", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperror.Internal("Server error changing password.", err)
	}
	return nil
}

// SetActive enables or disables login for the account with email. Accounts
// are never deleted.
func (s *Service) SetActive(ctx context.Context, email string, active bool) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("User not found.")
	}
	if err != nil {
		return apperror.Internal("Error retrieving user.", err)
	}
	if err := s.users.SetActive(ctx, u.ID, active); err != nil {
		return apperror.Internal("Error updating user.", err)
	}
	return nil
}
