package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"minibank/internal/model"
	"minibank/internal/repository"
	"minibank/pkg/idgen"
	"minibank/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

// Registration amount rules mirror the transaction minimums: an account
// opens with at least one withdrawal's worth of balance.
const (
	MinInitialBalance = 50000
	minPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TokenDenylist revokes individual tokens by jti until they expire on
// their own.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthService struct {
	users    repository.UserStore
	accounts repository.AccountStore
	tokens   *token.Manager
	denylist TokenDenylist
}

func NewAuthService(users repository.UserStore, accounts repository.AccountStore, tokens *token.Manager, denylist TokenDenylist) *AuthService {
	return &AuthService{
		users:    users,
		accounts: accounts,
		tokens:   tokens,
		denylist: denylist,
	}
}

type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Balance       int64  `json:"balance"`
}

// Register creates the user plus its account. AccountNumber is generated
// when omitted. A duplicate email or account number surfaces as a
// BusinessRuleError.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.Account, error) {
	if ve := validateRegister(&req); ve != nil {
		return nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &BusinessRuleError{Reason: ReasonDuplicateEntry, Message: "email is already registered"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if req.AccountNumber == "" {
		req.AccountNumber = idgen.GenerateAccountNumber()
	}

	account := &model.Account{
		UserID:        user.ID,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		BankName:      strings.TrimSpace(req.BankName),
		AccountNumber: req.AccountNumber,
		Balance:       req.Balance,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &BusinessRuleError{Reason: ReasonDuplicateEntry, Message: "account number is already registered"}
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login verifies the credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	signed, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, ttl)
}

func validateRegister(req *RegisterRequest) *ValidationError {
	ve := &ValidationError{}

	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		ve.add("email", "email must be a valid address")
	}
	if len(req.Password) < minPasswordLength {
		ve.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(req.FirstName) == "" || len(req.FirstName) > 50 {
		ve.add("first_name", "first_name is required and must be at most 50 characters")
	}
	if strings.TrimSpace(req.LastName) == "" || len(req.LastName) > 50 {
		ve.add("last_name", "last_name is required and must be at most 50 characters")
	}
	if strings.TrimSpace(req.BankName) == "" || len(req.BankName) > 255 {
		ve.add("bank_name", "bank_name is required and must be at most 255 characters")
	}

	if req.Balance < MinInitialBalance {
		ve.add("balance", fmt.Sprintf("initial balance must be at least %d", MinInitialBalance))
	} else {
		digits := len(strconv.FormatInt(req.Balance, 10))
		if digits < minAmountDigits || digits > maxAmountDigits {
			ve.add("balance", fmt.Sprintf("initial balance must be between %d and %d digits", minAmountDigits, maxAmountDigits))
		}
	}

	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if req.AccountNumber != "" {
		if !isDigits(req.AccountNumber) || len(req.AccountNumber) < 8 || len(req.AccountNumber) > 15 {
			ve.add("account_number", "account_number must be numeric with 8 to 15 digits")
		}
	}

	if ve.empty() {
		return nil
	}
	return ve
}
