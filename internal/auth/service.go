package auth

import (
	"context"
	"errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"net/mail"
	"strings"
	"time"
)

const minPasswordLength = 8

// Identity is the authenticated caller. A nil *Identity means anonymous.
type Identity struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type Session struct {
	AccessToken string                `json:"access_token"`
	ExpiresAt   time.Time             `json:"expires_at"`
	UserID      string                `json:"user_id"`
	Email       string                `json:"email"`
	Role        entities.Role         `json:"role"`
	Profile     *entities.UserProfile `json:"profile,omitempty"`
}

type accountRepository interface {
	CreateWithProfile(ctx context.Context, account *entities.Account, profile *entities.UserProfile) error
	GetByEmail(ctx context.Context, email string) (*entities.Account, error)
	GetByID(ctx context.Context, id string) (*entities.Account, error)
}

type profileRepository interface {
	Get(ctx context.Context, userID string) (*entities.UserProfile, error)
	GetRole(ctx context.Context, userID string) (entities.Role, error)
}

type Service struct {
	accounts    accountRepository
	profiles    profileRepository
	tokens      *Tokens
	revoked     *RevocationList
	adminEmails []string
	bcryptCost  int
}

func NewService(accounts accountRepository, profiles profileRepository, tokens *Tokens, revoked *RevocationList,
	adminEmails []string, bcryptCost int) *Service {

	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		accounts:    accounts,
		profiles:    profiles,
		tokens:      tokens,
		revoked:     revoked,
		adminEmails: lo.Map(adminEmails, func(e string, _ int) string { return normalizeEmail(e) }),
		bcryptCost:  bcryptCost,
	}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.New(apperrors.KindValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role := entities.RoleUser
	if lo.Contains(s.adminEmails, email) {
		role = entities.RoleAdmin
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	account := &entities.Account{ID: id, Email: email, PasswordHash: string(hash), CreatedAt: now}
	profile := &entities.UserProfile{ID: id, Role: role, CreatedAt: now, UpdatedAt: now}

	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, apperrors.New(apperrors.KindValidation, "an account with this email already exists")
		}
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAuth).Errorf("failed to create account: %v", err)
		return nil, apperrors.Store(err, "create account")
	}

	log.Infof("account created: %s role=%s", id, role)
	return s.issue(account, profile)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperrors.Store(err, "load account")
	}
	if account == nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "invalid email or password")
	}

	profile, err := s.profiles.Get(ctx, account.ID)
	if err != nil {
		return nil, apperrors.Store(err, "load profile")
	}
	if profile == nil {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "profile not found")
	}
	return s.issue(account, profile)
}

func (s *Service) SignOut(identity *Identity) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	s.revoked.Revoke(identity.TokenID, identity.ExpiresAt)
	return nil
}

// CurrentUser validates the token and returns the identity behind it.
func (s *Service) CurrentUser(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.New(apperrors.KindUnauthenticated, "access token expired")
		}
		return nil, apperrors.Wrap(apperrors.KindUnauthenticated, err, "invalid access token")
	}
	if s.revoked.IsRevoked(claims.ID) {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "session has been signed out")
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.Store(err, "load account")
	}
	if account == nil {
		return nil, apperrors.New(apperrors.KindUnauthenticated, "user does not exist")
	}

	return &Identity{
		UserID:    account.ID,
		Email:     account.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IsAdmin reads the role from the profile store on every call.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := s.profiles.GetRole(ctx, userID)
	if err != nil {
		return false, apperrors.Store(err, "load role")
	}
	return role == entities.RoleAdmin, nil
}

func (s *Service) Profile(ctx context.Context, identity *Identity) (*entities.UserProfile, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	profile, err := s.profiles.Get(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Store(err, "load profile")
	}
	if profile == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "profile not found")
	}
	return profile, nil
}

func (s *Service) issue(account *entities.Account, profile *entities.UserProfile) (*Session, error) {
	token, claims, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		UserID:      account.ID,
		Email:       account.Email,
		Role:        profile.Role,
		Profile:     profile,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
