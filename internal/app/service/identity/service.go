package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/config"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

// Service resolves the caller behind a platform-issued bearer token.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyToken validates an HS256 session token and returns its subject and
// email claim.
func (s *Service) VerifyToken(ctx context.Context, token string) (userID, email string, err error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Email, nil
}

// ResolveUser verifies a bearer token and loads the caller's profile,
// creating one on first contact.
func (s *Service) ResolveUser(ctx context.Context, token string) (*models.Profile, error) {
	userID, email, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.Profile{ID: userID, Email: email}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		s.log.Infow("profile created", "user_id", userID)
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}
