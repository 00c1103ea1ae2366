package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/platform/apierr"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/repos"
	"github.com/spinnernet/backend/internal/requestdata"
)

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context, refreshToken string) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	if user == nil {
		return fmt.Errorf("user required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return fmt.Errorf("an email is required to register")
	}
	if user.Password == "" {
		return fmt.Errorf("a password is required to register")
	}
	if strings.TrimSpace(user.FirstName) == "" {
		return fmt.Errorf("a first name is required to register")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return apierr.New(http.StatusConflict, "email_in_use", fmt.Errorf("email is already in use"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	if _, err := as.userRepo.Create(ctx, nil, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}

	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid credentials"))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid credentials"))
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userTokenRepo.DeleteByUserID(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("clear stale tokens: %w", err)
		}
		var txErr error
		accessToken, refreshToken, txErr = as.issueTokens(ctx, tx, user.ID)
		return txErr
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return "", "", fmt.Errorf("not authenticated")
	}
	if refreshToken == "" {
		return "", "", fmt.Errorf("refresh token required")
	}

	stored, err := as.userTokenRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return "", "", fmt.Errorf("load refresh token: %w", err)
	}
	if stored == nil || stored.RefreshToken != refreshToken {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_refresh_token", fmt.Errorf("invalid refresh token"))
	}
	if stored.ExpiresAt.Before(time.Now()) {
		return "", "", apierr.New(http.StatusUnauthorized, "refresh_token_expired", fmt.Errorf("refresh token expired"))
	}

	var newAccess, newRefresh string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userTokenRepo.DeleteByUserID(ctx, tx, rd.UserID); err != nil {
			return err
		}
		var txErr error
		newAccess, newRefresh, txErr = as.issueTokens(ctx, tx, rd.UserID)
		return txErr
	})
	if err != nil {
		return "", "", err
	}
	return newAccess, newRefresh, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("not authenticated")
	}
	return as.userTokenRepo.DeleteByUserID(ctx, nil, rd.UserID)
}

// SetContextFromToken validates the access token and attaches the resolved
// identity to the context.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx, fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("invalid subject claim")
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (string, string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := uuid.NewString()
	_, err = as.userTokenRepo.Create(ctx, tx, &types.UserToken{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(as.refreshTTL),
		CreatedAt:    now,
	})
	if err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}
