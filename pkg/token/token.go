package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"TaskQuest/config"
)

const (
	// IdentityKey JWT 中携带账户 public_id 的 claim
	IdentityKey = "uid"

	claimType   = "type"
	typeRefresh = "refresh"
)

var (
	ErrNotInitialized   = errors.New("token manager is not initialized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrIdentityMissing  = errors.New("identity claim missing")
)

// Pair access/refresh 令牌对
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Manager 负责签发与校验令牌，middleware 复用同一份密钥和有效期
type Manager struct {
	now        func() time.Time
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

var shared *Manager

func Init() error {
	if config.Cfg.JWTSecret == "" {
		return fmt.Errorf("failed to initialize token manager: empty JWT secret")
	}
	shared = NewManager(
		config.Cfg.JWTSecret,
		time.Duration(config.Cfg.JWTExpireMinutes)*time.Minute,
		time.Duration(config.Cfg.JWTRefreshDays)*24*time.Hour,
	)
	return nil
}

// Default 获取共享的 Manager（供 middleware 与 handler 使用）
func Default() *Manager {
	return shared
}

func (m *Manager) Key() []byte                { return m.secret }
func (m *Manager) AccessTTL() time.Duration   { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration  { return m.refreshTTL }
func (m *Manager) TimeFunc() func() time.Time { return m.now }

// IssuePair 生成 access token 和 refresh token
func (m *Manager) IssuePair(publicID string) (Pair, error) {
	if m == nil {
		return Pair{}, ErrNotInitialized
	}

	now := m.now()
	expiresAt := now.Add(m.accessTTL)

	access, err := m.sign(jwtv5.MapClaims{
		IdentityKey: publicID,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
		"orig_iat":  now.Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := m.sign(jwtv5.MapClaims{
		IdentityKey: publicID,
		claimType:   typeRefresh,
		"jti":       uuid.NewString(), // 同一秒内签发的 refresh token 也互不相同
		"iat":       now.Unix(),
		"exp":       now.Add(m.refreshTTL).Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessTTL.Seconds()),
	}, nil
}

func (m *Manager) sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseRefresh 验证 refresh token 并返回 public_id
func (m *Manager) ParseRefresh(tokenString string) (string, error) {
	if m == nil {
		return "", ErrNotInitialized
	}

	parsed, err := jwtv5.Parse(tokenString, func(t *jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if t, _ := claims[claimType].(string); t != typeRefresh {
		return "", ErrInvalidTokenType
	}

	publicID, ok := claims[IdentityKey].(string)
	if !ok || publicID == "" {
		return "", ErrIdentityMissing
	}
	return publicID, nil
}
