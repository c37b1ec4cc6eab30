// Package identity 第三方登录（Google OAuth2）
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrNotConfigured    = errors.New("identity provider not configured")
	ErrEmailNotVerified = errors.New("identity provider returned an unverified email")
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile 外部身份
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Provider 授权码流程
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

// NewState OAuth state，存入 session 回调时比对
func NewState() string {
	return uuid.NewString()
}

func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange 用授权码换 token 并读取邮箱，仅接受已验证的邮箱
func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	if g.cfg.ClientID == "" {
		return nil, ErrNotConfigured
	}

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch userinfo: status %d: %s", resp.StatusCode, body)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" || !p.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return &p, nil
}
