package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/courseportal/backend/internal/config"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

var ErrSSODisabled = errors.New("google sign-in is not configured")

// GoogleProfile is what the portal keeps from a Google userinfo response.
type GoogleProfile struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	VerifiedEmail  bool
}

// SSOService handles the Google sign-in round trip and maps Google
// identities to portal accounts.
type SSOService struct {
	DB  *gorm.DB
	Cfg config.SSOConfig
}

func NewSSOService(db *gorm.DB, cfg config.SSOConfig) *SSOService {
	return &SSOService{DB: db, Cfg: cfg}
}

func (s *SSOService) Enabled() bool {
	return s.Cfg.GoogleClientID != "" && s.Cfg.GoogleClientSecret != ""
}

func (s *SSOService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.Cfg.GoogleClientID,
		ClientSecret: s.Cfg.GoogleClientSecret,
		RedirectURL:  s.Cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// AuthURL produces the Google consent URL plus the state nonce the callback
// must echo back.
func (s *SSOService) AuthURL() (string, string, error) {
	if !s.Enabled() {
		return "", "", ErrSSODisabled
	}
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", "", err
	}
	state := base64.URLEncoding.EncodeToString(nonceBytes)
	return s.oauthConfig().AuthCodeURL(state), state, nil
}

func (s *SSOService) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	if !s.Enabled() {
		return nil, ErrSSODisabled
	}
	cfg := s.oauthConfig()
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("google_exchange_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}
	return s.fetchProfile(ctx, cfg, token)
}

func (s *SSOService) fetchProfile(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*GoogleProfile, error) {
	client := cfg.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return &GoogleProfile{
		ProviderUserID: data.ID,
		Email:          data.Email,
		Name:           data.Name,
		Picture:        data.Picture,
		VerifiedEmail:  data.VerifiedEmail,
	}, nil
}

// FindOrCreateUser maps a Google identity to a portal account. An account
// already linked to the Google id wins; otherwise an existing account with
// the same email is linked rather than duplicated; otherwise a fresh pending
// viewer account is created.
func (s *SSOService) FindOrCreateUser(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	if profile.Email == "" {
		return nil, errors.New("google profile has no email")
	}
	email := NormalizeEmail(profile.Email)

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "google_id = ?", profile.ProviderUserID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.DB.WithContext(ctx).First(&user, "email = ?", email).Error
	if err == nil {
		updates := map[string]interface{}{"google_id": profile.ProviderUserID}
		if user.Avatar == nil && profile.Picture != "" {
			updates["avatar"] = profile.Picture
		}
		if err := s.DB.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
		user.GoogleID = &profile.ProviderUserID
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = email
	}
	user = models.User{
		Email:         email,
		Name:          name,
		Role:          models.PortalRoleViewer,
		Status:        models.UserStatusPending,
		GoogleID:      &profile.ProviderUserID,
		Organizations: []string{},
	}
	if profile.Picture != "" {
		user.Avatar = &profile.Picture
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	logger.Info("google_account_created", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   email,
	})
	return &user, nil
}

// StateTTL bounds how long a consent round trip may take before the state
// cookie expires.
const StateTTL = 10 * time.Minute
