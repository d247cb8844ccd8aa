package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/config"
	"github.com/fitlife/fitlife/middleware"
	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

const providerEmail = "email"

// AuthController handles local accounts and third-party login.
type AuthController struct {
	db     *gorm.DB
	logger *zap.Logger
	client *http.Client
}

func NewAuthController(db *gorm.DB, logger *zap.Logger) *AuthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthController{db: db, logger: logger, client: &http.Client{Timeout: 10 * time.Second}}
}

// Register creates an account and its profile, then signs the user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required,email,max=255"`
		Password      string `json:"password" binding:"required,min=6,max=72"`
		Username      string `json:"username" binding:"omitempty,max=64"`
		FullName      string `json:"full_name" binding:"omitempty,max=128"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40009, "invalid captcha")
		return
	}
	email := normalizeEmail(req.Email)
	c := ctx.Request.Context()

	if _, err := repository.NewAccountRepository(a.db).FindByEmail(c, email); err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}
	account := models.Account{Email: email, PasswordHash: hash, Provider: providerEmail, ProviderID: email}
	username := utils.Sanitize(strings.TrimSpace(req.Username))
	fullName := utils.Sanitize(strings.TrimSpace(req.FullName))
	if err := a.createAccount(c, &account, username, fullName, nil); err != nil {
		a.logger.Error("register failed", zap.String("email", email), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create account")
		return
	}
	a.issueToken(ctx, &account)
}

// createAccount inserts the account and its profile in one transaction.
func (a *AuthController) createAccount(ctx context.Context, account *models.Account, username, fullName string, avatarURL *string) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAccountRepository(tx).Create(ctx, account); err != nil {
			return err
		}
		profiles := repository.NewProfileRepository(tx)
		if err := social.NewProfileEditor(profiles, social.StaticSession(account.ID), nil, a.logger).
			Ensure(ctx, account.ID, username, fullName); err != nil {
			return err
		}
		if avatarURL != nil {
			_, err := profiles.Update(ctx, account.ID, map[string]interface{}{"avatar_url": *avatarURL})
			return err
		}
		return nil
	})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": b64})
}

// Login verifies email and password and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	account, err := repository.NewAccountRepository(a.db).FindByEmail(ctx.Request.Context(), normalizeEmail(req.Email))
	if err != nil || !utils.CheckPassword(account.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	a.issueToken(ctx, account)
}

func (a *AuthController) issueToken(ctx *gin.Context, account *models.Account) {
	token, err := utils.GenerateToken(account.ID, account.Email, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	data := gin.H{"token": token, "account": account}
	if p, err := repository.NewProfileRepository(a.db).FindByUserID(ctx.Request.Context(), account.ID); err == nil {
		data["profile"] = p
	}
	utils.Success(ctx, data)
}

// Logout revokes the bearer token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims, ok := ctx.MustGet(middleware.ContextClaimsKey).(*utils.Claims)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(ctx.Request.Context(), ctx.GetString(middleware.ContextTokenKey), expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current account and profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	account, err := repository.NewAccountRepository(a.db).FindByID(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "account not found")
		return
	}
	data := gin.H{"account": account}
	if p, err := repository.NewProfileRepository(a.db).FindByUserID(ctx.Request.Context(), userID); err == nil {
		data["profile"] = p
	}
	utils.Success(ctx, data)
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	state, err := utils.NewState()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create state")
		return
	}
	utils.SaveState(ctx.Request.Context(), state, 10*time.Minute)
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), "state": state})
}

// OAuthCallback exchanges the authorization code for an identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	c := ctx.Request.Context()
	if !utils.ConsumeState(c, state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	token, err := cfg.Exchange(context.WithValue(c, oauth2.HTTPClient, a.client), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	info, err := a.fetchOAuthUser(c, provider, token)
	if err != nil {
		a.logger.Warn("oauth user info failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50005, "failed to fetch user info")
		return
	}
	account, err := a.findOrCreateOAuthAccount(c, provider, info)
	if err != nil {
		a.logger.Error("oauth account persist failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist account")
		return
	}
	a.issueToken(ctx, account)
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Username  string
	FullName  string
	Email     string
	AvatarURL string
}

func (a *AuthController) fetchOAuthUser(ctx context.Context, provider string, token *oauth2.Token) (*oauthUser, error) {
	switch provider {
	case "github":
		return a.fetchGitHubUser(ctx, token)
	case "google":
		return a.fetchGoogleUser(ctx, token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (a *AuthController) findOrCreateOAuthAccount(ctx context.Context, provider string, info *oauthUser) (*models.Account, error) {
	accounts := repository.NewAccountRepository(a.db)
	account, err := accounts.FindByProvider(ctx, provider, info.ID)
	if err == nil {
		if email := normalizeEmail(info.Email); email != "" && email != account.Email {
			if err := accounts.UpdateEmail(ctx, account.ID, email); err != nil {
				a.logger.Warn("oauth email refresh failed", zap.String("account_id", account.ID), zap.Error(err))
			} else {
				account.Email = email
			}
		}
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = &models.Account{Email: normalizeEmail(info.Email), Provider: provider, ProviderID: info.ID}
	username := a.ensureUniqueUsername(ctx, info.Username, provider, info.ID)
	var avatar *string
	if info.AvatarURL != "" {
		avatar = &info.AvatarURL
	}
	if err := a.createAccount(ctx, account, username, info.FullName, avatar); err != nil {
		return nil, err
	}
	return account, nil
}

func (a *AuthController) getJSON(ctx context.Context, url, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *AuthController) fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*oauthUser, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := a.getJSON(ctx, "https://api.github.com/user", token.AccessToken, &payload); err != nil {
		return nil, err
	}
	email := payload.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := a.getJSON(ctx, "https://api.github.com/user/emails", token.AccessToken, &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
			if email == "" && len(emails) > 0 {
				email = emails[0].Email
			}
		}
	}
	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		FullName:  payload.Name,
		Email:     email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func (a *AuthController) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*oauthUser, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := a.getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", token.AccessToken, &payload); err != nil {
		return nil, err
	}
	local, _, _ := strings.Cut(payload.Email, "@")
	return &oauthUser{
		ID:        payload.ID,
		Username:  local,
		FullName:  payload.Name,
		Email:     payload.Email,
		AvatarURL: payload.Picture,
	}, nil
}

func normalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return s
}

func sanitizeUsername(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// ensureUniqueUsername appends _1, _2, ... until no profile uses the name.
func (a *AuthController) ensureUniqueUsername(ctx context.Context, base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(provider + "_" + id)
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		if err := a.db.WithContext(ctx).Model(&models.Profile{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
