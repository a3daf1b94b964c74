package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
	oauthgoogle "golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/shelfquest/api/config"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 72 * time.Hour

// AuthController handles registration, login, profile and OAuth flows.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new reader account. Email verification codes are required
// only when SMTP delivery is configured; captcha only when enabled.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Email       string `json:"email" binding:"required"`
		EmailCode   string `json:"email_code"`
		CaptchaID   string `json:"captcha_id"`
		CaptchaCode string `json:"captcha_code"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	clientIP := ctx.ClientIP()
	if utils.RegistrationIsBanned(clientIP) {
		utils.Error(ctx, http.StatusTooManyRequests, 42904, "registration temporarily disabled for this address")
		return
	}
	if !utils.RegistrationCooldownTry(clientIP) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many registration attempts, slow down")
		return
	}
	if !utils.RegistrationDailyLimitCheck(clientIP) {
		utils.Error(ctx, http.StatusTooManyRequests, 42903, "registration limit reached for today")
		return
	}

	username := strings.TrimSpace(req.Username)
	if !validUsername(username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-32 characters of letters, digits, - or _")
		return
	}
	if !validPassword(req.Password) {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be 8-72 characters")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid email address")
		return
	}

	cfg := config.Get()
	if cfg.RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaCode) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "captcha verification failed")
		return
	}
	if cfg.SMTPHost != "" && !utils.VerifyAndConsumeCode(email, req.EmailCode) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired email verification code")
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusBadRequest, 40007, "username already taken")
		return
	}
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusBadRequest, 40008, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to secure password")
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RegisterIP:   clientIP,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if n := utils.RegistrationFailRecord(clientIP); n >= cfg.RegisterFailedMaxPerIPPerHour {
			utils.RegistrationBan(clientIP)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	utils.RegistrationDailyIncrement(clientIP)

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}
	setAuthCookie(ctx, token)
	utils.Success(ctx, gin.H{"token": token, "user": sanitizeUserResponse(user)})
}

// Login authenticates by username or email and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	identity := strings.TrimSpace(req.Username)
	var user models.User
	if err := a.db.Where("username = ? OR email = ?", identity, strings.ToLower(identity)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid username or password")
		return
	}
	// OAuth-only accounts have no password hash and cannot log in here.
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}
	setAuthCookie(ctx, token)
	utils.Success(ctx, gin.H{"token": token, "user": sanitizeUserResponse(user)})
}

// Logout blacklists the current token until its natural expiration and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := extractToken(ctx); token != "" {
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	clearAuthCookie(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

// UpdateProfile lets the authenticated user change their email or avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load user")
		return
	}

	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !validEmail(email) {
			utils.Error(ctx, http.StatusBadRequest, 40011, "invalid email address")
			return
		}
		if email != user.Email {
			var count int64
			if err := a.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to update profile")
				return
			}
			if count > 0 {
				utils.Error(ctx, http.StatusBadRequest, 40012, "email already registered")
				return
			}
			user.Email = email
		}
	}
	if req.AvatarURL != "" {
		user.AvatarURL = utils.SanitizePlain(strings.TrimSpace(req.AvatarURL))
	}

	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to update profile")
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

// Captcha issues a new captcha challenge as a base64 data URI.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "captcha_image": b64})
}

// CaptchaVerify pre-checks a captcha answer without consuming it, so the
// frontend can validate before submitting the registration form.
func (a *AuthController) CaptchaVerify(ctx *gin.Context) {
	var req struct {
		CaptchaID   string `json:"captcha_id" binding:"required"`
		CaptchaCode string `json:"captcha_code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	utils.Success(ctx, gin.H{"valid": utils.VerifyCaptchaNoConsume(req.CaptchaID, req.CaptchaCode)})
}

// SendEmailCode delivers a registration verification code to the given address.
func (a *AuthController) SendEmailCode(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) {
		utils.Error(ctx, http.StatusBadRequest, 40009, "invalid email address")
		return
	}

	cfg := config.Get()
	if cfg.SMTPHost == "" {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "email delivery is not configured")
		return
	}
	if !utils.EmailCooldownTrySet(email, time.Minute) {
		utils.Error(ctx, http.StatusTooManyRequests, 42905, "please wait before requesting another code")
		return
	}

	code := utils.GenerateVerificationCode(6)
	utils.SaveCode(email, code, 10*time.Minute)

	subject := "Your ShelfQuest verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.\r\n\r\nIf you did not request this, ignore this email.", code)
	if err := utils.SendMail(email, subject, body); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50008, "failed to send verification email")
		return
	}
	utils.Success(ctx, gin.H{"message": "verification code sent"})
}

// OAuthRedirect starts the OAuth authorization flow for a provider.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	conf, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

// OAuthCallback completes the OAuth flow: validates state, exchanges the code,
// resolves or creates the local account and issues a session token.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	conf, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, err.Error())
		return
	}

	state := ctx.Query("state")
	if state == "" || !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid or expired oauth state")
		return
	}
	code := ctx.Query("code")
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40052, "missing authorization code")
		return
	}

	tok, err := conf.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40053, "oauth code exchange failed")
		return
	}

	client := conf.Client(ctx.Request.Context(), tok)
	var ou *oauthUser
	switch provider {
	case "github":
		ou, err = fetchGitHubUser(ctx.Request.Context(), client)
	case "google":
		ou, err = fetchGoogleUser(ctx.Request.Context(), client)
	}
	if err != nil || ou == nil {
		utils.Error(ctx, http.StatusInternalServerError, 50009, "failed to fetch oauth profile")
		return
	}

	user, err := a.findOrCreateOAuthUser(ou, ctx.ClientIP())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to sign in with oauth account")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}
	setAuthCookie(ctx, token)

	base := strings.TrimRight(config.Get().OAuthRedirectBase, "/")
	ctx.Redirect(http.StatusFound, fmt.Sprintf("%s/oauth/complete#token=%s", base, token))
}

// oauthUser is a provider-neutral view of an external identity.
type oauthUser struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")

	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     oauthgithub.Endpoint,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/github/callback", base),
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     oauthgoogle.Endpoint,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/google/callback", base),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported oauth provider: %s", provider)
	}
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		Login     string `json:"login"`
		ID        int64  `json:"id"`
		AvatarURL string `json:"avatar_url"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 {
		return nil, fmt.Errorf("github profile missing id")
	}

	email := payload.Email
	if email == "" {
		// public email can be hidden; the emails endpoint needs the user:email scope
		email, _ = fetchGitHubEmail(ctx, client)
	}
	return &oauthUser{
		Provider:   "github",
		ProviderID: strconv.FormatInt(payload.ID, 10),
		Username:   payload.Login,
		Email:      email,
		AvatarURL:  payload.AvatarURL,
	}, nil
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails endpoint returned %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("google profile missing id")
	}

	username := payload.Name
	if username == "" && payload.Email != "" {
		username = strings.SplitN(payload.Email, "@", 2)[0]
	}
	return &oauthUser{
		Provider:   "google",
		ProviderID: payload.ID,
		Username:   username,
		Email:      payload.Email,
		AvatarURL:  payload.Picture,
	}, nil
}

// findOrCreateOAuthUser resolves the local account for an external identity,
// creating one with a unique username on first login.
func (a *AuthController) findOrCreateOAuthUser(ou *oauthUser, clientIP string) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", ou.Provider, ou.ProviderID).First(&user).Error
	if err == nil {
		changed := false
		if ou.Email != "" && user.Email != strings.ToLower(ou.Email) {
			email := strings.ToLower(ou.Email)
			var count int64
			a.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count)
			if count == 0 {
				user.Email = email
				changed = true
			}
		}
		if ou.AvatarURL != "" && user.AvatarURL != ou.AvatarURL {
			user.AvatarURL = ou.AvatarURL
			changed = true
		}
		if changed {
			if err := a.db.Save(&user).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	username, err := a.ensureUniqueUsername(ou.Username)
	if err != nil {
		return nil, err
	}
	user = models.User{
		Username:   username,
		Email:      strings.ToLower(ou.Email),
		Provider:   ou.Provider,
		ProviderID: ou.ProviderID,
		AvatarURL:  ou.AvatarURL,
		RegisterIP: clientIP,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) ensureUniqueUsername(candidate string) (string, error) {
	base := normalizeUsername(candidate)
	if base == "" {
		base = "reader"
	}
	name := base
	for i := 0; i < 10; i++ {
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i)
		}
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return name, nil
		}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return base + "_" + suffix, nil
}

func normalizeUsername(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 32 {
		s = s[:32]
	}
	return s
}

func validUsername(name string) bool {
	if len(name) < 3 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

func validPassword(pw string) bool {
	// bcrypt truncates beyond 72 bytes
	return len(pw) >= 8 && len(pw) <= 72
}

func validEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.Index(email[at+1:], ".") <= 0 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}

func extractToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := ctx.Cookie(utils.TokenCookieName); err == nil {
		return cookie
	}
	return ""
}

func setAuthCookie(ctx *gin.Context, token string) {
	ctx.SetCookie(utils.TokenCookieName, token, int(tokenTTL/time.Second), "/", "", false, true)
}

func clearAuthCookie(ctx *gin.Context) {
	ctx.SetCookie(utils.TokenCookieName, "", -1, "/", "", false, true)
}

// sanitizeUserResponse strips credential fields from user payloads.
func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"provider":   user.Provider,
		"created_at": user.CreatedAt,
	}
}
