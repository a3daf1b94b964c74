package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/shelfquest/api/utils"
)

func authCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.TokenCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterLoginFlow(t *testing.T) {
	r, _ := newTestAPI(t)

	w := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "wren",
		"password": "readinglife",
		"email":    "wren@example.com",
	})
	var reg struct {
		Token string `json:"token"`
		User  struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
	}
	mustSucceed(t, w, &reg)
	if reg.Token == "" || reg.User.Username != "wren" || reg.User.Email != "wren@example.com" {
		t.Fatalf("register payload = %+v", reg)
	}
	cookie := authCookie(w)
	if cookie == nil || cookie.Value != reg.Token || !cookie.HttpOnly {
		t.Fatalf("session cookie not set correctly: %+v", cookie)
	}

	// same username again
	w = do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "wren",
		"password": "readinglife",
		"email":    "other@example.com",
	})
	mustFail(t, w, http.StatusBadRequest, 40007)

	// same email, new username
	w = do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "wren2",
		"password": "readinglife",
		"email":    "wren@example.com",
	})
	mustFail(t, w, http.StatusBadRequest, 40008)

	// login with the username
	w = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "wren",
		"password": "readinglife",
	})
	var login struct {
		Token string `json:"token"`
	}
	mustSucceed(t, w, &login)
	if login.Token == "" {
		t.Fatal("login returned an empty token")
	}

	// the email works as the login identity too
	w = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "Wren@example.com",
		"password": "readinglife",
	})
	mustSucceed(t, w, &login)

	// wrong password
	w = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "wren",
		"password": "wrong-password",
	})
	mustFail(t, w, http.StatusUnauthorized, 40102)

	// unknown account gets the same rejection
	w = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "nobody",
		"password": "readinglife",
	})
	mustFail(t, w, http.StatusUnauthorized, 40102)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestAPI(t)

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing fields", gin.H{"username": "solo"}, 40001},
		{"short username", gin.H{"username": "ab", "password": "readinglife", "email": "a@b.com"}, 40002},
		{"bad username chars", gin.H{"username": "bad name!", "password": "readinglife", "email": "a@b.com"}, 40002},
		{"short password", gin.H{"username": "reader", "password": "short", "email": "a@b.com"}, 40003},
		{"oversized password", gin.H{"username": "reader", "password": strings.Repeat("x", 80), "email": "a@b.com"}, 40003},
		{"bad email", gin.H{"username": "reader", "password": "readinglife", "email": "not-an-email"}, 40004},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/auth/register", "", tc.body)
			mustFail(t, w, http.StatusBadRequest, tc.code)
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "departer")

	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/auth/me", token, nil), &me)
	if me.User.Username != "departer" {
		t.Fatalf("me = %+v", me)
	}

	// no token at all
	mustFail(t, do(t, r, http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized, 40101)

	w := do(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	mustSucceed(t, w, nil)
	if cookie := authCookie(w); cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("logout did not clear the session cookie: %+v", cookie)
	}

	// the token is dead from here on
	mustFail(t, do(t, r, http.MethodGet, "/api/auth/me", token, nil), http.StatusUnauthorized, 40104)
}

func TestAuthViaCookie(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "cookieuser")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: utils.TokenCookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	mustSucceed(t, w, nil)
}

func TestUpdateProfile(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "editor")
	registerUser(t, r, "occupant")

	w := do(t, r, http.MethodPatch, "/api/auth/profile", token, gin.H{
		"email":      "editor-new@example.com",
		"avatar_url": "https://cdn.example/<script>x</script>me.png",
	})
	var updated struct {
		User struct {
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		} `json:"user"`
	}
	mustSucceed(t, w, &updated)
	if updated.User.Email != "editor-new@example.com" {
		t.Fatalf("email = %s", updated.User.Email)
	}
	if strings.Contains(updated.User.AvatarURL, "<script>") {
		t.Fatalf("avatar url kept markup: %s", updated.User.AvatarURL)
	}

	mustFail(t, do(t, r, http.MethodPatch, "/api/auth/profile", token, gin.H{
		"email": "broken",
	}), http.StatusBadRequest, 40011)

	// occupant's address is taken
	mustFail(t, do(t, r, http.MethodPatch, "/api/auth/profile", token, gin.H{
		"email": "occupant@example.com",
	}), http.StatusBadRequest, 40012)
}

func TestCaptchaEndpoints(t *testing.T) {
	r, _ := newTestAPI(t)

	var captcha struct {
		CaptchaID    string `json:"captcha_id"`
		CaptchaImage string `json:"captcha_image"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/auth/captcha", "", nil), &captcha)
	if captcha.CaptchaID == "" || !strings.HasPrefix(captcha.CaptchaImage, "data:image/") {
		t.Fatalf("captcha payload = %+v", captcha)
	}

	var verify struct {
		Valid bool `json:"valid"`
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/auth/captcha/verify", "", gin.H{
		"captcha_id":   captcha.CaptchaID,
		"captcha_code": "almost certainly wrong",
	}), &verify)
	if verify.Valid {
		t.Fatal("wrong captcha answer verified")
	}
}

func TestSendEmailCodeWithoutSMTP(t *testing.T) {
	r, _ := newTestAPI(t)

	mustFail(t, do(t, r, http.MethodPost, "/api/auth/send-email-code", "", gin.H{
		"email": "reader@example.com",
	}), http.StatusInternalServerError, 50007)

	mustFail(t, do(t, r, http.MethodPost, "/api/auth/send-email-code", "", gin.H{
		"email": "not-an-email",
	}), http.StatusBadRequest, 40009)
}

func TestOAuthUnconfigured(t *testing.T) {
	r, _ := newTestAPI(t)

	// no client id in the test environment
	mustFail(t, do(t, r, http.MethodGet, "/api/auth/oauth/github/login", "", nil), http.StatusBadRequest, 40050)
	// provider we never heard of
	mustFail(t, do(t, r, http.MethodGet, "/api/auth/oauth/gitlab/login", "", nil), http.StatusBadRequest, 40050)
}

func TestHealthAndNoRoute(t *testing.T) {
	r, _ := newTestAPI(t)

	var health struct {
		Status string `json:"status"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/health", "", nil), &health)
	if health.Status != "ok" {
		t.Fatalf("health = %+v", health)
	}

	mustFail(t, do(t, r, http.MethodGet, "/api/no/such/route", "", nil), http.StatusNotFound, 40400)

	w := do(t, r, http.MethodGet, "/no/such/page", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
