package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/routes"
)

var summarizerStub *httptest.Server

// TestMain pins the environment before the config cache is populated: the
// first config.Get() freezes values for the whole process.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	summarizerStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summarize-note" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"summary":"tl;dr: %s"}`, firstWords(req.Text, 3))
	}))

	tmp := os.TempDir()
	os.Setenv("JWT_SECRET", "controllers-test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(tmp, "shelfquest_gin_test.log"))
	os.Setenv("LOG_PATH", filepath.Join(tmp, "shelfquest_app_test.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "100000")
	os.Setenv("REGISTER_ATTEMPT_COOLDOWN_SEC", "0")
	os.Setenv("REGISTER_MAX_PER_IP_PER_DAY", "0")
	os.Setenv("SUMMARIZER_URL", summarizerStub.URL)

	code := m.Run()
	summarizerStub.Close()
	os.Exit(code)
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// newTestAPI builds the full router over a fresh in-memory database.
func newTestAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Note{},
		&models.ReadingSession{},
		&models.DailyCheckin{},
		&models.DailyActivity{},
		&models.UserAchievement{},
		&models.Goal{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return routes.SetupRouter(db), db
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %q: %v", w.Body.String(), err)
	}
	return env
}

func dataInto(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, target); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

// mustSucceed asserts the standard success envelope and decodes its payload.
func mustSucceed(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Code != 0 {
		t.Fatalf("envelope code = %d (%s)", env.Code, env.Message)
	}
	if target != nil {
		dataInto(t, env, target)
	}
}

// mustFail asserts an error envelope with the expected HTTP status and code.
func mustFail(t *testing.T, w *httptest.ResponseRecorder, status, code int) envelope {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d, body %s", w.Code, status, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Code != code {
		t.Fatalf("envelope code = %d, want %d (%s)", env.Code, code, env.Message)
	}
	return env
}

func registerUser(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"password": "readinglife",
		"email":    username + "@example.com",
	})
	var data struct {
		Token string `json:"token"`
	}
	mustSucceed(t, w, &data)
	if data.Token == "" {
		t.Fatal("register returned an empty token")
	}
	return data.Token
}

func createBook(t *testing.T, r http.Handler, token, title, status string) uint {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/books", token, gin.H{
		"title":  title,
		"status": status,
	})
	var data struct {
		Book models.Book `json:"book"`
	}
	mustSucceed(t, w, &data)
	if data.Book.ID == 0 {
		t.Fatal("created book has no id")
	}
	return data.Book.ID
}
