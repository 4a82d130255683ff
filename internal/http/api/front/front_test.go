package front

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/appslab-dev/miniapps/internal/blob"
	"github.com/appslab-dev/miniapps/internal/captcha"
	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// stubCaptcha hands out challenges with a fixed known answer so tests
// can pass verification without decoding an image.
type stubCaptcha struct {
	answers map[string]string
	next    int
}

func newStubCaptcha() *stubCaptcha {
	return &stubCaptcha{answers: map[string]string{}}
}

func (s *stubCaptcha) Issue() (captcha.Challenge, error) {
	s.next++
	id := fmt.Sprintf("challenge-%d", s.next)
	s.answers[id] = "ab3d"
	return captcha.Challenge{ID: id, Image: "data:image/png;base64,stub"}, nil
}

func (s *stubCaptcha) Verify(id, answer string) bool {
	stored, ok := s.answers[id]
	if ok {
		delete(s.answers, id)
	}
	return ok && strings.EqualFold(strings.TrimSpace(answer), stored)
}

// testEnv bundles a migrated database, blob store, and wired router.
type testEnv struct {
	engine   *gin.Engine
	conn     *gorm.DB
	blobs    *blob.Store
	jwtCfg   config.JWTConfig
	captchas *stubCaptcha
	policy   config.UploadPolicy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "front-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	blobs, errBlobs := blob.NewStore(filepath.Join(t.TempDir(), "uploads"))
	if errBlobs != nil {
		t.Fatalf("new blob store: %v", errBlobs)
	}

	env := &testEnv{
		conn:     conn,
		blobs:    blobs,
		jwtCfg:   config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		captchas: newStubCaptcha(),
		policy:   config.DefaultUploadPolicy(),
	}
	env.engine = gin.New()
	RegisterFrontRoutes(env.engine, conn, env.jwtCfg, env.captchas, blobs, env.policy)
	return env
}

// rebuildRouter re-registers routes, used after swapping the policy.
func (env *testEnv) rebuildRouter() {
	env.engine = gin.New()
	RegisterFrontRoutes(env.engine, env.conn, env.jwtCfg, env.captchas, env.blobs, env.policy)
}

// envelope mirrors the response body shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (env *testEnv) do(t *testing.T, method, target, cookie string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: cookie})
	}

	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)

	var result envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &result)
	}
	return rec, result
}

// register creates an account through the API.
func (env *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	rec, result := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":        username,
		"password":        password,
		"confirmPassword": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d message %q", username, rec.Code, result.Message)
	}
}

// login runs the captcha flow and returns the token cookie value.
func (env *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	challenge, errIssue := env.captchas.Issue()
	if errIssue != nil {
		t.Fatalf("issue captcha: %v", errIssue)
	}
	rec, result := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username":  username,
		"password":  password,
		"captchaId": challenge.ID,
		"captcha":   "ab3d",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d message %q", username, rec.Code, result.Message)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("login response missing token cookie")
	return ""
}

// registerAndLogin creates an account and returns its token cookie.
func (env *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	env.register(t, username, "password1")
	return env.login(t, username, "password1")
}

func decodeData[T any](t *testing.T, result envelope) T {
	t.Helper()
	var out T
	if errUnmarshal := json.Unmarshal(result.Data, &out); errUnmarshal != nil {
		t.Fatalf("decode data: %v (raw %s)", errUnmarshal, string(result.Data))
	}
	return out
}
