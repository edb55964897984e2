package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/inkwell/config"
	"github.com/oksasatya/inkwell/internal/container"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
	"github.com/oksasatya/inkwell/pkg/helpers"
	"github.com/oksasatya/inkwell/pkg/validation"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type authData struct {
	User struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Token string `json:"token"`
}

type postData struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	OwnerID  int64  `json:"owner_id"`
	Editable bool   `json:"editable"`
}

// newTestServer wires the real modules against the in-memory store.
func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestServerWith(t, func(*config.Config) {})
}

func newTestServerWith(t *testing.T, tweak func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	cfg := config.Load()
	cfg.StoreDriver = "memory"
	cfg.SearchEnabled = false
	cfg.EventsEnabled = false
	cfg.DebugMetricsEnabled = true
	cfg.RateLimitEnabled = false
	tweak(cfg)

	container.Reset()
	container.SetConfig(cfg)
	container.SetLogger(helpers.NewDiscardLogger())
	container.SetJWT(helpers.NewJWTManager("router-test-secret-value", "inkwell", "inkwell-api", time.Hour))
	container.SetHasher(helpers.NewPasswordHasher(bcrypt.MinCost))

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()
	return engine
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if rr.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rr.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func register(t *testing.T, h http.Handler, email, password string) authData {
	t.Helper()
	rr, env := call(t, h, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var a authData
	require.NoError(t, json.Unmarshal(env.Data, &a))
	require.NotEmpty(t, a.Token)
	return a
}

func TestOwnershipScenario(t *testing.T) {
	srv := newTestServer(t)

	alice := register(t, srv, "a@x.com", "secret1")
	assert.Equal(t, "a@x.com", alice.User.Email)

	rr, env := call(t, srv, http.MethodGet, "/api/auth/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, alice.User.ID, me.ID)
	assert.Equal(t, "a@x.com", me.Email)
	assert.NotContains(t, rr.Body.String(), "password")

	rr, env = call(t, srv, http.MethodPost, "/api/posts", alice.Token, gin.H{"title": "Hi There", "content": "This is long enough"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created postData
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, alice.User.ID, created.OwnerID)
	postPath := "/api/posts/" + strconv.FormatInt(created.ID, 10)

	bob := register(t, srv, "b@x.com", "secret2")
	rr, env = call(t, srv, http.MethodPut, postPath, bob.Token, gin.H{"title": "Hijacked", "content": "Bob was here all along"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", env.Error.Code)

	rr, env = call(t, srv, http.MethodDelete, postPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, env = call(t, srv, http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var unchanged postData
	require.NoError(t, json.Unmarshal(env.Data, &unchanged))
	assert.Equal(t, "Hi There", unchanged.Title)
	assert.Equal(t, alice.User.ID, unchanged.OwnerID)
	assert.False(t, unchanged.Editable)

	rr, _ = call(t, srv, http.MethodDelete, postPath, alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":true}`, string(mustData(t, rr)))

	rr, env = call(t, srv, http.MethodGet, postPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	rr, _ = call(t, srv, http.MethodDelete, postPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func mustData(t *testing.T, rr *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Data
}

func TestMutationsRequireIdentity(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "a@x.com", "secret1")
	_, env := call(t, srv, http.MethodPost, "/api/posts", alice.Token, gin.H{"title": "Hello world", "content": "Plenty of content"})
	var p postData
	require.NoError(t, json.Unmarshal(env.Data, &p))
	postPath := "/api/posts/" + strconv.FormatInt(p.ID, 10)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/posts"},
		{http.MethodPut, postPath},
		{http.MethodDelete, postPath},
		{http.MethodGet, "/api/me/posts"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/refresh"},
	} {
		rr, env := call(t, srv, tc.method, tc.path, "", gin.H{"title": "x", "content": "y"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "missing_token", env.Error.Code)
		assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
	}

	rr, env := call(t, srv, http.MethodPut, postPath, "garbage", gin.H{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)
}

func TestClientSuppliedOwnerIsIgnored(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "a@x.com", "secret1")
	bob := register(t, srv, "b@x.com", "secret2")

	rr, env := call(t, srv, http.MethodPost, "/api/posts", alice.Token, gin.H{
		"title": "Not yours", "content": "Trying to plant this on bob", "owner_id": bob.User.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var p postData
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, alice.User.ID, p.OwnerID)
}

func TestPersonalizedListing(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "a@x.com", "secret1")
	bob := register(t, srv, "b@x.com", "secret2")
	call(t, srv, http.MethodPost, "/api/posts", alice.Token, gin.H{"title": "Alice first", "content": "Alice writes things"})
	call(t, srv, http.MethodPost, "/api/posts", bob.Token, gin.H{"title": "Bob first", "content": "Bob writes things too"})

	rr, env := call(t, srv, http.MethodGet, "/api/posts", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var posts []postData
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, p.OwnerID == alice.User.ID, p.Editable, "post %d", p.ID)
	}

	// a broken token on a public route degrades to anonymous
	rr, env = call(t, srv, http.MethodGet, "/api/posts", "broken", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	for _, p := range posts {
		assert.False(t, p.Editable)
	}

	rr, env = call(t, srv, http.MethodGet, "/api/posts?owner="+strconv.FormatInt(bob.User.ID, 10), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Bob first", posts[0].Title)

	rr, env = call(t, srv, http.MethodGet, "/api/posts?owner=bob", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error.Details, "owner")

	rr, env = call(t, srv, http.MethodGet, "/api/me/posts", bob.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	require.Len(t, posts, 1)
	assert.True(t, posts[0].Editable)
}

func TestLoginDoesNotRevealAccounts(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "a@x.com", "secret1")

	rrWrong, envWrong := call(t, srv, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "wrong-one"})
	rrUnknown, envUnknown := call(t, srv, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@x.com", "password": "wrong-one"})

	assert.Equal(t, http.StatusUnauthorized, rrWrong.Code)
	assert.Equal(t, rrWrong.Code, rrUnknown.Code)
	assert.Equal(t, envWrong.Message, envUnknown.Message)
	assert.Equal(t, envWrong.Error.Code, envUnknown.Error.Code)

	rr, env := call(t, srv, http.MethodPost, "/api/auth/login", "", gin.H{"email": " A@X.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	var a authData
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, "a@x.com", a.User.Email)

	rr, env = call(t, srv, http.MethodPost, "/api/auth/refresh", a.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var refreshed authData
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.Equal(t, a.User.ID, refreshed.User.ID)
}

func TestRegisterConflictsAndValidation(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "a@x.com", "secret1")

	rr, env := call(t, srv, http.MethodPost, "/api/auth/register", "", gin.H{"email": "A@x.com", "password": "another1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "email_taken", env.Error.Code)

	rr, env = call(t, srv, http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")
}

func TestSearchDisabled(t *testing.T) {
	srv := newTestServer(t)
	rr, env := call(t, srv, http.MethodGet, "/api/posts/search?q=hello", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "search_unavailable", env.Error.Code)
}

func TestDebugVars(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodGet, "/api/auth/me", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "auth_rejections")
}

func TestLoginIsRateLimitedWithoutRedis(t *testing.T) {
	srv := newTestServerWith(t, func(c *config.Config) {
		c.RateLimitEnabled = true
		c.Env = "production"
	})
	body := gin.H{"email": "nobody@x.com", "password": "whatever1"}
	for i := 0; i < 10; i++ {
		rr, _ := call(t, srv, http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code, "attempt %d", i)
	}
	rr, env := call(t, srv, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", env.Error.Code)
}

func TestUnknownRoutesUseEnvelope(t *testing.T) {
	srv := newTestServer(t)

	rr, env := call(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "route_not_found", env.Error.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))

	rr, env = call(t, srv, http.MethodPatch, "/api/posts/1", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "method_not_allowed", env.Error.Code)
}
