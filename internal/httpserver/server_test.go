package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/qwirkle/server/internal/session"
	"github.com/robalobadob/qwirkle/server/internal/store"
)

const testPassword = "correct horse"

type harness struct {
	srv     *httptest.Server
	store   store.Store
	tracker *session.Tracker
	secret  []byte
}

func newHarness(t *testing.T, withLogin bool) *harness {
	t.Helper()
	h := &harness{store: store.NewMemoryStore(), tracker: session.NewTracker(), secret: []byte("test-secret")}
	auth := Auth{Secret: h.secret, User: "admin", Expires: time.Hour}
	if withLogin {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		require.NoError(t, err)
		auth.PasswordHash = string(hash)
	}
	h.srv = httptest.NewServer(New(h.store, h.tracker, auth).Router())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	res := h.do(t, http.MethodPost, "/auth/login", "", `{"username":"admin","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out loginRes
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	assert.True(t, out.ExpiresAt.After(time.Now()))
	return out.Token
}

func TestPublicEndpoints(t *testing.T) {
	h := newHarness(t, false)

	res := h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/json")
	var body map[string]bool
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body["ok"])

	res = h.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = h.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGatedEndpointsNeedToken(t *testing.T) {
	h := newHarness(t, true)
	for _, path := range []string{"/session", "/games", "/games/x"} {
		res := h.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)

		res = h.do(t, http.MethodGet, path, "garbage", "")
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, true)

	res := h.do(t, http.MethodPost, "/auth/login", "", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = h.do(t, http.MethodPost, "/auth/login", "", `{"username":"root","password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = h.do(t, http.MethodPost, "/auth/login", "", `{`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	tok := h.login(t)
	res = h.do(t, http.MethodGet, "/session", tok, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	h := newHarness(t, false)
	res := h.do(t, http.MethodPost, "/auth/login", "", `{"username":"admin","password":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestTokenChecks(t *testing.T) {
	h := newHarness(t, true)
	sign := func(secret []byte, user string, exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"username": user,
			"exp":      exp.Unix(),
		}).SignedString(secret)
		require.NoError(t, err)
		return tok
	}

	res := h.do(t, http.MethodGet, "/session", sign([]byte("other"), "admin", time.Now().Add(time.Hour)), "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "wrong secret")

	res = h.do(t, http.MethodGet, "/session", sign(h.secret, "admin", time.Now().Add(-time.Hour)), "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "expired")

	res = h.do(t, http.MethodGet, "/session", sign(h.secret, "mallory", time.Now().Add(time.Hour)), "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "wrong user")

	res = h.do(t, http.MethodGet, "/session", sign(h.secret, "admin", time.Now().Add(time.Hour)), "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRequireAuthSetsAdmin(t *testing.T) {
	s := New(store.NewMemoryStore(), session.NewTracker(), Auth{Secret: []byte("k"), User: "admin", Expires: time.Hour})
	tok, _, err := s.signJWT("admin")
	require.NoError(t, err)

	var seen string
	h := s.requireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = adminFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", seen)
	assert.Empty(t, adminFrom(context.Background()))
}

func TestSessionSnapshot(t *testing.T) {
	h := newHarness(t, true)
	tok := h.login(t)

	res := h.do(t, http.MethodGet, "/session", tok, "")
	var st session.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(t, session.StateWaiting, st.State)

	h.tracker.Publish(session.Status{ID: "s1", State: session.StateActive, Players: 2, Turn: 1, Scores: []int{4, 0}, BagCount: 90})
	res = h.do(t, http.MethodGet, "/session", tok, "")
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(t, "s1", st.ID)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, []int{4, 0}, st.Scores)
	assert.Equal(t, 90, st.BagCount)
}

func TestGamesEndpoints(t *testing.T) {
	h := newHarness(t, true)
	tok := h.login(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"g1", "g2", "g3"} {
		require.NoError(t, h.store.Save(ctx, &store.Result{
			ID:      id,
			EndedAt: now.Add(time.Duration(i) * time.Minute),
			Players: 2,
			Scores:  []int{i, 0},
			Winners: []int{0},
			Reason:  session.ReasonGameOver,
		}))
	}

	res := h.do(t, http.MethodGet, "/games?limit=2", tok, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []store.Result
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "g3", list[0].ID)

	res = h.do(t, http.MethodGet, "/games?limit=zero", tok, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = h.do(t, http.MethodGet, "/games/g2", tok, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var one store.Result
	require.NoError(t, json.NewDecoder(res.Body).Decode(&one))
	assert.Equal(t, []int{1, 0}, one.Scores)

	res = h.do(t, http.MethodGet, "/games/missing", tok, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStartShutsDownOnCancel(t *testing.T) {
	s := New(store.NewMemoryStore(), session.NewTracker(), Auth{Secret: []byte("x")})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
