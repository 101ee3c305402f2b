package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wishwall/wishwall-backend/pkg/config"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "rl:" + scope
}

func (f *fakeRateStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.counts))
	for k := range f.counts {
		out = append(out, k)
	}
	return out
}

type authAttempt struct {
	body       string
	remoteAddr string
	forwarded  string
}

func (a authAttempt) request() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(a.body))
	req.RemoteAddr = a.remoteAddr
	if req.RemoteAddr == "" {
		req.RemoteAddr = "203.0.113.7:41000"
	}
	if a.forwarded != "" {
		req.Header.Set("X-Forwarded-For", a.forwarded)
	}
	return req
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func runAttempts(t *testing.T, h http.Handler, attempts ...authAttempt) []*httptest.ResponseRecorder {
	t.Helper()
	out := make([]*httptest.ResponseRecorder, 0, len(attempts))
	for _, a := range attempts {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, a.request())
		out = append(out, rec)
	}
	return out
}

func statuses(recs []*httptest.ResponseRecorder) []int {
	out := make([]int, len(recs))
	for i, rec := range recs {
		out[i] = rec.Code
	}
	return out
}

func TestAuthRateLimitWindows(t *testing.T) {
	alice := authAttempt{body: `{"email":"Alice@Example.com","password":"pw-123456"}`}
	aliceLower := authAttempt{body: `{"email":"alice@example.com ","password":"pw-123456"}`, remoteAddr: "198.51.100.2:5000"}
	bob := authAttempt{body: `{"email":"bob@example.com","password":"pw-123456"}`}

	cases := map[string]struct {
		ipLimit, emailLimit int
		attempts            []authAttempt
		want                []int
	}{
		"under both limits": {
			ipLimit: 5, emailLimit: 5,
			attempts: []authAttempt{alice, bob},
			want:     []int{200, 200},
		},
		"email limit ignores case and ip": {
			emailLimit: 1,
			attempts:   []authAttempt{alice, aliceLower, bob},
			want:       []int{200, 429, 200},
		},
		"ip limit spans emails": {
			ipLimit:  2,
			attempts: []authAttempt{alice, bob, bob},
			want:     []int{200, 200, 429},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			policy := NewAuthRateLimitPolicy("login", time.Minute, tc.ipLimit, tc.emailLimit)
			h := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(okHandler))
			require.Equal(t, tc.want, statuses(runAttempts(t, h, tc.attempts...)))
		})
	}
}

func TestAuthRateLimitRestoresBody(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 0, 3)
	var seen string
	h := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(body)
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"email":"new@example.com","password":"pw-123456"}`
	recs := runAttempts(t, h, authAttempt{body: body})
	require.Equal(t, http.StatusCreated, recs[0].Code)
	require.Equal(t, body, seen)
}

func TestAuthRateLimitBlockedResponse(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 90*time.Second, 1, 0)
	h := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(okHandler))

	recs := runAttempts(t, h, authAttempt{body: `{}`}, authAttempt{body: `{}`})
	blocked := recs[1]
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.Equal(t, "90", blocked.Header().Get("Retry-After"))
	require.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, blocked))
}

func TestAuthRateLimitKeysByForwardedIP(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 10, 10)
	h := AuthRateLimit(policy, store, nil)(http.HandlerFunc(okHandler))

	runAttempts(t, h,
		authAttempt{body: `{"email":"a@example.com"}`, forwarded: "9.9.9.9, 10.0.0.1"},
		authAttempt{body: `{}`, forwarded: "not-an-ip", remoteAddr: "192.0.2.1:1234"},
	)

	keys := store.keys()
	require.Contains(t, keys, "rl:login:ip:9.9.9.9")
	require.Contains(t, keys, "rl:login:ip:192.0.2.1")
	for _, k := range keys {
		require.NotContains(t, k, "a@example.com", "raw email must not be used as a key")
	}
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	h := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 0), store, nil)(http.HandlerFunc(okHandler))

	recs := runAttempts(t, h, authAttempt{body: `{}`})
	require.Equal(t, http.StatusServiceUnavailable, recs[0].Code)
	require.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, recs[0]))
}

func TestAuthRateLimitPoliciesFromConfig(t *testing.T) {
	cfg := config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    5,
		LoginIPLimit:       20,
		RegisterWindow:     5 * time.Minute,
		RegisterEmailLimit: 3,
		RegisterIPLimit:    10,
	}
	login := LoginRateLimitPolicy(cfg)
	require.Equal(t, "login", login.name)
	require.Equal(t, 5, login.emailLimit)
	require.Equal(t, 20, login.ipLimit)
	require.True(t, login.enabled())

	register := RegisterRateLimitPolicy(cfg)
	require.Equal(t, 5*time.Minute, register.window)
	require.Equal(t, "register:ip:1.1.1.1", register.key("ip", "1.1.1.1"))

	require.False(t, NewAuthRateLimitPolicy("x", 0, 1, 1).enabled(), "zero window disables the policy")
	require.Equal(t, "auth", NewAuthRateLimitPolicy("  ", time.Minute, 1, 0).name)
}
