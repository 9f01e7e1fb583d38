package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestLogin_SetsCookieAndReturnsToken(t *testing.T) {
	env := testServer(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": testUser, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.False(t, c.Secure, "cookie is not Secure outside production")

	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decodeResponse(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, c.Value, body.Token)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := testServer(t)

	wrongPass := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": testUser, "password": "nope"})
	unknownUser := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)
	assert.Equal(t, "Invalid credentials", errorMessage(t, wrongPass))
	assert.Equal(t, "Invalid credentials", errorMessage(t, unknownUser))
}

func TestLogin_MissingFields(t *testing.T) {
	env := testServer(t)

	for _, body := range []interface{}{
		map[string]string{"username": testUser},
		map[string]string{"password": testPassword},
		"not json",
	} {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Username and password required", errorMessage(t, resp))
	}
}

// loginFrom serves a login attempt in-process with the given peer address
// and extra headers.
func (e *testEnv) loginFrom(t *testing.T, remoteAddr, password string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonReader(t, map[string]string{"username": testUser, "password": password}))
	req.RemoteAddr = remoteAddr
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestLogin_RateLimitedPerClient(t *testing.T) {
	env := testServer(t)

	for i := 0; i < 5; i++ {
		rec := env.loginFrom(t, "203.0.113.7:40001", "wrong", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// The sixth attempt is denied even with the right password, from any
	// source port of the same host.
	rec := env.loginFrom(t, "203.0.113.7:40002", testPassword, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many login attempts"}`, rec.Body.String())

	// Another client is unaffected.
	rec = env.loginFrom(t, "198.51.100.20:40001", testPassword, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_ForwardedHeadersIgnoredByDefault(t *testing.T) {
	env := testServer(t)

	// Rotating forwarding headers over one real connection does not buy
	// fresh attempts.
	codes := map[int]int{}
	for i := 1; i <= 20; i++ {
		req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/auth/login",
			jsonReader(t, map[string]string{"username": testUser, "password": "wrong"}))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		req.Header.Set("True-Client-IP", fmt.Sprintf("10.0.2.%d", i))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes[resp.StatusCode]++
		if i == 6 {
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "sixth attempt")
		}
	}
	assert.Equal(t, map[int]int{http.StatusUnauthorized: 5, http.StatusTooManyRequests: 15}, codes)
}

func TestLogin_TrustProxyKeysOnForwardedAddress(t *testing.T) {
	env := testServer(t, withTrustProxy())
	proxy := "10.1.1.1:5000"

	for i := 0; i < 5; i++ {
		rec := env.loginFrom(t, proxy, "wrong", http.Header{"X-Forwarded-For": {"203.0.113.7"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.loginFrom(t, proxy, testPassword, http.Header{"X-Forwarded-For": {"203.0.113.7"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Behind the proxy, a different forwarded client has its own window.
	rec = env.loginFrom(t, proxy, testPassword, http.Header{"X-Forwarded-For": {"198.51.100.20"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	t.Run("bearer", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		decodeResponse(t, resp, &body)
		assert.Equal(t, testUser, body["username"])
		assert.NotEmpty(t, body["userId"])
	})

	t.Run("cookie", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/me", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no session", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", errorMessage(t, resp))
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
	resp.Body.Close()

	// Without revocation the token itself stays valid until it expires.
	resp = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout_RevokesTokenWhenEnabled(t *testing.T) {
	env := testServer(t, withRevocation())
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_WithoutSession(t *testing.T) {
	env := testServer(t, withRevocation())

	resp := env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
