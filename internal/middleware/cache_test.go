package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/config"
)

func cacheCtx(e *echo.Echo, target, routePattern, bearer string) echo.Context {
	req := httptest.NewRequest("GET", target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(routePattern)
	return c
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

// Two requests hitting the same parameterized route with different
// path parameters must never share a cache key, or one program's
// response would be replayed for another.
func TestCacheKeyDistinguishesPathParams(t *testing.T) {
	e := echo.New()
	cfg := testCacheConfig()
	const pattern = "/v1/programs/:id/live"

	k1 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/programs/1/live", pattern, ""))
	k2 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/programs/2/live", pattern, ""))
	if k1 == k2 {
		t.Fatalf("cache key collision across path params: %q", k1)
	}

	// Same concrete path keys identically.
	k1again := cacheKeyFrom(cfg, cacheCtx(e, "/v1/programs/1/live", pattern, ""))
	if k1 != k1again {
		t.Errorf("cache key not stable for one path: %q vs %q", k1, k1again)
	}

	// Token resolution must key per token as well.
	tok1 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/join/token/aaa", "/v1/join/token/:token", ""))
	tok2 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/join/token/bbb", "/v1/join/token/:token", ""))
	if tok1 == tok2 {
		t.Errorf("cache key collision across tokens: %q", tok1)
	}
}

func TestCacheKeyDistinguishesQuery(t *testing.T) {
	e := echo.New()
	cfg := testCacheConfig()
	k1 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/join/resolve?code=AB12C3", "/v1/join/resolve", ""))
	k2 := cacheKeyFrom(cfg, cacheCtx(e, "/v1/join/resolve?code=ZZ99XX", "/v1/join/resolve", ""))
	if k1 == k2 {
		t.Errorf("cache key collision across query strings: %q", k1)
	}
}

// Requests carrying credentials get per-caller responses and must
// bypass the shared cache entirely.
func TestCacheableExcludesAuthorizedRequests(t *testing.T) {
	e := echo.New()
	cfg := testCacheConfig()

	if !cacheable(cfg, cacheCtx(e, "/v1/programs/1/live", "/v1/programs/:id/live", "")) {
		t.Error("anonymous GET should be cacheable")
	}
	if cacheable(cfg, cacheCtx(e, "/v1/programs", "/v1/programs", "sometoken")) {
		t.Error("GET with Authorization header must not be cacheable")
	}

	post := cacheCtx(e, "/v1/join", "/v1/join", "")
	post.Request().Method = "POST"
	if cacheable(cfg, post) {
		t.Error("POST must not be cacheable")
	}
}
