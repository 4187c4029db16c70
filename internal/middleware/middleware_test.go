package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/utils"
)

const secret = "test-secret"

func protected(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		id, _ := UserID(c)
		role, _ := Role(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
	}, mw...)
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := protected(JWTAuth(secret))

	require.Equal(t, http.StatusUnauthorized, do(e, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(e, "garbage").Code)

	tok, err := utils.NewAccessToken(secret, 9, model.RoleUser, 5)
	require.NoError(t, err)
	rec := do(e, tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":9,"role":"user"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := protected(JWTAuth(secret), RequireRole(model.RoleAdmin))

	user, err := utils.NewAccessToken(secret, 2, model.RoleUser, 5)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, do(e, user.Token).Code)

	admin, err := utils.NewAccessToken(secret, 1, model.RoleAdmin, 5)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, do(e, admin.Token).Code)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	e := protected(RequireRole(model.RoleUser))
	require.Equal(t, http.StatusForbidden, do(e, "").Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, `[1,2]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	require.False(t, ok)
}

func TestCacheKeyIncludesQueryAndParams(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "parking:cache", KeyStrategy: "route_query"}
	e := echo.New()
	key := func(target, id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/lots/:id/spots")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c, 3)
	}
	a := key("/v1/lots/1/spots", "1")
	require.Regexp(t, `^parking:cache:3:[0-9a-f]{40}$`, a)
	require.Equal(t, a, key("/v1/lots/1/spots", "1"))
	require.NotEqual(t, a, key("/v1/lots/2/spots", "2"))
	require.NotEqual(t, a, key("/v1/lots/1/spots?q=x", "1"))
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
	e := protected(
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
	)
	for i := 0; i < 3; i++ {
		rec := do(e, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestCachePurgerWithoutClient(t *testing.T) {
	var p *CachePurger
	require.NoError(t, p.Notify(context.Background(), queue.ParkingEvent{}))
	require.NoError(t, (&CachePurger{Prefix: "x"}).Notify(context.Background(), queue.ParkingEvent{}))
}

func TestRateKeyUsesIdentity(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "parking:rl", KeyStrategy: "user_route"}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/bookings", nil), httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	require.Equal(t, "parking:rl:user:guest:route:POST /v1/bookings", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(12))
	require.Equal(t, "parking:rl:user:12:route:POST /v1/bookings", buildRateKey(cfg, c))
}

func TestParseBucket(t *testing.T) {
	res, ok := parseBucket([]any{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	require.False(t, res.allowed)
	require.Equal(t, 1500*time.Millisecond, res.retry)

	res, ok = parseBucket([]any{int64(1), "4", int64(0)})
	require.True(t, ok)
	require.True(t, res.allowed)
	require.EqualValues(t, 4, res.remaining)

	_, ok = parseBucket("nope")
	require.False(t, ok)
}

func TestCacheKeyFollowsGeneration(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "parking:cache", KeyStrategy: "route_query"}
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/v1/lots", nil), httptest.NewRecorder())
	c.SetPath("/v1/lots")

	before := cacheKeyFrom(cfg, c, 4)
	after := cacheKeyFrom(cfg, c, 5)
	require.NotEqual(t, before, after)
	require.Equal(t, strings.Replace(before, ":4:", ":5:", 1), after)
}

func TestPurgeKeepsGenerationCounter(t *testing.T) {
	keys := []string{"parking:cache:gen", "parking:cache:1:ab", "parking:cache:2:cd"}
	require.Equal(t, []string{"parking:cache:1:ab", "parking:cache:2:cd"}, entryKeys(keys, "parking:cache"))
	require.Empty(t, entryKeys([]string{"parking:cache:gen"}, "parking:cache"))
}
