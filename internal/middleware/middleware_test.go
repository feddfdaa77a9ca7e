package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/utils"
)

const secret = "test-secret"

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 7, model.RoleStaff, 5)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		err := JWTAuth(secret)(ok)(c)
		assert.True(t, apperror.Is(err, apperror.TypeUnauthorized))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		c.Request().Header.Set("Authorization", "Token "+tok.Token)
		err := JWTAuth(secret)(ok)(c)
		assert.True(t, apperror.Is(err, apperror.TypeUnauthorized))
	})

	t.Run("bad signature", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/")
		c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
		err := JWTAuth("other")(ok)(c)
		assert.True(t, apperror.Is(err, apperror.TypeUnauthorized))
	})

	t.Run("valid", func(t *testing.T) {
		c, rec := newContext(http.MethodGet, "/")
		c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
		require.NoError(t, JWTAuth(secret)(ok)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		id, found := UserID(c)
		assert.True(t, found)
		assert.Equal(t, uint64(7), id)
		assert.Equal(t, model.RoleStaff, Role(c))
	})
}

func TestStaffForWrites(t *testing.T) {
	tests := []struct {
		method, role string
		allowed      bool
	}{
		{http.MethodGet, model.RoleUser, true},
		{http.MethodHead, model.RoleUser, true},
		{http.MethodPost, model.RoleUser, false},
		{http.MethodPatch, model.RoleUser, false},
		{http.MethodDelete, model.RoleUser, false},
		{http.MethodPost, model.RoleStaff, true},
		{http.MethodPut, model.RoleAdmin, true},
		{http.MethodDelete, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.role, func(t *testing.T) {
			c, _ := newContext(tt.method, "/")
			c.Set(ContextRole, tt.role)
			err := StaffForWrites()(ok)(c)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.Is(err, apperror.TypeForbidden))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(model.RoleStaff, model.RoleAdmin)

	c, _ := newContext(http.MethodPost, "/")
	c.Set(ContextRole, model.RoleUser)
	assert.True(t, apperror.Is(mw(ok)(c), apperror.TypeForbidden))

	c, _ = newContext(http.MethodPost, "/")
	c.Set(ContextRole, model.RoleAdmin)
	assert.NoError(t, mw(ok)(c))
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "theatre:cache", KeyStrategy: "route_query"}

	c1, _ := newContext(http.MethodGet, "/v1/theatre/plays?title=romeo")
	c2, _ := newContext(http.MethodGet, "/v1/theatre/plays?title=hamlet")
	c3, _ := newContext(http.MethodGet, "/v1/theatre/plays?title=romeo")
	c3.Set(ContextUserID, uint64(5))

	k1 := cacheKeyFrom(cfg, c1, 0)
	assert.Contains(t, k1, "theatre:cache:0:")
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, c2, 0))
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, c1, 1), "generation must change the key")
	assert.Equal(t, k1, cacheKeyFrom(cfg, c3, 0), "route_query ignores the user")

	cfg.KeyStrategy = "user_route_query"
	assert.NotEqual(t, cacheKeyFrom(cfg, c1, 0), cacheKeyFrom(cfg, c3, 0))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"count":0}`))
	require.NoError(t, err)

	status, gotHdr, body, valid := decodePayload(bs)
	require.True(t, valid)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"count":0}`, string(body))

	_, _, _, valid = decodePayload([]byte{0, 0, 0})
	assert.False(t, valid)
	_, _, _, valid = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0, 50, '{'})
	assert.False(t, valid)
}

func TestCaptureWriterDropsOversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated)
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestWithoutRedisMiddlewaresPassThrough(t *testing.T) {
	cacheCfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	rlCfg := config.RateLimitConfig{Enabled: true, Capacity: 1}

	for _, mw := range []echo.MiddlewareFunc{
		NewRedisCache(cacheCfg, nil, nil),
		NewCacheInvalidator(cacheCfg, nil, nil),
		NewTokenBucket(rlCfg, nil, nil),
	} {
		c, rec := newContext(http.MethodGet, "/")
		require.NoError(t, mw(ok)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestRateKeyStrategies(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/user/token")
	c.SetPath("/v1/user/token")
	c.Request().RemoteAddr = "10.0.0.1:1234"

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /v1/user/token", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))
	c.Set(ContextUserID, uint64(3))
	assert.Equal(t, "rl:user:3", buildRateKey(cfg, c))

	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 2, retryAfterSeconds(1500))
}
