package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/config"
	"github.com/iliyamo/weather-todo/internal/model"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	key, err := auth.LoadSigningKey(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("m", 32))))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return auth.NewIssuer(key)
}

func protected(issuer *auth.Issuer, roles ...model.Role) *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(issuer, log.New(io.Discard)))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/whoami", func(c echo.Context) error {
		id, _ := IdentityFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id.SubjectID, "role": id.Role})
	})
	return e
}

func do(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	issuer := newIssuer(t)
	tok, err := issuer.Issue(42, "a@b.com", "nick", model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := do(protected(issuer), tok.Bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.ID != 42 || body.Role != "USER" {
		t.Errorf("unexpected body %s", rec.Body)
	}
}

func TestJWTAuthRejectsUniformly(t *testing.T) {
	issuer := newIssuer(t)
	expired := auth.NewIssuer(mustKey(t), auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	old, _ := expired.Issue(1, "a@b.com", "nick", model.RoleUser)
	other, _ := auth.NewIssuer(otherKey(t)).Issue(1, "a@b.com", "nick", model.RoleUser)

	cases := map[string]string{
		"missing":       "",
		"no prefix":     strings.TrimPrefix(old.Bearer, auth.BearerPrefix),
		"garbage":       "Bearer not.a.jwt",
		"expired":       old.Bearer,
		"different key": other.Bearer,
	}
	e := protected(issuer)
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(e, header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status %d", rec.Code)
			}
			var body apperrors.Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != "UNAUTHORIZED" || body.Code != 401 || body.Message != "authentication failed" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func mustKey(t *testing.T) auth.SigningKey {
	t.Helper()
	k, err := auth.LoadSigningKey(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("m", 32))))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func otherKey(t *testing.T) auth.SigningKey {
	t.Helper()
	k, err := auth.LoadSigningKey(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("z", 32))))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestRequireRole(t *testing.T) {
	issuer := newIssuer(t)
	tok, _ := issuer.Issue(5, "a@b.com", "nick", model.RoleUser)

	if rec := do(protected(issuer, model.RoleUser, model.RoleAdmin), tok.Bearer); rec.Code != http.StatusOK {
		t.Errorf("user rejected: %d", rec.Code)
	}
	if rec := do(protected(issuer, model.RoleAdmin), tok.Bearer); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestCacheKeyIsPerUser(t *testing.T) {
	e := echo.New()
	mk := func(id int64, target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		if id > 0 {
			SetIdentity(c, auth.Identity{SubjectID: id})
		}
		return c
	}

	a := cacheKey("cache", mk(1, "/todos?page=1"))
	b := cacheKey("cache", mk(2, "/todos?page=1"))
	a2 := cacheKey("cache", mk(1, "/todos?page=2"))

	if a == b {
		t.Error("two users share a cache key")
	}
	if a == a2 {
		t.Error("query not part of the key")
	}
	if !strings.HasPrefix(a, userPrefix("cache", "1")) {
		t.Errorf("key %q outside the user namespace", a)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Errorf("decode mismatch: %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Error("short payload decoded")
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/todos")

	anon := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c)
	if anon != "rl:user:anon:10.0.0.1:route:GET /todos" {
		t.Errorf("anon key %q", anon)
	}
	SetIdentity(c, auth.Identity{SubjectID: 9})
	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c); got != "rl:user:9" {
		t.Errorf("user key %q", got)
	}
}

func TestDisabledCacheIsPassThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	if err := rc.Invalidate(context.Background(), 1); err != nil {
		t.Errorf("invalidate on inactive cache: %v", err)
	}
}
