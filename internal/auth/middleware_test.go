package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

func newTestApp(t *testing.T, tm *TokenManager) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": domainErr.Code})
		},
	})

	policy := NewPolicy(
		PublicRule("GET", "/public"),
		ScopeRule("*", "/admin/**", domain.RoleAdmin),
		AuthenticatedRule("GET", "/me"),
	)

	middleware := NewMiddleware(tm, zap.NewNop(), "jwt")
	app.Use(middleware.Handle)
	app.Use(policy.Enforce())

	app.Get("/public", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		return c.JSON(fiber.Map{"subject_id": identity.SubjectID})
	})
	app.Get("/admin/overview", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: cookie})
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func TestAnonymousReachesPublicRoutes(t *testing.T) {
	app := newTestApp(t, NewTokenManager(newTestKeys(t), "mybackend", time.Hour))

	for _, cookie := range []string{"", "not-a-token", "a.b.c"} {
		if resp := doRequest(t, app, "/public", cookie); resp.StatusCode != http.StatusOK {
			t.Fatalf("public route with cookie %q = %d, want 200", cookie, resp.StatusCode)
		}
	}
}

func TestAnonymousRejectedOnProtectedRoutes(t *testing.T) {
	app := newTestApp(t, NewTokenManager(newTestKeys(t), "mybackend", time.Hour))

	if resp := doRequest(t, app, "/me", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no cookie on /me = %d, want 401", resp.StatusCode)
	}
	if resp := doRequest(t, app, "/me", "malformed-cookie"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad cookie on /me = %d, want 401", resp.StatusCode)
	}
}

func TestValidCookieAttachesIdentity(t *testing.T) {
	tm := NewTokenManager(newTestKeys(t), "mybackend", time.Hour)
	app := newTestApp(t, tm)

	token, _, err := tm.Issue(adminUser(), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	resp := doRequest(t, app, "/me", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid cookie on /me = %d, want 200", resp.StatusCode)
	}

	var body struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.SubjectID != adminUser().ID {
		t.Fatalf("subject_id = %q, want %q", body.SubjectID, adminUser().ID)
	}

	if resp := doRequest(t, app, "/admin/overview", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("ADMIN cookie on /admin = %d, want 200", resp.StatusCode)
	}
}

func TestExpiredCookieDegradesToAnonymous(t *testing.T) {
	tm := NewTokenManager(newTestKeys(t), "mybackend", time.Nanosecond)
	app := newTestApp(t, tm)

	token, _, err := tm.Issue(adminUser(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if resp := doRequest(t, app, "/public", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("expired cookie on public route = %d, want 200", resp.StatusCode)
	}
	if resp := doRequest(t, app, "/me", token); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired cookie on /me = %d, want 401", resp.StatusCode)
	}
}

func TestBearerHeaderFallback(t *testing.T) {
	tm := NewTokenManager(newTestKeys(t), "mybackend", time.Hour)
	app := newTestApp(t, tm)

	token, _, err := tm.Issue(adminUser(), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer header on /me = %d, want 200", resp.StatusCode)
	}
}
