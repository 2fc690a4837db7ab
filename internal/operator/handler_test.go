package operator

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := NewService(NewInMemoryRepository(nil), testSecret, time.Hour)
	if err := svc.Register(context.Background(), "ops", "s3cret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	app := fiber.New()
	NewHandler(svc).RegisterPublicRoutes(app)
	guard, err := Middleware(testSecret)
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	app.Use(guard)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Token).Claims.(jwt.MapClaims)
		return c.SendString(claims["sub"].(string))
	})
	return app
}

func signIn(t *testing.T, app *fiber.App, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/auth/sign-in", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("sign-in request failed: %v", err)
	}
	out := map[string]string{}
	b, _ := io.ReadAll(res.Body)
	_ = json.Unmarshal(b, &out)
	return res.StatusCode, out
}

func TestSignInIssuesUsableToken(t *testing.T) {
	app := newTestApp(t)

	status, body := signIn(t, app, `{"username":"ops","password":"s3cret"}`)
	if status != fiber.StatusOK || body["token"] == "" {
		t.Fatalf("expected token, got %d %v", status, body)
	}

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+body["token"])
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	if res.StatusCode != fiber.StatusOK || string(b) != "ops" {
		t.Fatalf("expected subject ops, got %d %q", res.StatusCode, b)
	}
}

func TestSignInRejections(t *testing.T) {
	app := newTestApp(t)

	if status, _ := signIn(t, app, `{"username":"ops","password":"wrong"}`); status != fiber.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401 got %d", status)
	}
	if status, _ := signIn(t, app, `{"username":"nobody","password":"s3cret"}`); status != fiber.StatusUnauthorized {
		t.Fatalf("unknown operator: expected 401 got %d", status)
	}
	if status, _ := signIn(t, app, `{"username":"ops"}`); status != fiber.StatusBadRequest {
		t.Fatalf("missing password: expected 400 got %d", status)
	}
}

func TestEnsureOperatorIsIdempotent(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	svc := NewService(repo, testSecret, time.Hour)
	ctx := context.Background()

	if err := svc.EnsureOperator(ctx, "ops", "first"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.EnsureOperator(ctx, "ops", "second"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ops", "first"); err != nil {
		t.Fatalf("first password should still work: %v", err)
	}
	if err := svc.Register(ctx, "ops", "third"); err != ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestMiddlewareRefusesEmptySecret(t *testing.T) {
	if _, err := Middleware(""); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestMiddlewareRejectsForeignTokens(t *testing.T) {
	app := newTestApp(t)

	expired := jwt.MapClaims{"sub": "ops", "exp": time.Now().Add(-time.Minute).Unix()}
	for name, tok := range map[string]struct {
		claims jwt.MapClaims
		key    string
	}{
		"empty key": {jwt.MapClaims{"sub": "ops"}, ""},
		"other key": {jwt.MapClaims{"sub": "ops"}, "not-the-secret"},
		"expired":   {expired, testSecret},
	} {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tok.claims).SignedString([]byte(tok.key))
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		res, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: request failed: %v", name, err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, res.StatusCode)
		}
	}
}
