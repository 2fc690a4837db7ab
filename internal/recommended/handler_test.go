package recommended

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/wichananm65/recommender-web/internal/model"
	"github.com/wichananm65/recommender-web/internal/operator"
	"github.com/wichananm65/recommender-web/internal/rating"
)

const testSecret = "test-secret"

func seedRatings() []rating.Rating {
	return []rating.Rating{
		{ReviewerID: "R1", ProductID: "P1", Value: 4},
		{ReviewerID: "R2", ProductID: "P1", Value: 4},
		{ReviewerID: "R2", ProductID: "P2", Value: 5},
		{ReviewerID: "R2", ProductID: "P3", Value: 1},
		{ReviewerID: "R2", ProductID: "P4", Value: 3},
		{ReviewerID: "R3", ProductID: "P2", Value: 5},
		{ReviewerID: "R3", ProductID: "P3", Value: 1},
		{ReviewerID: "R3", ProductID: "P4", Value: 3},
	}
}

func newTestApp(t *testing.T, seed []rating.Rating, train bool) (*fiber.App, *Service) {
	t.Helper()
	svc := NewService(rating.NewInMemoryRepository(seed), model.DefaultParams(), zerolog.Nop())
	if train {
		if _, err := svc.Train(context.Background()); err != nil {
			t.Fatalf("train failed: %v", err)
		}
	}
	h := NewHandler(svc)

	app := fiber.New()
	h.RegisterPublicRoutes(app)
	guard, err := operator.Middleware(testSecret)
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	app.Use(guard)
	h.RegisterProtectedRoutes(app)
	return app, svc
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func signedToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRecommend_RanksUnratedProducts(t *testing.T) {
	app, _ := newTestApp(t, seedRatings(), true)

	status, body := postJSON(t, app, "/recommend", `{"reviewerId":"R1","numItems":"2"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d: %s", status, body)
	}

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", resp.Recommendations)
	}
	if resp.Recommendations[0].RecommendedProductID != "P2" || resp.Recommendations[1].RecommendedProductID != "P4" {
		t.Fatalf("unexpected order %+v", resp.Recommendations)
	}
	if resp.Recommendations[0].PredictedRating < resp.Recommendations[1].PredictedRating {
		t.Fatalf("ratings not descending %+v", resp.Recommendations)
	}
	if strings.Contains(body, `"P1"`) {
		t.Fatalf("rated product leaked into recommendations: %s", body)
	}
}

func TestRecommend_NumericAndZeroItems(t *testing.T) {
	app, _ := newTestApp(t, seedRatings(), true)

	status, body := postJSON(t, app, "/recommend", `{"reviewerId":"R1","numItems":10}`)
	if status != fiber.StatusOK || strings.Count(body, "recommendedProductID") != 3 {
		t.Fatalf("expected all 3 unrated products, got %d %s", status, body)
	}

	status, body = postJSON(t, app, "/recommend", `{"reviewerId":"R1","numItems":" 0 "}`)
	if status != fiber.StatusOK || body != `{"recommendations":[]}` {
		t.Fatalf("expected empty list, got %d %s", status, body)
	}
}

func TestRecommend_Errors(t *testing.T) {
	untrained, _ := newTestApp(t, seedRatings(), false)
	if status, _ := postJSON(t, untrained, "/recommend", `{"reviewerId":"R1","numItems":"1"}`); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 before training, got %d", status)
	}

	app, _ := newTestApp(t, seedRatings(), true)
	cases := []struct {
		body   string
		status int
	}{
		{`{"reviewerId":"nobody","numItems":"1"}`, fiber.StatusNotFound},
		{`{"reviewerId":"","numItems":"1"}`, fiber.StatusBadRequest},
		{`{"reviewerId":"R1","numItems":"-1"}`, fiber.StatusBadRequest},
		{`{"reviewerId":"R1","numItems":"three"}`, fiber.StatusBadRequest},
		{`{"reviewerId":"R1"}`, fiber.StatusBadRequest},
		{`not json`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		if status, body := postJSON(t, app, "/recommend", tc.body); status != tc.status {
			t.Fatalf("body %s: expected %d, got %d (%s)", tc.body, tc.status, status, body)
		}
	}
}

func TestTrain_RequiresToken(t *testing.T) {
	app, _ := newTestApp(t, seedRatings(), false)

	res, err := app.Test(httptest.NewRequest("POST", "/train", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode == fiber.StatusOK {
		t.Fatalf("expected train to be rejected without a token")
	}

	req := httptest.NewRequest("POST", "/train", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.StatusCode, b)
	}
	if !strings.Contains(string(b), `"reviewers":3`) || !strings.Contains(string(b), `"ratings":8`) {
		t.Fatalf("unexpected train response %s", b)
	}

	// the freshly trained model now serves recommendations
	if status, _ := postJSON(t, app, "/recommend", `{"reviewerId":"R1","numItems":"1"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200 after training, got %d", status)
	}
}

func TestTrain_NoRatings(t *testing.T) {
	app, _ := newTestApp(t, nil, false)
	req := httptest.NewRequest("POST", "/train", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", res.StatusCode)
	}
}

func TestImportRatings(t *testing.T) {
	app, svc := newTestApp(t, nil, false)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "ratings.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("reviewerID,productID,rating\nA,P1,5\nB,P1,2\n"))
	w.Close()

	req := httptest.NewRequest("POST", "/ratings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusCreated {
		b, _ := io.ReadAll(res.Body)
		t.Fatalf("expected 201, got %d: %s", res.StatusCode, b)
	}

	got, _ := svc.repo.List(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 stored ratings, got %d", len(got))
	}
}

func uploadCSV(t *testing.T, app *fiber.App, body string) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "ratings.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(body))
	w.Close()

	req := httptest.NewRequest("POST", "/ratings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func TestTrain_RejectsTokenSignedWithEmptyKey(t *testing.T) {
	app, _ := newTestApp(t, seedRatings(), false)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).SignedString([]byte(""))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	for _, path := range []string{"/train", "/ratings"} {
		req := httptest.NewRequest("POST", path, nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		res, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for a forged token, got %d", path, res.StatusCode)
		}
	}
}

func TestTrain_ReportsEvaluation(t *testing.T) {
	app, _ := newTestApp(t, seedRatings(), false)

	req := httptest.NewRequest("POST", "/train", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var got TrainResult
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Pairs != 8 || got.Evaluation == nil {
		t.Fatalf("expected 8 pairs with an evaluation, got %+v", got)
	}
	// ceil(0.2 * 8)
	if got.Evaluation.Validation != 2 || got.Evaluation.RMSE < 0 || got.Evaluation.MAE < 0 {
		t.Fatalf("unexpected evaluation %+v", got.Evaluation)
	}
}

func TestImportRatings_DuplicatesDoNotShiftPredictions(t *testing.T) {
	app, svc := newTestApp(t, seedRatings(), true)
	before, err := svc.Recommend(context.Background(), "R1", 3)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	status, body := uploadCSV(t, app, "reviewerID,productID,rating\nR2,P2,5\nR3,P2,5\nR2,P2,5\nR3,P2,5\n")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	res, err := svc.Train(context.Background())
	if err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if res.Ratings != 12 || res.Pairs != 8 {
		t.Fatalf("expected 12 stored rows merged into 8 pairs, got %+v", res)
	}

	after, err := svc.Recommend(context.Background(), "R1", 3)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("expected %d recommendations, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("recommendation %d moved from %+v to %+v", i, before[i], after[i])
		}
	}
}

func TestImportRatings_RejectsOutOfRange(t *testing.T) {
	app, svc := newTestApp(t, nil, false)

	status, body := uploadCSV(t, app, "reviewerID,productID,rating\nA,P1,5\nB,P1,10\n")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
	if got, _ := svc.repo.List(context.Background()); len(got) != 0 {
		t.Fatalf("expected nothing stored, got %+v", got)
	}
	if _, err := svc.Import(context.Background(), []rating.Rating{{ReviewerID: "A", ProductID: "P1", Value: 0}}); !errors.Is(err, rating.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange from Import, got %v", err)
	}
}
