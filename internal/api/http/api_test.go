package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/api/http/handlers"
	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/observability"
	"github.com/spec-kit/market-service/internal/persistence"
	"github.com/spec-kit/market-service/internal/repository"
	"github.com/spec-kit/market-service/internal/scheduler"
	"github.com/spec-kit/market-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repository.NewMemoryStore("", logger)
	if err := store.Users().SeedIfEmpty(context.Background(), domain.SeedUsers()); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	reminders := scheduler.New(dispatcher, scheduler.SystemClock(), logger, metrics)
	locks := service.NewListingLocks()

	chat := service.NewChatService(store.Posts(), store.Messages(), store.Users(), dispatcher, locks, logger)
	appointments := service.NewAppointmentService(service.AppointmentDependencies{
		PostRepo:        store.Posts(),
		AppointmentRepo: store.Appointments(),
		StatusCoord:     service.NewPostStatusCoordinator(store.Posts()),
		Reminders:       reminders,
		Dispatcher:      dispatcher,
		Locks:           locks,
		Logger:          logger,
	})
	catalog := service.NewPostService(service.PostDependencies{
		PostRepo:        store.Posts(),
		AppointmentRepo: store.Appointments(),
		UserRepo:        store.Users(),
		Chat:            chat,
		Reminders:       reminders,
		Locks:           locks,
		Logger:          logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:       handlers.NewHealthHandler("market-service", "test", &persistence.Postgres{}, nil),
		Posts:        handlers.NewPostsHandler(catalog),
		Appointments: handlers.NewAppointmentsHandler(appointments),
	})
	return app
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("%s %s: bad response %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, parsed
}

func createTestPost(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, resp := doJSON(t, app, fiber.MethodPost, "/api/posts", fiber.Map{
		"sellerId": "user1",
		"title":    "Used bicycle",
		"price":    50000,
	})
	if status != http.StatusCreated || !resp.Success {
		t.Fatalf("create post: status=%d resp=%+v", status, resp)
	}
	var post struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &post); err != nil {
		t.Fatalf("parse post: %v", err)
	}
	return post.ID
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodGet, "/health/live", nil)
	if status != http.StatusOK {
		t.Fatalf("live status = %d", status)
	}
	status, _ = doJSON(t, app, fiber.MethodGet, "/health/ready", nil)
	if status != http.StatusOK {
		t.Fatalf("ready status = %d", status)
	}
}

func TestListUsersReturnsSeeds(t *testing.T) {
	app := newTestApp(t)

	status, resp := doJSON(t, app, fiber.MethodGet, "/api/users", nil)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	var users []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &users); err != nil {
		t.Fatalf("parse users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	postID := createTestPost(t, app)

	status, resp := doJSON(t, app, fiber.MethodGet, "/api/posts", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var posts []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &posts); err != nil {
		t.Fatalf("parse posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != postID || posts[0].Status != "Selling" {
		t.Fatalf("posts = %+v", posts)
	}

	status, resp = doJSON(t, app, fiber.MethodGet, "/api/posts/"+postID, nil)
	if status != http.StatusOK {
		t.Fatalf("detail status = %d", status)
	}
	var detail struct {
		Post        struct{ ID string }           `json:"post"`
		Messages    []json.RawMessage             `json:"messages"`
		Appointment *struct{ ID string }          `json:"appointment"`
	}
	if err := json.Unmarshal(resp.Data, &detail); err != nil {
		t.Fatalf("parse detail: %v", err)
	}
	if detail.Post.ID != postID || detail.Appointment != nil || len(detail.Messages) != 0 {
		t.Fatalf("detail = %+v", detail)
	}

	// Deleting without the acting user is rejected; with a stranger it is forbidden.
	if status, resp = doJSON(t, app, fiber.MethodDelete, "/api/posts/"+postID, nil); status != http.StatusBadRequest || resp.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("delete without user: status=%d resp=%+v", status, resp)
	}
	if status, resp = doJSON(t, app, fiber.MethodDelete, "/api/posts/"+postID+"?user=user2", nil); status != http.StatusForbidden || resp.Error.Code != "FORBIDDEN" {
		t.Fatalf("delete by stranger: status=%d resp=%+v", status, resp)
	}
	if status, _ = doJSON(t, app, fiber.MethodDelete, "/api/posts/"+postID+"?user=user1", nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status, resp = doJSON(t, app, fiber.MethodGet, "/api/posts/"+postID, nil); status != http.StatusNotFound || resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("detail after delete: status=%d resp=%+v", status, resp)
	}
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	postID := createTestPost(t, app)
	base := fmt.Sprintf("/api/posts/%s/appointment", postID)
	when := time.Now().Add(24 * time.Hour)

	status, resp := doJSON(t, app, fiber.MethodGet, base, nil)
	if status != http.StatusOK || string(resp.Data) != "null" {
		t.Fatalf("initial appointment: status=%d data=%s", status, resp.Data)
	}

	status, resp = doJSON(t, app, fiber.MethodPost, base, fiber.Map{
		"buyerId": "user2",
		"date":    when.Format("2006-01-02"),
		"time":    when.Format("15:04"),
		"place":   "Mangwon station exit 2",
	})
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("schedule: status=%d resp=%+v", status, resp)
	}
	var appt struct {
		ID       string `json:"id"`
		BuyerID  string `json:"buyerId"`
		SellerID string `json:"sellerId"`
	}
	if err := json.Unmarshal(resp.Data, &appt); err != nil {
		t.Fatalf("parse appointment: %v", err)
	}
	if appt.BuyerID != "user2" || appt.SellerID != "user1" {
		t.Fatalf("appointment = %+v", appt)
	}

	// The listing flips to Reserved.
	_, resp = doJSON(t, app, fiber.MethodGet, "/api/posts/"+postID, nil)
	var detail struct {
		Post struct {
			Status string `json:"status"`
		} `json:"post"`
	}
	if err := json.Unmarshal(resp.Data, &detail); err != nil {
		t.Fatalf("parse detail: %v", err)
	}
	if detail.Post.Status != "Reserved" {
		t.Fatalf("post status = %s, want Reserved", detail.Post.Status)
	}

	// Two-phase cancellation.
	if status, resp = doJSON(t, app, fiber.MethodPost, base+"/cancel-confirm", fiber.Map{"userId": "user1"}); status != http.StatusConflict {
		t.Fatalf("premature confirm: status=%d resp=%+v", status, resp)
	}
	if status, _ = doJSON(t, app, fiber.MethodPost, base+"/cancel-request", fiber.Map{"userId": "user2"}); status != http.StatusOK {
		t.Fatalf("cancel request status = %d", status)
	}
	if status, resp = doJSON(t, app, fiber.MethodPost, base+"/cancel-request", fiber.Map{"userId": "user1"}); status != http.StatusConflict || resp.Error.Code != "CONFLICT" {
		t.Fatalf("counter request: status=%d resp=%+v", status, resp)
	}
	if status, _ = doJSON(t, app, fiber.MethodPost, base+"/cancel-confirm", fiber.Map{"userId": "user1"}); status != http.StatusOK {
		t.Fatalf("confirm status = %d", status)
	}

	if status, resp = doJSON(t, app, fiber.MethodGet, base, nil); status != http.StatusOK || string(resp.Data) != "null" {
		t.Fatalf("appointment after cancel: status=%d data=%s", status, resp.Data)
	}
}

func TestScheduleValidationOverHTTP(t *testing.T) {
	app := newTestApp(t)
	postID := createTestPost(t, app)

	status, resp := doJSON(t, app, fiber.MethodPost, "/api/posts/"+postID+"/appointment", fiber.Map{
		"buyerId": "user2",
	})
	if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}

	status, resp = doJSON(t, app, fiber.MethodPost, "/api/posts/missing/appointment", fiber.Map{
		"buyerId": "user2",
		"date":    "2026-09-01",
		"time":    "18:30",
		"place":   "park",
	})
	if status != http.StatusNotFound || resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
}
