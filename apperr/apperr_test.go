package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:    fiber.StatusBadRequest,
		KindConflict:      fiber.StatusBadRequest,
		KindNotFound:      fiber.StatusNotFound,
		KindAuthorization: fiber.StatusForbidden,
		KindInternal:      fiber.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s.Status() = %d, want %d", kind, got, want)
		}
	}
}

func TestKindOfUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", Conflict("Schedule already taken"))
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("KindOf = %s, want conflict", KindOf(wrapped))
	}
	if !Is(wrapped, KindConflict) || Is(wrapped, KindNotFound) {
		t.Fatal("Is disagrees with KindOf")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("foreign errors should be internal")
	}
}

func respond(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return Respond(c, err) })
	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if testErr != nil {
		t.Fatalf("request: %v", testErr)
	}
	raw, _ := io.ReadAll(resp.Body)
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return resp.StatusCode, body
}

func TestRespondMergesDetails(t *testing.T) {
	status, body := respond(t, Validation("Weekly schedule limit reached").With("limit", 5))
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if body["error"] != "Weekly schedule limit reached" || body["limit"] != float64(5) {
		t.Fatalf("body = %v", body)
	}
}

func TestRespondHidesInternalCause(t *testing.T) {
	status, body := respond(t, errors.New("pq: connection refused"))
	if status != fiber.StatusInternalServerError {
		t.Fatalf("status = %d", status)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("body = %v", body)
	}
}
