package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newsbrief/newsbrief/global"
)

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func getHealth(t *testing.T) (int, healthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	c := testContext(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	Health(c)

	var body healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	return w.Code, body
}

func TestHealth(t *testing.T) {
	setupGlobals(t)

	code, body := getHealth(t)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.Status != "ok" || body.Database != "ok" || body.Redis != "ok" {
		t.Errorf("expected all subsystems ok, got %+v", body)
	}
	if body.Service != "newsbrief" {
		t.Errorf("expected the configured service name, got %q", body.Service)
	}
}

func TestHealthDegradedWhenRedisDown(t *testing.T) {
	mr := setupGlobals(t)
	mr.SetError("simulated outage")

	code, body := getHealth(t)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if body.Status != "degraded" || body.Redis != "unreachable" {
		t.Errorf("expected a degraded redis report, got %+v", body)
	}
	if body.Database != "ok" {
		t.Errorf("database must still report ok, got %+v", body)
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	setupGlobals(t)
	sqlDB, err := global.DB.DB()
	if err != nil {
		t.Fatalf("unwrapping db: %v", err)
	}
	sqlDB.Close()

	code, body := getHealth(t)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if body.Status != "degraded" || body.Database != "unreachable" {
		t.Errorf("expected a degraded database report, got %+v", body)
	}
}
