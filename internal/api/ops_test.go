package api_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/strandhttp/strand/internal/api"
	"github.com/strandhttp/strand/internal/models"
	"github.com/strandhttp/strand/internal/services/stream/engine"
)

func TestHealthCheck(t *testing.T) {
	eng := engine.New(&models.ServerConfig{ContentWindow: 4}, nil)
	app := api.NewOpsApp(eng)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
		Checks struct {
			ActiveStreams     int64 `json:"active_streams"`
			DoubleCompletions int64 `json:"double_completions"`
		} `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding health payload: %v", err)
	}
	if payload.Status != "healthy" {
		t.Errorf("status = %q, want %q", payload.Status, "healthy")
	}
	if payload.Checks.ActiveStreams != 0 || payload.Checks.DoubleCompletions != 0 {
		t.Errorf("checks = %+v, want zeroes on an idle engine", payload.Checks)
	}
}
