package basehdl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantHealth string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name: "all dependencies ok",
			checks: map[string]HealthCheck{
				"database": func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"database": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/system/health", NewSystemHandler(tt.checks).HandleHealth)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/system/health", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body struct {
				Data struct {
					Status   string            `json:"status"`
					Services map[string]string `json:"services"`
				} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantHealth, body.Data.Status)
			assert.Equal(t, "ok", body.Data.Services["api"])
		})
	}
}

func TestValidateInput(t *testing.T) {
	type input struct {
		Text string `json:"text" validate:"required,max=5"`
	}
	h := NewBaseHandler()
	assert.NoError(t, h.ValidateInput(&input{Text: "hi"}))
	assert.Error(t, h.ValidateInput(&input{}))
	assert.Error(t, h.ValidateInput(&input{Text: "too long"}))
}
