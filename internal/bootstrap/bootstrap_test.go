package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/config"
	"github.com/yigit/hostelhub/internal/pkg/cache"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func (a apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func (a apiClient) expect(method, path, token string, body interface{}, wantStatus int, out interface{}) envelope {
	a.t.Helper()
	status, env := a.do(method, path, token, body)
	if status != wantStatus {
		a.t.Fatalf("%s %s: status = %d, want %d (error %+v)", method, path, status, wantStatus, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

func (a apiClient) login(username, password string) string {
	a.t.Helper()
	var resp struct {
		Token struct {
			AccessToken string `json:"accessToken"`
		} `json:"token"`
	}
	a.expect(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password},
		http.StatusOK, &resp)
	return resp.Token.AccessToken
}

func newTestAPI(t *testing.T) apiClient {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Server.AllowedOrigins = "*"
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "bootstrap-test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.Issuer = "hostelhub.test"
	cfg.Billing.SubscriptionRatePerStudent = 100
	cfg.Billing.ReceiptAttempts = 5
	cfg.Billing.UsernameAttempts = 5
	cfg.Seed.AdminUsername = "admin"
	cfg.Seed.AdminPassword = "admin-password"

	lgr := zerolog.Nop()
	ctx := context.Background()

	storage, err := SetupStorage(ctx, cfg, lgr)
	if err != nil {
		t.Fatalf("SetupStorage() error = %v", err)
	}
	t.Cleanup(storage.Close)

	deps := BuildDependencies(cfg, storage, cache.NoopRoomCache{}, lgr)
	if err := SeedDefaults(ctx, cfg, storage, lgr); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	router, err := SetupRouter(cfg, deps, lgr)
	if err != nil {
		t.Fatalf("SetupRouter() error = %v", err)
	}
	return apiClient{t: t, router: router}
}

type idOnly struct {
	ID int64 `json:"id"`
}

type roomView struct {
	ID            int64 `json:"id"`
	OccupiedBeds  int   `json:"occupiedBeds"`
	AvailableBeds int   `json:"availableBeds"`
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	api.expect(http.MethodGet, "/health", "", nil, http.StatusOK, nil)
	api.expect(http.MethodGet, "/api/v1/health", "", nil, http.StatusOK, nil)
}

func TestAdmissionLifecycle(t *testing.T) {
	api := newTestAPI(t)

	api.expect(http.MethodGet, "/api/v1/hostels", "", nil, http.StatusUnauthorized, nil)
	if status, _ := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong"}); status != http.StatusUnauthorized {
		t.Fatalf("login with wrong password: status = %d", status)
	}
	admin := api.login("admin", "admin-password")

	var hostel idOnly
	api.expect(http.MethodPost, "/api/v1/hostels", admin, map[string]string{"name": "Iqbal Hall"}, http.StatusCreated, &hostel)

	var room roomView
	api.expect(http.MethodPost, fmt.Sprintf("/api/v1/hostels/%d/rooms", hostel.ID), admin,
		map[string]interface{}{"roomNumber": "A-101", "totalBeds": 1}, http.StatusCreated, &room)

	admit := map[string]interface{}{
		"hostelId":   hostel.ID,
		"roomId":     room.ID,
		"bedNumber":  "1",
		"fullName":   "Ahmed Khan",
		"cnic":       "35202-1234567-1",
		"phone":      "+92 300 1234567",
		"monthlyFee": 15000,
	}
	var admission struct {
		Student struct {
			ID int64 `json:"id"`
		} `json:"student"`
		Username       string `json:"username"`
		InitialInvoice struct {
			ReceiptNumber string `json:"receiptNumber"`
		} `json:"initialInvoice"`
	}
	api.expect(http.MethodPost, "/api/v1/students", admin, admit, http.StatusCreated, &admission)
	if admission.Username == "" || admission.InitialInvoice.ReceiptNumber == "" {
		t.Fatalf("admission = %+v", admission)
	}

	api.expect(http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d", room.ID), admin, nil, http.StatusOK, &room)
	if room.OccupiedBeds != 1 || room.AvailableBeds != 0 {
		t.Errorf("room after admission = %+v", room)
	}

	// Second admission into the same bed
	admit["fullName"] = "Bilal Ahmed"
	admit["cnic"] = "35202-7654321-3"
	env := api.expect(http.MethodPost, "/api/v1/students", admin, admit, http.StatusConflict, nil)
	if env.Error == nil || env.Error.Code != "OCC_002" {
		t.Errorf("duplicate bed error = %+v", env.Error)
	}

	admit["cnic"] = "not-a-cnic"
	api.expect(http.MethodPost, "/api/v1/students", admin, admit, http.StatusBadRequest, nil)

	// The student logs in with the CNIC digits and sees only their own record.
	student := api.login(admission.Username, "3520212345671")
	api.expect(http.MethodGet, fmt.Sprintf("/api/v1/students/%d", admission.Student.ID), student, nil, http.StatusOK, nil)
	api.expect(http.MethodGet, fmt.Sprintf("/api/v1/students/%d/payments", admission.Student.ID), student, nil, http.StatusOK, nil)
	api.expect(http.MethodGet, "/api/v1/hostels", student, nil, http.StatusForbidden, nil)
	api.expect(http.MethodPost, "/api/v1/billing/generate", student, nil, http.StatusForbidden, nil)

	period := map[string]int{"targetMonth": 1, "targetYear": 2030}
	var run struct {
		Created int `json:"created"`
		Failed  int `json:"failed"`
	}
	api.expect(http.MethodPost, "/api/v1/billing/generate", admin, period, http.StatusOK, &run)
	if run.Created != 1 || run.Failed != 0 {
		t.Errorf("billing run = %+v", run)
	}
	env = api.expect(http.MethodPost, "/api/v1/billing/generate", admin, period, http.StatusConflict, nil)
	if env.Error == nil || env.Error.Code != "BIL_001" {
		t.Errorf("second billing run error = %+v", env.Error)
	}

	status, _ := api.do(http.MethodDelete, fmt.Sprintf("/api/v1/students/%d", admission.Student.ID), admin, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete student: status = %d", status)
	}
	api.expect(http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d", room.ID), admin, nil, http.StatusOK, &room)
	if room.OccupiedBeds != 0 {
		t.Errorf("room after departure = %+v", room)
	}
}
