package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/provider"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func setupRouterTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := models.OpenDB("sqlite", dsn, models.DBPoolConfig{MaxIdleConns: 4})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	previous := models.DB
	models.DB = db
	t.Cleanup(func() { models.DB = previous })

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.JWT.SecretKey = "router-test-secret-with-entropy"
	cfg.JWT.ExpireHours = 24
	cfg.JWT.GuestExpireHours = 1
	cfg.Security.PasswordPolicy.MinLength = 6
	cfg.Import.MaxUploadBytes = 1 << 20
	cfg.Import.SessionStore = "memory"
	cfg.CORS.AllowedOrigins = []string{"*"}

	c := provider.NewContainer(cfg)
	t.Cleanup(c.Hub.Close)
	return SetupRouter(cfg, c), c
}

func mustRegister(t *testing.T, c *provider.Container, username, role string) {
	t.Helper()
	if _, err := c.UserService.Register(service.RegisterInput{Username: username, Password: "secret123", Role: role}); err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body []byte, contentType string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s unmarshal failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload interface{}) envelope {
	t.Helper()
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	return doRequest(t, r, method, path, token, body, "application/json")
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"secret123"}}
	resp := doRequest(t, r, http.MethodPost, "/api/auth/login", "", []byte(form.Encode()), "application/x-www-form-urlencoded")
	if resp.StatusCode != 0 {
		t.Fatalf("login %s want status_code 0 got %d (%s)", username, resp.StatusCode, resp.Msg)
	}
	var result service.LoginResult
	if err := json.Unmarshal(resp.Data, &result); err != nil || result.AccessToken == "" {
		t.Fatalf("login %s returned no token: %v", username, err)
	}
	return result.AccessToken
}

func TestRouterRolePermissions(t *testing.T) {
	r, c := setupRouterTest(t)
	mustRegister(t, c, "admin1", "admin")
	mustRegister(t, c, "loader", "user")
	mustRegister(t, c, "watcher", "viewer")
	adminToken := login(t, r, "admin1")
	userToken := login(t, r, "loader")
	viewerToken := login(t, r, "watcher")

	if resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "loader", "password": "nope123"}); resp.StatusCode != 401 {
		t.Fatalf("bad password want 401 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/trucks", "", nil); resp.StatusCode != 401 {
		t.Fatalf("missing token want 401 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/trucks", viewerToken, nil); resp.StatusCode != 0 {
		t.Fatalf("viewer list want 0 got %d", resp.StatusCode)
	}

	truck := map[string]string{"terminal": "A", "shipping_no": "S1", "dock_code": "D1", "truck_route": "R1", "date": "2024-01-05"}
	if resp := doJSON(t, r, http.MethodPost, "/api/trucks", viewerToken, truck); resp.StatusCode != 403 {
		t.Fatalf("viewer create want 403 got %d", resp.StatusCode)
	}
	created := doJSON(t, r, http.MethodPost, "/api/trucks", userToken, truck)
	if created.StatusCode != 0 {
		t.Fatalf("user create want 0 got %d (%s)", created.StatusCode, created.Msg)
	}
	var record models.Truck
	if err := json.Unmarshal(created.Data, &record); err != nil || record.ID == "" {
		t.Fatalf("unexpected created truck: %s", string(created.Data))
	}

	if resp := doJSON(t, r, http.MethodPatch, "/api/trucks/"+record.ID+"/status", userToken, map[string]string{"status_type": "loading", "status": "Delay"}); resp.StatusCode != 0 {
		t.Fatalf("user status update want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	if resp := doJSON(t, r, http.MethodDelete, "/api/trucks/"+record.ID, userToken, nil); resp.StatusCode != 403 {
		t.Fatalf("user delete want 403 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodDelete, "/api/trucks/"+record.ID, adminToken, nil); resp.StatusCode != 0 {
		t.Fatalf("admin delete want 0 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/trucks/"+record.ID, viewerToken, nil); resp.StatusCode != 404 {
		t.Fatalf("deleted truck want 404 got %d", resp.StatusCode)
	}

	if resp := doJSON(t, r, http.MethodGet, "/api/trucks?date_from=01-01-2024", viewerToken, nil); resp.StatusCode != 400 {
		t.Fatalf("bad date_from want 400 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/users", userToken, nil); resp.StatusCode != 403 {
		t.Fatalf("user list users want 403 got %d", resp.StatusCode)
	}
	register := map[string]string{"username": "loader", "password": "secret123", "role": "user"}
	if resp := doJSON(t, r, http.MethodPost, "/api/auth/register", adminToken, register); resp.StatusCode != 400 {
		t.Fatalf("duplicate username want 400 got %d", resp.StatusCode)
	}

	guest := doJSON(t, r, http.MethodPost, "/api/auth/guest-login", "", nil)
	var guestResult service.LoginResult
	if err := json.Unmarshal(guest.Data, &guestResult); err != nil || !guestResult.IsGuest {
		t.Fatalf("unexpected guest login: %s", string(guest.Data))
	}
	if resp := doJSON(t, r, http.MethodGet, "/api/stats", guestResult.AccessToken, nil); resp.StatusCode != 0 {
		t.Fatalf("guest stats want 0 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/trucks/import/confirm", guestResult.AccessToken, map[string]string{"session_id": "x"}); resp.StatusCode != 403 {
		t.Fatalf("guest confirm want 403 got %d", resp.StatusCode)
	}
}

func januaryWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Month", "Terminal", "Shipping No", "Dock Code", "Route", "Prep Start", "Status Prep"},
		{"2024-01", "A", "SHP-1", "D1", "R1", "08:00", "Delay"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row failed: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook failed: %v", err)
	}
	return buf.Bytes()
}

func uploadPreview(t *testing.T, r *gin.Engine, token, filename string, content []byte) envelope {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	_, _ = part.Write(content)
	_ = writer.Close()
	return doRequest(t, r, http.MethodPost, "/api/trucks/import/preview", token, body.Bytes(), writer.FormDataContentType())
}

func TestRouterImportFlow(t *testing.T) {
	r, c := setupRouterTest(t)
	mustRegister(t, c, "loader", "user")
	mustRegister(t, c, "other", "user")
	token := login(t, r, "loader")
	otherToken := login(t, r, "other")

	if resp := uploadPreview(t, r, token, "trucks.csv", []byte("a,b")); resp.StatusCode != 400 {
		t.Fatalf("csv upload want 400 got %d", resp.StatusCode)
	}

	preview := uploadPreview(t, r, token, "january.xlsx", januaryWorkbook(t))
	if preview.StatusCode != 0 {
		t.Fatalf("preview want 0 got %d (%s)", preview.StatusCode, preview.Msg)
	}
	var previewData struct {
		SessionID            string `json:"session_id"`
		TotalRecordsToCreate int    `json:"total_records_to_create"`
		Message              string `json:"message"`
	}
	if err := json.Unmarshal(preview.Data, &previewData); err != nil {
		t.Fatalf("unmarshal preview failed: %v", err)
	}
	if previewData.SessionID == "" || previewData.TotalRecordsToCreate != 31 || !strings.Contains(previewData.Message, "31") {
		t.Fatalf("unexpected preview: %+v", previewData)
	}

	if resp := doJSON(t, r, http.MethodPost, "/api/trucks/import/confirm", otherToken, map[string]string{"session_id": previewData.SessionID}); resp.StatusCode != 403 {
		t.Fatalf("foreign confirm want 403 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/trucks/import/confirm", token, map[string]string{}); resp.StatusCode != 400 {
		t.Fatalf("missing session id want 400 got %d", resp.StatusCode)
	}

	confirm := doJSON(t, r, http.MethodPost, "/api/trucks/import/confirm", token, map[string]string{"session_id": previewData.SessionID})
	if confirm.StatusCode != 0 {
		t.Fatalf("confirm want 0 got %d (%s)", confirm.StatusCode, confirm.Msg)
	}
	var summary service.ConfirmResult
	if err := json.Unmarshal(confirm.Data, &summary); err != nil {
		t.Fatalf("unmarshal confirm failed: %v", err)
	}
	if summary.Created != 31 || summary.Imported != 31 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if resp := doJSON(t, r, http.MethodPost, "/api/trucks/import/confirm", token, map[string]string{"session_id": previewData.SessionID}); resp.StatusCode != 404 {
		t.Fatalf("reused session want 404 got %d", resp.StatusCode)
	}

	list := doJSON(t, r, http.MethodGet, "/api/trucks?terminal=A&date_from=2024-01-10&date_to=2024-01-12", token, nil)
	if list.StatusCode != 0 || list.Pagination.Total != 3 {
		t.Fatalf("want 3 trucks in range got status=%d total=%d", list.StatusCode, list.Pagination.Total)
	}

	logs := doJSON(t, r, http.MethodGet, "/api/imports", token, nil)
	if logs.StatusCode != 0 || logs.Pagination.Total != 1 {
		t.Fatalf("want 1 import log got status=%d total=%d", logs.StatusCode, logs.Pagination.Total)
	}
	if others := doJSON(t, r, http.MethodGet, "/api/imports", otherToken, nil); others.Pagination.Total != 0 {
		t.Fatalf("other user must not see foreign import logs, got %d", others.Pagination.Total)
	}
}

func TestRouterTemplateAndExport(t *testing.T) {
	r, c := setupRouterTest(t)
	mustRegister(t, c, "watcher", "viewer")
	token := login(t, r, "watcher")

	for _, path := range []string{"/api/trucks/template", "/api/trucks/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
			t.Fatalf("%s want xlsx content type got %q body=%s", path, ct, w.Body.String())
		}
		if _, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes())); err != nil {
			t.Fatalf("%s returned unreadable workbook: %v", path, err)
		}
	}
}

func TestRouterHealth(t *testing.T) {
	r, _ := setupRouterTest(t)
	resp := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"total_trucks":0`) || !strings.Contains(string(resp.Data), `"redis":"disabled"`) {
		t.Fatalf("unexpected health response: %d %s", resp.StatusCode, string(resp.Data))
	}
}

func TestRouterAuthzPolicies(t *testing.T) {
	r, c := setupRouterTest(t)
	mustRegister(t, c, "admin1", "admin")
	mustRegister(t, c, "watcher", "viewer")
	adminToken := login(t, r, "admin1")
	viewerToken := login(t, r, "watcher")

	if resp := doJSON(t, r, http.MethodGet, "/api/authz/roles", viewerToken, nil); resp.StatusCode != 403 {
		t.Fatalf("viewer list roles want 403 got %d", resp.StatusCode)
	}
	resp := doJSON(t, r, http.MethodGet, "/api/authz/roles", adminToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("admin list roles want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var roles []struct {
		Role      string   `json:"role"`
		Inherits  []string `json:"inherits"`
		Effective []struct {
			Object string `json:"object"`
			Action string `json:"action"`
		} `json:"effective"`
	}
	if err := json.Unmarshal(resp.Data, &roles); err != nil || len(roles) != 3 || roles[0].Role != "role:admin" {
		t.Fatalf("unexpected roles: %s err=%v", string(resp.Data), err)
	}
	if strings.Join(roles[0].Inherits, ",") != "role:user,role:viewer" {
		t.Fatalf("want admin to inherit user and viewer got %v", roles[0].Inherits)
	}
	inheritsExport := false
	for _, policy := range roles[0].Effective {
		if policy.Object == "/trucks/export" && policy.Action == "GET" {
			inheritsExport = true
		}
	}
	if !inheritsExport {
		t.Fatalf("want admin effective policies to include viewer export")
	}

	truck := map[string]string{"terminal": "A", "shipping_no": "S1", "dock_code": "D1", "truck_route": "R1"}
	if resp := doJSON(t, r, http.MethodPost, "/api/trucks", viewerToken, truck); resp.StatusCode != 403 {
		t.Fatalf("viewer create before grant want 403 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/authz/roles/viewer/policies", adminToken, map[string]string{"object": "/api/trucks", "action": "TRACE"}); resp.StatusCode != 400 {
		t.Fatalf("unsupported action want 400 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/authz/roles/dispatcher/policies", adminToken, map[string]string{"object": "/api/trucks", "action": "post"}); resp.StatusCode != 400 {
		t.Fatalf("unknown role want 400 got %d", resp.StatusCode)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/authz/roles/viewer/policies", adminToken, map[string]string{"object": "/api/trucks", "action": "post"}); resp.StatusCode != 0 {
		t.Fatalf("grant want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	if resp := doJSON(t, r, http.MethodPost, "/api/trucks", viewerToken, truck); resp.StatusCode != 0 {
		t.Fatalf("viewer create after grant want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
}
