package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resume-tailor/internal/adapter/repository"
	"resume-tailor/internal/auth"
	"resume-tailor/internal/domain"
	"resume-tailor/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type testRenderer struct{}

func (testRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

type testEnv struct {
	app   *fiber.App
	store *repository.MemoryStore
	uid   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	uid := uuid.New()
	err := store.SaveUser(context.Background(), &domain.User{
		ID:             uid,
		Email:          "dev@example.com",
		PasswordDigest: auth.HashToken("hunter2"),
		Profile:        map[string]interface{}{"meta": map[string]interface{}{"name": "Ada"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	tplDir := t.TempDir()
	tpl := `<html><body>{{with .meta}}{{.name}}{{end}}</body></html>`
	if err := os.WriteFile(filepath.Join(tplDir, "resume.html.tmpl"), []byte(tpl), 0o644); err != nil {
		t.Fatal(err)
	}

	authSvc := auth.NewService(store, store, 15*time.Minute, 7*24*time.Hour)
	processor := usecase.NewProcessor(store, store, nil, testRenderer{}, tplDir, nil)

	app := fiber.New()
	h := NewHandler(authSvc, processor, store, store, 7*24*time.Hour, nil)
	h.Register(app)

	return &testEnv{app: app, store: store, uid: uid}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, resp, &out)
	if out.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", out.TokenType)
	}
	return out.AccessToken
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["detail"] == "" {
		t.Error("expected a detail message in the error body")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/profile", "/api/v1/resumes/" + uuid.NewString()} {
		resp := env.request(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestGenerateStatusDownloadFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	resp := env.request(t, http.MethodPost, "/api/v1/resumes", token, map[string]interface{}{
		"job_description": "Senior Go engineer, distributed systems",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status = %d, want 202", resp.StatusCode)
	}
	var gen struct {
		ResumeID string `json:"resume_id"`
		Status   string `json:"status"`
	}
	decodeBody(t, resp, &gen)
	if gen.Status != "processing" {
		t.Errorf("initial status = %q, want processing", gen.Status)
	}
	if gen.ResumeID == "" {
		t.Fatal("missing resume_id")
	}

	// the job runs in the background; poll like a client would
	deadline := time.Now().Add(3 * time.Second)
	var status map[string]interface{}
	for {
		resp := env.request(t, http.MethodGet, "/api/v1/resumes/"+gen.ResumeID, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status endpoint = %d", resp.StatusCode)
		}
		decodeBody(t, resp, &status)
		if s, _ := status["status"].(string); s == "complete" || s == "error" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status: %v", status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status["status"] != "complete" {
		t.Fatalf("job ended in %v: %v", status["status"], status["error"])
	}

	dl := env.request(t, http.MethodGet, "/api/v1/resumes/"+gen.ResumeID+"/download", token, nil)
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	if ct := dl.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", ct)
	}
	pdf, _ := io.ReadAll(dl.Body)
	if len(pdf) == 0 {
		t.Error("empty PDF body")
	}
}

func TestDownloadBeforeCompleteConflicts(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	// a job that never ran stays pending
	job := &domain.ResumeJob{ID: uuid.New(), UserID: env.uid, Status: domain.JobPending}
	if err := env.store.Save(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp := env.request(t, http.MethodGet, "/api/v1/resumes/"+job.ID.String()+"/download", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestStatusHidesOtherUsersJobs(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	other := &domain.ResumeJob{ID: uuid.New(), UserID: uuid.New(), Status: domain.JobComplete}
	if err := env.store.Save(context.Background(), other); err != nil {
		t.Fatal(err)
	}

	resp := env.request(t, http.MethodGet, "/api/v1/resumes/"+other.ID.String(), token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	put := env.request(t, http.MethodPut, "/api/v1/profile", token, map[string]interface{}{
		"meta":    map[string]interface{}{"name": "Ada Lovelace"},
		"summary": "Analyst and programmer.",
	})
	if put.StatusCode != http.StatusOK {
		t.Fatalf("put profile status = %d", put.StatusCode)
	}
	put.Body.Close()

	get := env.request(t, http.MethodGet, "/api/v1/profile", token, nil)
	var profile map[string]interface{}
	decodeBody(t, get, &profile)
	if profile["summary"] != "Analyst and programmer." {
		t.Errorf("profile = %v", profile)
	}
}

func TestRefreshCookieFlow(t *testing.T) {
	env := newTestEnv(t)

	login := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "hunter2",
	})
	login.Body.Close()

	var refreshCookieVal string
	for _, c := range login.Cookies() {
		if c.Name == refreshCookie {
			refreshCookieVal = c.Value
			if !c.HttpOnly {
				t.Error("refresh cookie should be HTTP-only")
			}
		}
	}
	if refreshCookieVal == "" {
		t.Fatal("login did not set a refresh cookie")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: refreshCookieVal})
	resp, err := env.app.Test(req, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, resp, &out)
	if out.AccessToken == "" {
		t.Fatal("refresh did not issue an access token")
	}

	// the rotated-out cookie is now dead
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req2.AddCookie(&http.Cookie{Name: refreshCookie, Value: refreshCookieVal})
	resp2, err := env.app.Test(req2, 5000)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("reused cookie status = %d, want 401", resp2.StatusCode)
	}
}
