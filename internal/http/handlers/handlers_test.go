package handlers_test

import (
	stdzip "archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"thumbgen/internal/adapter/repo"
	"thumbgen/internal/domain"
	"thumbgen/internal/http/handlers"
	"thumbgen/internal/http/httpapi"
	"thumbgen/internal/imagegen"
	"thumbgen/internal/infra"
	"thumbgen/internal/middleware"
)

const testSecret = "test-secret"

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}

type stubProvider struct {
	name  string
	modes []imagegen.Mode

	mu       sync.Mutex
	requests []imagegen.Request
}

func (s *stubProvider) Name() string     { return s.name }
func (s *stubProvider) Configured() bool { return true }

func (s *stubProvider) Supports(mode imagegen.Mode) bool {
	for _, m := range s.modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (s *stubProvider) Generate(_ context.Context, req imagegen.Request) (imagegen.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return imagegen.Single(imagegen.Payload{MIMEType: "image/png", Data: pngBytes}), nil
}

func (s *stubProvider) lastRequest() imagegen.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stubUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (u *stubUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, key)
	return "https://cdn.test/" + key, nil
}

type testEnv struct {
	router   http.Handler
	provider *stubProvider
	uploader *stubUploader
	history  *repo.MemoryHistoryRepository
}

func newTestEnv(t *testing.T, providers ...imagegen.Provider) *testEnv {
	t.Helper()
	stub := &stubProvider{name: "stub", modes: []imagegen.Mode{imagegen.ModeTextToImage, imagegen.ModeImageToImage}}
	if providers == nil {
		providers = []imagegen.Provider{stub}
	}
	env := &testEnv{
		provider: stub,
		uploader: &stubUploader{},
		history:  repo.NewMemoryHistoryRepository(domain.DefaultHistoryLimit),
	}
	cfg := &infra.Config{AppEnv: "test", JWTSecret: testSecret, JWTIssuer: "thumbgen", JWTTTL: time.Hour, MaxUploadBytes: 1 << 20}
	app := &handlers.App{
		Config:  cfg,
		Logger:  zerolog.Nop(),
		Users:   repo.NewMemoryUserRepository(),
		History: env.history,
		Images: imagegen.New(imagegen.Options{
			Providers: providers,
			Sleep:     func(context.Context, time.Duration) {},
		}),
		Uploader:  env.uploader,
		JWTSecret: testSecret,
	}
	env.router = httpapi.NewRouter(app, httpapi.Options{RateLimitPerMin: 1000})
	return env
}

func newToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.SignJWT(testSecret, middleware.NewClaims(userID, "", "thumbgen", time.Hour))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return token
}

func multipartRequest(t *testing.T, token string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "ref.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/thumbnails/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type generateDTO struct {
	ID        string   `json:"id"`
	Images    []string `json:"images"`
	Count     int      `json:"count"`
	Requested int      `json:"requested"`
	Mode      string   `json:"mode"`
	Prompt    string   `json:"prompt"`
	Enhanced  bool     `json:"enhanced"`
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateTextToImage(t *testing.T) {
	env := newTestEnv(t)
	token := newToken(t, "user-1")
	rec := serve(env, multipartRequest(t, token, map[string]string{
		"category": "gaming",
		"mood":     "energetic",
		"count":    "2",
	}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res generateDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Count != 2 || res.Requested != 2 || len(res.Images) != 2 {
		t.Fatalf("unexpected response %+v", res)
	}
	for _, url := range res.Images {
		if !strings.HasPrefix(url, "https://cdn.test/user-1/") || !strings.HasSuffix(url, ".png") {
			t.Fatalf("unexpected url %q", url)
		}
	}
	want := "gaming style, energetic mood, " + imagegen.QualitySuffix
	if res.Prompt != want {
		t.Fatalf("prompt = %q, want %q", res.Prompt, want)
	}
	if res.Mode != string(imagegen.ModeTextToImage) || res.Enhanced {
		t.Fatalf("unexpected mode/enhanced %+v", res)
	}
	if req := env.provider.lastRequest(); req.Reference != nil || req.Prompt != want {
		t.Fatalf("unexpected provider request %+v", req)
	}

	page, err := env.history.List(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if page.Total != 1 || page.Records[0].ID != res.ID || page.Records[0].GeneratedCount != 2 {
		t.Fatalf("unexpected history %+v", page)
	}
}

func TestGenerateInfersImageToImageFromUpload(t *testing.T) {
	env := newTestEnv(t)
	rec := serve(env, multipartRequest(t, newToken(t, "user-1"), map[string]string{"count": "1"}, pngBytes))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	req := env.provider.lastRequest()
	if req.Mode != imagegen.ModeImageToImage || req.Reference == nil || req.Reference.MIMEType != "image/png" {
		t.Fatalf("unexpected provider request %+v", req)
	}
	if !strings.Contains(req.Prompt, "preserve the key visual elements of the reference image") {
		t.Fatalf("missing preservation clause in %q", req.Prompt)
	}
	page, _ := env.history.List(context.Background(), "user-1", 10, 0)
	if ref := page.Records[0].Reference; ref == nil || ref.Filename != "ref.png" || ref.Size != len(pngBytes) {
		t.Fatalf("unexpected reference info %+v", ref)
	}
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := newToken(t, "user-1")
	tests := []struct {
		name   string
		fields map[string]string
		code   string
	}{
		{name: "empty text-to-image", fields: map[string]string{}, code: "invalid_prompt"},
		{name: "image-to-image without reference", fields: map[string]string{"mode": "image-to-image", "prompt": "x"}, code: "invalid_reference"},
		{name: "unknown mode", fields: map[string]string{"mode": "video", "prompt": "x"}, code: "bad_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(env, multipartRequest(t, token, tc.fields, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if !strings.Contains(rec.Body.String(), `"code":"`+tc.code+`"`) {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestGenerateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := serve(env, multipartRequest(t, "", map[string]string{"prompt": "cat"}, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	textOnly := &stubProvider{name: "text", modes: []imagegen.Mode{imagegen.ModeTextToImage}}
	env := newTestEnv(t, textOnly)
	rec := serve(env, multipartRequest(t, newToken(t, "user-1"), map[string]string{"mode": "image-to-image"}, pngBytes))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if len(textOnly.requests) != 0 {
		t.Fatalf("provider should not be called")
	}
}

func TestGenerateUploadFailureSkipsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.uploader.err = errors.New("bucket unavailable")
	rec := serve(env, multipartRequest(t, newToken(t, "user-1"), map[string]string{"prompt": "cat", "count": "1"}, nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	page, _ := env.history.List(context.Background(), "user-1", 10, 0)
	if page.Total != 0 {
		t.Fatalf("expected no history, got %d", page.Total)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := newToken(t, "user-1")
	for i := 0; i < 2; i++ {
		if rec := serve(env, multipartRequest(t, token, map[string]string{"prompt": "cat", "count": "1"}, nil)); rec.Code != http.StatusOK {
			t.Fatalf("generate status = %d", rec.Code)
		}
	}

	list := func() domain.HistoryPage {
		req := httptest.NewRequest(http.MethodGet, "/v1/history?limit=10", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve(env, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("list status = %d", rec.Code)
		}
		var page domain.HistoryPage
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return page
	}
	page := list()
	if page.Total != 2 || len(page.Records) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	del := httptest.NewRequest(http.MethodDelete, "/v1/history/"+page.Records[0].ID, nil)
	del.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(env, del); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	other := httptest.NewRequest(http.MethodDelete, "/v1/history/"+page.Records[1].ID, nil)
	other.Header.Set("Authorization", "Bearer "+newToken(t, "user-2"))
	if rec := serve(env, other); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if page := list(); page.Total != 1 {
		t.Fatalf("expected 1 record after delete, got %d", page.Total)
	}

	clearReq := httptest.NewRequest(http.MethodDelete, "/v1/history", nil)
	clearReq.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(env, clearReq); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if page := list(); page.Total != 0 {
		t.Fatalf("expected empty history, got %d", page.Total)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"Ana@Example.com","password":"s3cret-pass","name":"Ana"}`
	rec := serve(env, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := serve(env, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body))); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", rec.Code, http.StatusConflict)
	}

	bad := serve(env, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"wrong-pass"}`)))
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want %d", bad.Code, http.StatusUnauthorized)
	}

	rec = serve(env, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"s3cret-pass"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &auth); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if auth.Token == "" || auth.User.Email != "ana@example.com" {
		t.Fatalf("unexpected auth response %+v", auth)
	}

	me := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	me.Header.Set("Authorization", "Bearer "+auth.Token)
	rec = serve(env, me)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), auth.User.ID) {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReportsReadiness(t *testing.T) {
	textOnly := &stubProvider{name: "openai", modes: []imagegen.Mode{imagegen.ModeTextToImage}}
	env := newTestEnv(t, textOnly)
	rec := serve(env, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res struct {
		Status    string          `json:"status"`
		Ready     map[string]bool `json:"ready"`
		Providers []struct {
			Name  string `json:"name"`
			Label string `json:"label"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != "ok" || !res.Ready["text-to-image"] || res.Ready["image-to-image"] {
		t.Fatalf("unexpected readiness %+v", res)
	}
	if len(res.Providers) != 1 || res.Providers[0].Label != "Openai" {
		t.Fatalf("unexpected providers %+v", res.Providers)
	}
}

func TestGenerateZipDownload(t *testing.T) {
	env := newTestEnv(t)
	rec := serve(env, multipartRequest(t, newToken(t, "user-1"), map[string]string{
		"prompt": "retro arcade",
		"count":  "3",
		"format": "zip",
	}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Header().Get("X-Thumbnail-Count") != "3" || rec.Header().Get("X-History-ID") == "" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	zr, err := stdzip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 3 || zr.File[0].Name != "thumbnail-1.png" {
		t.Fatalf("unexpected entries %d", len(zr.File))
	}
}

type failingProvider struct {
	mu    sync.Mutex
	calls int
}

func (f *failingProvider) Name() string                { return "broken" }
func (f *failingProvider) Configured() bool            { return true }
func (f *failingProvider) Supports(imagegen.Mode) bool { return true }

func (f *failingProvider) Generate(context.Context, imagegen.Request) (imagegen.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return imagegen.Response{}, errors.New("upstream exploded")
}

func TestGenerateZeroImagesReturnsEmptyList(t *testing.T) {
	broken := &failingProvider{}
	env := newTestEnv(t, broken)
	rec := serve(env, multipartRequest(t, newToken(t, "user-1"), map[string]string{"prompt": "cat", "count": "3"}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"images":[]`) {
		t.Fatalf("expected empty images array, body = %s", rec.Body.String())
	}
	var res generateDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Requested != 3 || res.Count != 0 || res.ID != "" {
		t.Fatalf("unexpected response %+v", res)
	}
	if broken.calls != 3 {
		t.Fatalf("provider calls = %d, want 3", broken.calls)
	}
	if len(env.uploader.keys) != 0 {
		t.Fatalf("uploader called %d times, want 0", len(env.uploader.keys))
	}
	page, err := env.history.List(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("history total = %d, want 0", page.Total)
	}
}

func TestHealthConcurrentRequests(t *testing.T) {
	env := newTestEnv(t,
		&stubProvider{name: "gemini", modes: []imagegen.Mode{imagegen.ModeTextToImage, imagegen.ModeImageToImage}},
		&stubProvider{name: "openai", modes: []imagegen.Mode{imagegen.ModeTextToImage}},
		&stubProvider{name: "qwen", modes: []imagegen.Mode{imagegen.ModeTextToImage}},
	)
	var wg sync.WaitGroup
	codes := make([]int, 32)
	bodies := make([]string, 32)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := serve(env, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
			codes[i], bodies[i] = rec.Code, rec.Body.String()
		}(i)
	}
	wg.Wait()
	for i := range codes {
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d status = %d", i, codes[i])
		}
		for _, label := range []string{`"label":"Gemini"`, `"label":"Openai"`, `"label":"Qwen"`} {
			if !strings.Contains(bodies[i], label) {
				t.Fatalf("request %d missing %s in %s", i, label, bodies[i])
			}
		}
	}
}
