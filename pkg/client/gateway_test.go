package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateway_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, nil)
	gw.SetToken("T1")
	if _, err := gw.Do(context.Background(), http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "Bearer T1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer T1")
	}
}

func TestGateway_ErrorDetailMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"server detail field", http.StatusInternalServerError, `{"detail":"generation backend down"}`, "generation backend down"},
		{"server error field", http.StatusBadRequest, `{"error":"invalid payload"}`, "invalid payload"},
		{"no body", http.StatusNotFound, ``, "Not Found"},
		{"non-json body", http.StatusBadGateway, `<html>oops</html>`, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			gw := NewGateway(srv.URL, nil)
			_, err := gw.Do(context.Background(), http.MethodGet, "/x", nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Detail != tt.wantDetail {
				t.Errorf("got HTTP %d %q, want HTTP %d %q", apiErr.StatusCode, apiErr.Detail, tt.status, tt.wantDetail)
			}
			wantMsg := fmt.Sprintf("HTTP %d: %s", tt.status, tt.wantDetail)
			if apiErr.Error() != wantMsg {
				t.Errorf("Error() = %q, want %q", apiErr.Error(), wantMsg)
			}
		})
	}
}

func TestGateway_RefreshAndRetryOnce(t *testing.T) {
	var tokens []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		tokens = append(tokens, auth)
		mu.Unlock()
		if auth != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	var refreshCalls int32
	gw := NewGateway(srv.URL, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return "T2", nil
	})
	gw.SetToken("T1")

	if _, err := gw.Do(context.Background(), http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(tokens) != 2 || tokens[0] != "Bearer T1" || tokens[1] != "Bearer T2" {
		t.Errorf("request tokens = %v, want [Bearer T1, Bearer T2]", tokens)
	}
	if gw.Token() != "T2" {
		t.Errorf("stored token = %q, want T2", gw.Token())
	}
}

func TestGateway_RetryIsNeverRefreshedAgain(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var refreshCalls int32
	gw := NewGateway(srv.URL, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return "T2", nil
	})
	gw.SetToken("T1")

	_, err := gw.Do(context.Background(), http.MethodGet, "/x", nil)
	if !IsAuthError(err) {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want 1 (retry must not refresh again)", n)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("requests = %d, want 2 (original plus one retry)", n)
	}
}

func TestGateway_SingleFlightUnderConcurrent401s(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	var refreshCalls int32
	gw := NewGateway(srv.URL, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		// widen the window so both callers observe the in-flight refresh
		time.Sleep(50 * time.Millisecond)
		return "T2", nil
	})
	gw.SetToken("T1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Do(context.Background(), http.MethodGet, "/x", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d failed: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", n)
	}
}

func TestGateway_RefreshFailureFailsAllWaiters(t *testing.T) {
	var successfulRetries int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&successfulRetries, 1)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, func(ctx context.Context) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "", fmt.Errorf("refresh cookie expired")
	})
	gw.SetToken("T1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Do(context.Background(), http.MethodGet, "/x", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrAuthFailed) {
			t.Errorf("request %d err = %v, want ErrAuthFailed", i, err)
		}
	}
	if n := atomic.LoadInt32(&successfulRetries); n != 0 {
		t.Errorf("requests retried after failed refresh: %d, want 0", n)
	}
}

func TestGateway_DoWithoutRefreshPassesThrough401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refreshed := false
	gw := NewGateway(srv.URL, func(ctx context.Context) (string, error) {
		refreshed = true
		return "T2", nil
	})

	_, err := gw.DoWithoutRefresh(context.Background(), http.MethodGet, "/x", nil)
	if !IsAuthError(err) {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
	if refreshed {
		t.Error("refresh ran for a call that opted out")
	}
}

func TestGateway_LargeSuccessBodyReadInFull(t *testing.T) {
	// PDF downloads go through Do; the error-body cap must not apply to
	// success responses.
	payload := bytes.Repeat([]byte("p"), 2*maxErrorBodySize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, nil)
	data, err := gw.Do(context.Background(), http.MethodGet, "/x", nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("body length = %d, want %d", len(data), len(payload))
	}
	if !bytes.Equal(data, payload) {
		t.Error("body content does not match what the server sent")
	}
}

func TestGateway_ClosedRejectsRequests(t *testing.T) {
	gw := NewGateway("http://127.0.0.1:0", nil)
	gw.Close()
	if _, err := gw.Do(context.Background(), http.MethodGet, "/x", nil); !errors.Is(err, ErrGatewayClosed) {
		t.Errorf("err = %v, want ErrGatewayClosed", err)
	}
}
