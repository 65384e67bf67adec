package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFetchEntries_EmbeddedPayload(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("A\nB\nA"))
	got, err := FetchEntries(context.Background(), "data:text/plain;base64,"+payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"A", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("entries=%v, want=%v", got, want)
	}
}

func TestFetchEntries_EmbeddedNoNetwork(t *testing.T) {
	// A data: reference must decode locally; a context that is already
	// canceled would fail any network call.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := base64.StdEncoding.EncodeToString([]byte("X"))
	got, err := FetchEntries(ctx, "data:text/plain;base64,"+payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "X" {
		t.Fatalf("entries=%v, want=[X]", got)
	}
}

func TestFetchEntries_EmbeddedDecodeFailure(t *testing.T) {
	_, err := FetchEntries(context.Background(), "data:text/plain;base64,!!!not-base64!!!")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.AppError.Code != "DECODE_FAILED" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "DECODE_FAILED")
	}
}

func TestFetchEntries_EmbeddedMissingComma(t *testing.T) {
	_, err := FetchEntries(context.Background(), "data:text/plain;base64")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.AppError.Code != "DECODE_FAILED" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "DECODE_FAILED")
	}
}

func TestFetchEntries_PlainAndBase64Agree(t *testing.T) {
	const body = "node-1\n\n  \nnode-2\r\nnode-3\n"

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer plain.Close()

	encoded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(body))))
	}))
	defer encoded.Close()

	fromPlain, err := FetchEntries(context.Background(), plain.URL)
	if err != nil {
		t.Fatalf("plain fetch: %v", err)
	}
	fromEncoded, err := FetchEntries(context.Background(), encoded.URL)
	if err != nil {
		t.Fatalf("encoded fetch: %v", err)
	}

	want := []string{"node-1", "node-2", "node-3"}
	if !reflect.DeepEqual(fromPlain, want) {
		t.Fatalf("plain entries=%v, want=%v", fromPlain, want)
	}
	if !reflect.DeepEqual(fromEncoded, fromPlain) {
		t.Fatalf("encoded entries=%v, plain entries=%v; must be identical", fromEncoded, fromPlain)
	}
}

func TestFetchEntries_UserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("n1\n"))
	}))
	defer ts.Close()

	if _, err := FetchEntries(context.Background(), ts.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("user-agent=%q, want=%q", gotUA, DefaultUserAgent)
	}
}

func TestFetchEntries_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := FetchEntries(context.Background(), ts.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusBadGateway {
		t.Fatalf("status=%d, want=%d", fe.Status, http.StatusBadGateway)
	}
	if fe.AppError.Code != "FETCH_FAILED" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "FETCH_FAILED")
	}
}

func TestFetchEntries_UnsupportedScheme(t *testing.T) {
	_, err := FetchEntries(context.Background(), "file:///etc/passwd")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusBadRequest {
		t.Fatalf("status=%d, want=%d", fe.Status, http.StatusBadRequest)
	}
	if fe.AppError.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "INVALID_ARGUMENT")
	}
}

func TestFetchEntries_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	_, err := FetchEntriesWithOptions(context.Background(), ts.URL, Options{Timeout: 50 * time.Millisecond})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.AppError.Code != "FETCH_TIMEOUT" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "FETCH_TIMEOUT")
	}
}

func TestFetchEntries_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer ts.Close()

	_, err := FetchEntriesWithOptions(context.Background(), ts.URL, Options{MaxBytes: 10})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.AppError.Code != "TOO_LARGE" {
		t.Fatalf("code=%q, want=%q", fe.AppError.Code, "TOO_LARGE")
	}
}

func TestFetchEntries_EmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	got, err := FetchEntries(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("entries=%v, want empty", got)
	}
}
