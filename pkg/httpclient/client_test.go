package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetch_SetsHeadersByClientType(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/vtt")
		w.Write([]byte("WEBVTT\n"))
	}))
	defer server.Close()

	client := NewClient(CloudflareClient, 5*time.Second)
	body, contentType, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != "WEBVTT\n" || contentType != "text/vtt" {
		t.Fatalf("Fetch = %q, %q", body, contentType)
	}
	if gotUA != "curl/8.7.1" {
		t.Fatalf("User-Agent = %q, want curl/8.7.1", gotUA)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotAcceptable)
	}))
	defer server.Close()

	client := NewClient(BrowserClient, 5*time.Second)
	if _, _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 406 response")
	}
}
