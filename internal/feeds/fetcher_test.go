package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcherReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("1 com 10\n2 net 5\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, WithUserAgent("suffixrank-test"))
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if body != "1 com 10\n2 net 5\n" {
		t.Fatalf("Fetch returned %q", body)
	}
	if gotUA != "suffixrank-test" {
		t.Fatalf("User-Agent = %q, want suffixrank-test", gotUA)
	}
}

func TestHTTPFetcherNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("StatusCode = %d, want 503", te.StatusCode)
	}
	if !strings.Contains(err.Error(), "gone fishing") {
		t.Fatalf("error %q does not include body excerpt", err)
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(50 * time.Millisecond)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !IsTransportError(err) {
		t.Fatalf("expected transport error on timeout, got %v", err)
	}
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), url)
	if !IsTransportError(err) {
		t.Fatalf("expected transport error for closed server, got %v", err)
	}
}

func TestHTTPFetcherRejectsOversizedBody(t *testing.T) {
	feed := "1 .com 10\n2 .xyz 1000\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(time.Second, WithMaxBytes(int64(len(feed)-3))).Fetch(context.Background(), srv.URL)
	if !IsTransportError(err) {
		t.Fatalf("expected transport error for oversized body, got %v", err)
	}
	if body != "" {
		t.Fatalf("body = %q, want empty on error", body)
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("error %q does not mention the size cap", err)
	}
}

func TestHTTPFetcherAcceptsBodyAtCap(t *testing.T) {
	feed := strings.Repeat("a", 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(time.Second, WithMaxBytes(16)).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if body != feed {
		t.Fatalf("body = %q, want %q", body, feed)
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a\nb\n", []string{"a", "b"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"a\rb\r", []string{"a", "b"}},
		{"a\r\rb", []string{"a", "", "b"}},
		{"a\vb\fc", []string{"a", "b", "c"}},
		{"a\x1cb\x1dc\x1ed", []string{"a", "b", "c", "d"}},
		{"a\u0085b\u2028c\u2029", []string{"a", "b", "c"}},
		{"\n", []string{""}},
		{"пример\nрф", []string{"пример", "рф"}},
	}

	for _, tc := range cases {
		if got := SplitLines(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
