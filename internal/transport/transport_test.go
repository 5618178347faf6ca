package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	for _, fingerprint := range []bool{false, true} {
		client := NewClient(Options{Service: "test", Timeout: 5 * time.Second, Fingerprint: fingerprint})

		resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("ping"))
		if err != nil {
			t.Fatalf("fingerprint=%v: request failed: %v", fingerprint, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if string(body) != "ping" {
			t.Errorf("fingerprint=%v: body = %q, want ping", fingerprint, body)
		}
	}
}

func TestInstrument_PassesThroughErrors(t *testing.T) {
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := Instrument("test", failing).RoundTrip(req); err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}
