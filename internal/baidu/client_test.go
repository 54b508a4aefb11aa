package baidu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/platinummonkey/folio/internal/logger"
)

func TestSign(t *testing.T) {
	// documented example: appid 2015063000000001, q apple, salt 1435660288, key 12345678
	got := Sign("2015063000000001", "apple", "1435660288", "12345678")
	if got != "f89f9594663708c1605f3d736d01d2d4" {
		t.Errorf("Sign() = %s", got)
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		lang   string
		source bool
		want   string
	}{
		{"auto", true, "auto"},
		{"", true, "auto"},
		{"ja", true, "jp"},
		{"ko", false, "kor"},
		{"fr", false, "fra"},
		{"es", false, "spa"},
		{"ar", false, "ara"},
		{"en", false, "en"},
		{"xx", true, "auto"},
		{"xx", false, "zh"},
	}
	for _, tt := range tests {
		if got := LanguageCode(tt.lang, tt.source); got != tt.want {
			t.Errorf("LanguageCode(%q, %v) = %q, want %q", tt.lang, tt.source, got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("appid", "secret", WithEndpoint(server.URL), WithLogger(logger.Nop()))
	c.salt = func() int { return 40000 }
	return c
}

func TestClient_Translate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != translatePath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if r.Form.Get("from") != "auto" || r.Form.Get("to") != "jp" {
			t.Errorf("unexpected languages: %s -> %s", r.Form.Get("from"), r.Form.Get("to"))
		}
		q := r.Form.Get("q")
		if want := Sign("appid", q, "40000", "secret"); r.Form.Get("sign") != want {
			t.Errorf("sign = %s, want %s", r.Form.Get("sign"), want)
		}
		w.Write([]byte(`{"from":"en","to":"jp","trans_result":[{"src":"hello","dst":"こんにちは"},{"src":"world","dst":"世界"}]}`))
	})

	res, err := c.Translate(context.Background(), "hello\nworld", "auto", "ja")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Text != "こんにちは\n世界" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.From != "en" {
		t.Errorf("From = %q, want detected en", res.From)
	}
}

func TestClient_TranslateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http status", http.StatusBadGateway, "", "status 502"},
		{"empty body", http.StatusOK, "  ", "empty response"},
		{"not json", http.StatusOK, "<html>", "non-JSON"},
		{"api error", http.StatusOK, `{"error_code":"54001","error_msg":"Invalid Sign"}`, "Invalid Sign"},
		{"numeric api error", http.StatusOK, `{"error_code":54003,"error_msg":"Access Limit"}`, "54003"},
		{"no result", http.StatusOK, `{"from":"en","to":"zh"}`, "no translation result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Translate(context.Background(), "hello", "en", "zh")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestClient_APIErrorType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code":"52003","error_msg":"UNAUTHORIZED USER"}`))
	})

	_, err := c.Translate(context.Background(), "hello", "en", "zh")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "52003" {
		t.Errorf("Code = %s", apiErr.Code)
	}
}

func TestClient_SuccessCodeIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code":"52000","from":"en","to":"zh","trans_result":[{"src":"a","dst":"甲"}]}`))
	})

	res, err := c.Translate(context.Background(), "a", "en", "zh")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Text != "甲" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestClient_MissingCredentials(t *testing.T) {
	c := NewClient("", "", WithLogger(logger.Nop()))
	if _, err := c.Translate(context.Background(), "x", "en", "zh"); err == nil {
		t.Error("expected credentials error")
	}
}
