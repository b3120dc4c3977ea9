package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func gzipped(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	const sale = `{"user_id":1,"lines":[{"medicine_id":3,"quantity":2}]}`

	tests := []struct {
		name           string
		compressBody   bool
		acceptEncoding string
		wantStatus     int
		wantEncoding   string
		wantBody       string
	}{
		{
			name:           "plain in, gzip out",
			acceptEncoding: "gzip, deflate",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "gzip",
			wantBody:       sale,
		},
		{
			name:         "plain in, plain out",
			wantStatus:   http.StatusCreated,
			wantEncoding: "",
			wantBody:     sale,
		},
		{
			name:           "gzip in, gzip out",
			compressBody:   true,
			acceptEncoding: "gzip",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "gzip",
			wantBody:       sale,
		},
		{
			name:         "gzip in, plain out",
			compressBody: true,
			wantStatus:   http.StatusCreated,
			wantEncoding: "",
			wantBody:     sale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(sale)
			if tt.compressBody {
				body = gzipped(t, sale)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/sales", body)
			req.Header.Set("Content-Type", "application/json")
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.wantStatus)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content-type: got %q", ct)
			}

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tt.wantBody {
				t.Fatalf("body %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestGzipMiddleware_MalformedRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
