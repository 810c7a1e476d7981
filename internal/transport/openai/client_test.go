package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
	"github.com/kailas-cloud/jewelmatch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// chatRequest is the subset of the chat completion request the tests inspect.
type chatRequest struct {
	Model          string   `json:"model"`
	MaxTokens      int      `json:"max_tokens"`
	Stop           []string `json:"stop"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"error": map[string]any{"message": msg, "type": "error"},
	})
}

// chatServer answers /chat/completions with handler and records every request.
func chatServer(t *testing.T, handler func(n int32, req chatRequest, w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handler(atomic.AddInt32(&calls, 1), req, w)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func imageServer(t *testing.T, contentType string, body []byte, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		w.Write(body) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *Client {
	return NewClient(&Config{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		CaptionModel:    "vision-model",
		ExtractionModel: "extract-model",
		KeywordModel:    "keyword-model",
		Timeout:         2 * time.Second,
		CaptionAttempts: 3,
		CaptionBackoff:  time.Millisecond,
		ImageTimeout:    2 * time.Second,
		DefaultMaterial: "Sterling Silver",
		Logger:          zap.NewNop(),
	})
}

func TestCaption_SendsImageAsDataURL(t *testing.T) {
	img := imageServer(t, "image/png", pngBytes, http.StatusOK)
	server, calls := chatServer(t, func(_ int32, req chatRequest, w http.ResponseWriter) {
		if req.Model != "vision-model" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.MaxTokens != 150 {
			t.Errorf("expected max_tokens 150, got %d", req.MaxTokens)
		}
		body := string(req.Messages[0].Content)
		if !strings.Contains(body, "data:image/png;base64,") {
			t.Errorf("expected inline data url, got %s", body)
		}
		writeCompletion(w, "  A silver heart-shaped pendant with a central diamond  ")
	})

	caption, err := newTestClient(server.URL).Caption(context.Background(), img.URL+"/ring.png")
	if err != nil {
		t.Fatalf("Caption failed: %v", err)
	}
	if caption != "A silver heart-shaped pendant with a central diamond" {
		t.Errorf("unexpected caption: %q", caption)
	}
	if *calls != 1 {
		t.Errorf("expected 1 call, got %d", *calls)
	}
}

func TestCaption_RetriesThenSucceeds(t *testing.T) {
	img := imageServer(t, "image/png", pngBytes, http.StatusOK)
	server, calls := chatServer(t, func(n int32, _ chatRequest, w http.ResponseWriter) {
		switch n {
		case 1:
			writeAPIError(w, http.StatusTooManyRequests, "Rate limit reached")
		case 2:
			writeCompletion(w, "")
		default:
			writeCompletion(w, "A gold ring")
		}
	})

	caption, err := newTestClient(server.URL).Caption(context.Background(), img.URL)
	if err != nil {
		t.Fatalf("Caption failed: %v", err)
	}
	if caption != "A gold ring" {
		t.Errorf("unexpected caption: %q", caption)
	}
	if *calls != 3 {
		t.Errorf("expected 3 calls, got %d", *calls)
	}
}

func TestCaption_ExhaustsAttempts(t *testing.T) {
	img := imageServer(t, "image/png", pngBytes, http.StatusOK)
	server, calls := chatServer(t, func(_ int32, _ chatRequest, w http.ResponseWriter) {
		writeAPIError(w, http.StatusTooManyRequests, "Rate limit reached")
	})

	_, err := newTestClient(server.URL).Caption(context.Background(), img.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if *calls != 3 {
		t.Errorf("expected 3 calls, got %d", *calls)
	}
}

func TestCaption_InvalidImageIsNotRetried(t *testing.T) {
	server, calls := chatServer(t, func(_ int32, _ chatRequest, w http.ResponseWriter) {
		writeCompletion(w, "unused")
	})
	c := newTestClient(server.URL)

	tests := []struct {
		name string
		url  string
	}{
		{"bad scheme", "ftp://example.com/a.png"},
		{"not found", imageServer(t, "image/png", nil, http.StatusNotFound).URL},
		{"empty body", imageServer(t, "image/png", nil, http.StatusOK).URL},
		{"not an image", imageServer(t, "text/html", []byte("<html>nope</html>"), http.StatusOK).URL},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Caption(context.Background(), tc.url)
			if !errors.Is(err, domain.ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
	if *calls != 0 {
		t.Errorf("model must not be called for invalid images, got %d calls", *calls)
	}
}

func TestImageFetcher_SizeLimit(t *testing.T) {
	img := imageServer(t, "image/png", append(pngBytes, make([]byte, 64)...), http.StatusOK)
	f := &imageFetcher{client: http.DefaultClient, maxBytes: 32}

	_, err := f.dataURL(context.Background(), img.URL)
	if !errors.Is(err, domain.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for oversize image, got %v", err)
	}
}

func TestImageFetcher_DeclaredTypeFallback(t *testing.T) {
	img := imageServer(t, "image/webp; charset=binary", []byte("RIFF....WEBP-ish"), http.StatusOK)
	f := &imageFetcher{client: http.DefaultClient}

	got, err := f.dataURL(context.Background(), img.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/webp;base64,") {
		t.Errorf("unexpected data url prefix: %s", got[:min(len(got), 40)])
	}
}

func TestExtract_JSONMode(t *testing.T) {
	server, _ := chatServer(t, func(_ int32, req chatRequest, w http.ResponseWriter) {
		if req.Model != "extract-model" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %+v", req.ResponseFormat)
		}
		var prompt string
		if err := json.Unmarshal(req.Messages[0].Content, &prompt); err != nil {
			t.Errorf("decode prompt: %v", err)
		}
		if !strings.Contains(prompt, `"A silver heart pendant"`) {
			t.Errorf("prompt must quote the caption: %s", prompt)
		}
		writeCompletion(w, `{"jewelry_type":"Pendants","material":"","design":"Heart","categories":["heart","diamond","Heart"]}`)
	})

	q, err := newTestClient(server.URL).Extract(context.Background(), "A silver heart pendant")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if q.Type() != jewelry.Pendants {
		t.Errorf("expected Pendants, got %s", q.Type())
	}
	if q.Material() != "Sterling Silver" {
		t.Errorf("expected default material, got %q", q.Material())
	}
	if q.Design() != "heart" {
		t.Errorf("expected design heart, got %q", q.Design())
	}
	if got := strings.Join(q.Categories(), ","); got != "heart,diamond" {
		t.Errorf("unexpected categories: %s", got)
	}
}

func TestExtract_RetriesOnMalformedJSON(t *testing.T) {
	server, calls := chatServer(t, func(n int32, _ chatRequest, w http.ResponseWriter) {
		if n == 1 {
			writeCompletion(w, "I think this is a ring.")
			return
		}
		writeCompletion(w, `{"jewelry_type":"Rings","material":"Yellow Gold","design":"floral","categories":"floral"}`)
	})

	q, err := newTestClient(server.URL).Extract(context.Background(), "A gold floral ring")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if q.Type() != jewelry.Rings || q.Design() != "floral" {
		t.Errorf("unexpected query: %s", q)
	}
	if *calls != 2 {
		t.Errorf("expected 2 calls, got %d", *calls)
	}
}

func TestExtract_GivesUpAfterTwoMalformedAnswers(t *testing.T) {
	server, calls := chatServer(t, func(_ int32, _ chatRequest, w http.ResponseWriter) {
		writeCompletion(w, "no json here")
	})

	_, err := newTestClient(server.URL).Extract(context.Background(), "A ring")
	if !errors.Is(err, domain.ErrMalformedJSON) {
		t.Errorf("expected ErrMalformedJSON, got %v", err)
	}
	if *calls != extractionAttempts {
		t.Errorf("expected %d calls, got %d", extractionAttempts, *calls)
	}
}

func TestExtract_ModelErrorIsNotRetried(t *testing.T) {
	server, calls := chatServer(t, func(_ int32, _ chatRequest, w http.ResponseWriter) {
		writeAPIError(w, http.StatusInternalServerError, "model overloaded")
	})

	_, err := newTestClient(server.URL).Extract(context.Background(), "A ring")
	if !errors.Is(err, domain.ErrModelError) {
		t.Errorf("expected ErrModelError, got %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected 1 call, got %d", *calls)
	}
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		design string
		wantOK bool
	}{
		{"plain", `{"jewelry_type":"Rings","material":"Gold","design":"cross","categories":[]}`, "cross", true},
		{"fenced", "```json\n{\"jewelry_type\":\"Rings\",\"design\":\"cross\"}\n```", "cross", true},
		{"prose around", `Sure! {"jewelry_type":"Rings","design":"star"} Hope that helps.`, "star", true},
		{"missing key quote", `{jewelry_type": "Rings", design": "moon"}`, "moon", true},
		{"no object", "Rings, gold, cross", "", false},
		{"broken", `{"jewelry_type": "Rings", "design": }`, "", false},
		{"design too long", `{"design":"` + strings.Repeat("x", 65) + `"}`, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ex, err := parseExtraction(tc.raw)
			if !tc.wantOK {
				if !errors.Is(err, domain.ErrMalformedJSON) {
					t.Errorf("expected ErrMalformedJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ex.Design != tc.design {
				t.Errorf("expected design %q, got %q", tc.design, ex.Design)
			}
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{type": "x"}`, `{"type": "x"}`},
		{`{"a": 1, b_c": 2}`, `{"a": 1, "b_c": 2}`},
		{`{"ok": "value, still"}`, `{"ok": "value, still"}`},
		{`{"a": "b"}`, `{"a": "b"}`},
	}
	for _, tc := range tests {
		if got := repairJSON(tc.in); got != tc.want {
			t.Errorf("repairJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSuggestKeyword(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"Filigree.", "filigree"},
		{`"sapphire"`, "sapphire"},
		{"", ""},
		{"there is nothing else to add here", ""},
	}

	for _, tc := range tests {
		t.Run(tc.reply, func(t *testing.T) {
			server, _ := chatServer(t, func(_ int32, req chatRequest, w http.ResponseWriter) {
				if req.Model != "keyword-model" {
					t.Errorf("unexpected model: %s", req.Model)
				}
				if len(req.Stop) != 1 || req.Stop[0] != "\n" {
					t.Errorf("expected newline stop sequence, got %v", req.Stop)
				}
				var prompt string
				json.Unmarshal(req.Messages[0].Content, &prompt) //nolint:errcheck
				if !strings.Contains(prompt, "[heart, silver]") {
					t.Errorf("prompt must list excluded terms: %s", prompt)
				}
				writeCompletion(w, tc.reply)
			})

			got, err := newTestClient(server.URL).SuggestKeyword(context.Background(), "A silver heart", []string{"heart", "silver"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	server, _ := chatServer(t, func(_ int32, _ chatRequest, w http.ResponseWriter) {
		time.Sleep(200 * time.Millisecond)
		writeCompletion(w, "late")
	})
	c := newTestClient(server.URL)
	c.timeout = 20 * time.Millisecond

	_, err := c.SuggestKeyword(context.Background(), "A ring", nil)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"object":"list","data":[{"id":"vision-model","object":"model"}]}`) //nolint:errcheck
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseAPIError(t *testing.T) {
	if err := parseAPIError(context.DeadlineExceeded); !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if err := parseAPIError(errors.New("connection refused")); !errors.Is(err, domain.ErrModelError) {
		t.Errorf("expected ErrModelError, got %v", err)
	}
	if err := parseAPIError(errors.New("Rate limit exceeded")); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"bad request"}`)); got != "bad request" {
		t.Errorf("expected detail, got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty detail, got %q", got)
	}
}
