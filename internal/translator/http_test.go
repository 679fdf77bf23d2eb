package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMyMemoryService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("langpair"); got != "en|fr" {
			t.Errorf("expected langpair en|fr, got %q", got)
		}
		if got := r.URL.Query().Get("de"); got != "me@example.com" {
			t.Errorf("expected email param, got %q", got)
		}
		w.Write([]byte(`{"responseData":{"translatedText":"Bonjour","match":0.98},"responseStatus":200,"responseDetails":""}`))
	}))
	defer server.Close()

	svc := &MyMemoryService{email: "me@example.com", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", result.TranslatedText)
	}
	if result.Confidence != 0.98 {
		t.Errorf("expected confidence 0.98, got %v", result.Confidence)
	}
}

func TestMyMemoryService_Translate_InvalidLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":"","match":0},"responseStatus":"403","responseDetails":"'ZZ' IS AN INVALID TARGET LANGUAGE . EXAMPLE: LANGPAIR=EN|IT USING 2 LETTER ISO OR RFC3066 LIKE ZH-CN. ALMOST ALL LANGUAGES SUPPORTED BUT SOME MAY HAVE NO CONTENT"}`))
	}))
	defer server.Close()

	svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "zz",
	})
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestMyMemoryService_Translate_SourceHint(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		hint     string
		wantPair string
	}{
		{name: "hint replaces auto", source: "auto", hint: "es", wantPair: "es|fr"},
		{name: "explicit source wins", source: "de", hint: "es", wantPair: "de|fr"},
		{name: "no hint falls back to english", source: "auto", wantPair: "en|fr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPair string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPair = r.URL.Query().Get("langpair")
				w.Write([]byte(`{"responseData":{"translatedText":"Bonjour","match":0.9},"responseStatus":200,"responseDetails":""}`))
			}))
			defer server.Close()

			svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}
			_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
				Text:       "Hola",
				SourceLang: tt.source,
				SourceHint: tt.hint,
				TargetLang: "fr",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotPair != tt.wantPair {
				t.Errorf("expected langpair %s, got %q", tt.wantPair, gotPair)
			}
		})
	}
}

func TestRequiresSourceLang(t *testing.T) {
	if !RequiresSourceLang(NewMyMemoryService("", "")) {
		t.Error("mymemory cannot detect the source language")
	}
	if RequiresSourceLang(NewGoogleWebService("")) {
		t.Error("googleweb detects the source language itself")
	}
	if RequiresSourceLang(NewSystranService("key", "")) {
		t.Error("systran detects the source language itself")
	}
}

func TestMyMemoryService_Name(t *testing.T) {
	svc := NewMyMemoryService("", "")

	if svc.Name() != "mymemory" {
		t.Errorf("expected 'mymemory', got %q", svc.Name())
	}
}

func TestSystranService_Translate_NoAPIKey(t *testing.T) {
	svc := NewSystranService("", "")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if err == nil {
		t.Error("expected error when no API key")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestSystranService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			t.Errorf("missing API key header")
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["source"]; ok {
			t.Error("source should be omitted for auto detection")
		}
		w.Write([]byte(`{"outputs":[{"output":"Hola"}]}`))
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "auto",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Hola" {
		t.Errorf("expected 'Hola', got %q", result.TranslatedText)
	}
}

func TestSystranService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if errors.Is(err, ErrUnsupportedLanguage) {
		t.Error("403 should not be reported as unsupported language")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestSystranService_IsAvailable(t *testing.T) {
	if err := NewSystranService("", "").IsAvailable(context.Background()); err == nil {
		t.Error("expected error when no API key")
	}
	if err := NewSystranService("test-key", "").IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaTranslator_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"response": "Привіт",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.TranslatedText != "Привіт" {
		t.Errorf("expected 'Привіт', got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != "llama3.2" {
		t.Errorf("expected model in metadata, got %v", result.Metadata)
	}
}

func TestOllamaTranslator_Translate_ProtectsMarkupAndGlossary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)

		prompt := req["prompt"].(string)
		if strings.Contains(prompt, "<b>") {
			t.Errorf("markup should be protected, got prompt %q", prompt)
		}
		system := req["system"].(string)
		if !strings.Contains(system, "gateway -> шлюз") {
			t.Errorf("expected glossary in system prompt, got %q", system)
		}
		if !strings.Contains(system, "[PHn]") {
			t.Errorf("expected marker hint in system prompt, got %q", system)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{"response": "Translation: [PH0]шлюз[PH1]"})
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, models: []string{"llama3.2"}, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:          "<b>gateway</b>",
		SourceLang:    "en",
		TargetLang:    "uk",
		GlossaryTerms: map[string]string{"gateway": "шлюз"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "<b>шлюз</b>" {
		t.Errorf("expected restored markup, got %q", result.TranslatedText)
	}
}

func TestOllamaTranslator_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	})

	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestOllamaTranslator_IsAvailable_NotRunning(t *testing.T) {
	svc := &OllamaTranslator{
		baseURL: "http://localhost:19999",
		client:  &http.Client{Timeout: 100 * time.Millisecond},
	}

	err := svc.IsAvailable(context.Background())
	if err == nil {
		t.Error("expected error when Ollama not available")
	}
}

func TestOllamaTranslator_Models(t *testing.T) {
	if got := NewOllamaTranslator("", nil).Models(); len(got) != len(DefaultOllamaModels) {
		t.Errorf("expected default models, got %v", got)
	}
	if got := NewOllamaTranslator("", []string{"phi4"}).Models(); len(got) != 1 {
		t.Errorf("expected 1 model, got %v", got)
	}
}

func TestOpenRouterService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("X-Title") == "" {
			t.Errorf("missing attribution header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"\"Bonjour\""},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer server.Close()

	svc := NewOpenRouterService("test-key", server.URL, []string{"m"})

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", result.TranslatedText)
	}
	if result.Metadata["prompt_tokens"] != "12" {
		t.Errorf("expected prompt token count, got %v", result.Metadata)
	}
}

func TestOpenRouterService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	svc := NewOpenRouterService("test-key", server.URL, []string{"m"})

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		TargetLang: "fr",
	})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(result.Error, "401") {
		t.Errorf("expected status in result error, got %q", result.Error)
	}
}

func TestOpenRouterService_Translate_NoAPIKey(t *testing.T) {
	svc := NewOpenRouterService("", "", nil)

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "fr"})
	if err == nil {
		t.Error("expected error when no API key")
	}
	if svc.IsAvailable(context.Background()) == nil {
		t.Error("expected IsAvailable to fail without key")
	}
}

func TestBuildSystemPrompt_SortedGlossary(t *testing.T) {
	prompt := buildSystemPrompt("auto", "de", map[string]string{"zebra": "Zebra", "apple": "Apfel"}, false)

	if !strings.Contains(prompt, "from the detected language to de") {
		t.Errorf("expected auto source wording, got %q", prompt)
	}
	if strings.Index(prompt, "apple") > strings.Index(prompt, "zebra") {
		t.Error("expected glossary terms in sorted order")
	}
	if strings.Contains(prompt, "[PHn]") {
		t.Error("marker hint should only appear when markers exist")
	}
}
