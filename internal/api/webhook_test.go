package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sharrell/surveybot/internal/config"
	"github.com/sharrell/surveybot/internal/store"
	"github.com/sharrell/surveybot/internal/survey"
)

func newTestRouter(t *testing.T, questions ...string) chi.Router {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "survey.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	for _, text := range questions {
		if _, err := repo.AddQuestion(context.Background(), text); err != nil {
			t.Fatalf("AddQuestion failed: %v", err)
		}
	}

	cfg := &config.Config{
		Port:           "8080",
		DBPath:         "unused",
		WebhookBaseURL: "https://bot.example.com",
		Agent: config.AgentConfig{
			Voice:           "en-US-Standard-A",
			Confidence:      0.6,
			BargeConfidence: 0.1,
			TopP:            0.3,
			Temperature:     1.0,
		},
	}

	r := chi.NewRouter()
	NewHandler(survey.NewService(repo), cfg).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r chi.Router, path string, body map[string]interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := w.Result()
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, got
}

func swaigBody(phone string, args map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"caller_id_num": phone,
		"argument": map[string]interface{}{
			"parsed": []map[string]interface{}{args},
		},
	}
}

func TestLookupCallerUnknown(t *testing.T) {
	r := newTestRouter(t, "Favorite color?")

	resp, got := post(t, r, "/swaig/lookup_caller", swaigBody("+15551234567", map[string]interface{}{
		"phone_number": "+15551234567",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if got["known"] != false {
		t.Errorf("Expected known=false, got %v", got["known"])
	}
}

func TestCreateThenLookupThenAnswer(t *testing.T) {
	r := newTestRouter(t, "Favorite color?", "Favorite number?")

	resp, got := post(t, r, "/swaig/create_caller", swaigBody("+15551234567", map[string]interface{}{
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"age":          "36",
		"phone_number": "+15551234567",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Create: expected status 200, got %d (%v)", resp.StatusCode, got)
	}
	if got["question"] != "Favorite color?" {
		t.Errorf("Create: expected first question, got %v", got["question"])
	}

	resp, got = post(t, r, "/swaig/lookup_caller", swaigBody("+15551234567", map[string]interface{}{
		"phone_number": "+15551234567",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Lookup: expected status 200, got %d", resp.StatusCode)
	}
	if got["known"] != true || got["first_name"] != "Ada" || got["last_name"] != "Lovelace" {
		t.Errorf("Lookup: identity mismatch: %v", got)
	}
	if got["question"] != "Favorite color?" {
		t.Errorf("Lookup: expected outstanding question, got %v", got["question"])
	}

	resp, got = post(t, r, "/swaig/question_and_answer", swaigBody("+15551234567", map[string]interface{}{
		"question": "Favorite color?",
		"answer":   "blue",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Answer: expected status 200, got %d (%v)", resp.StatusCode, got)
	}
	if got["question"] != "Favorite number?" {
		t.Errorf("Answer: expected next question, got %v", got["question"])
	}

	resp, got = post(t, r, "/swaig/question_and_answer", swaigBody("+15551234567", map[string]interface{}{
		"question": "Favorite number?",
		"answer":   "7",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Final answer: expected status 200, got %d", resp.StatusCode)
	}
	if got["survey_complete"] != true {
		t.Errorf("Expected survey_complete=true, got %v", got)
	}
}

func TestCreateCallerDuplicateRejected(t *testing.T) {
	r := newTestRouter(t, "Favorite color?")

	args := map[string]interface{}{
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"age":          "36",
		"phone_number": "+15551234567",
	}
	if resp, _ := post(t, r, "/swaig/create_caller", swaigBody("+15551234567", args)); resp.StatusCode != http.StatusOK {
		t.Fatalf("First create: expected status 200, got %d", resp.StatusCode)
	}

	resp, got := post(t, r, "/swaig/create_caller", swaigBody("+15551234567", args))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate creation, got %d (%v)", resp.StatusCode, got)
	}
}

func TestCreateCallerValidation(t *testing.T) {
	r := newTestRouter(t, "Favorite color?")

	// Missing last name and a non-E.164 number.
	resp, _ := post(t, r, "/swaig/create_caller", swaigBody("", map[string]interface{}{
		"first_name":   "Ada",
		"age":          "36",
		"phone_number": "not-a-number",
	}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestQuestionAndAnswerStale(t *testing.T) {
	r := newTestRouter(t, "Favorite color?")

	post(t, r, "/swaig/create_caller", swaigBody("+15551234567", map[string]interface{}{
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"age":          "36",
		"phone_number": "+15551234567",
	}))
	if resp, _ := post(t, r, "/swaig/question_and_answer", swaigBody("+15551234567", map[string]interface{}{
		"question": "Favorite color?",
		"answer":   "blue",
	})); resp.StatusCode != http.StatusOK {
		t.Fatalf("Answer: expected status 200, got %d", resp.StatusCode)
	}

	// Replayed delivery after the survey is finished.
	resp, _ := post(t, r, "/swaig/question_and_answer", swaigBody("+15551234567", map[string]interface{}{
		"question": "Favorite color?",
		"answer":   "green",
	}))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for stale answer, got %d", resp.StatusCode)
	}
}

func TestQuestionAndAnswerUnknownCaller(t *testing.T) {
	r := newTestRouter(t, "Favorite color?")

	resp, _ := post(t, r, "/swaig/question_and_answer", swaigBody("+15550000000", map[string]interface{}{
		"answer": "blue",
	}))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown caller, got %d", resp.StatusCode)
	}
}

func TestDocumentDeclaresFunctions(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var doc struct {
		Sections struct {
			Main []struct {
				AI struct {
					Voice string `json:"voice"`
					SWAIG struct {
						Functions []struct {
							Function   string `json:"function"`
							WebHookURL string `json:"web_hook_url"`
						} `json:"functions"`
					} `json:"SWAIG"`
				} `json:"ai"`
			} `json:"main"`
		} `json:"sections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("Failed to decode SWML document: %v", err)
	}

	if len(doc.Sections.Main) != 1 {
		t.Fatalf("Expected one main verb, got %d", len(doc.Sections.Main))
	}
	ai := doc.Sections.Main[0].AI
	if ai.Voice != "en-US-Standard-A" {
		t.Errorf("Expected configured voice, got %q", ai.Voice)
	}
	if len(ai.SWAIG.Functions) != 3 {
		t.Fatalf("Expected 3 SWAIG functions, got %d", len(ai.SWAIG.Functions))
	}
	if ai.SWAIG.Functions[0].WebHookURL != "https://bot.example.com/swaig/lookup_caller" {
		t.Errorf("Unexpected webhook URL: %q", ai.SWAIG.Functions[0].WebHookURL)
	}
}
