package swml

import (
	"strings"
	"testing"

	"github.com/sharrell/surveybot/internal/config"
)

func TestBuild(t *testing.T) {
	agent := config.AgentConfig{
		Voice:           "en-US-Standard-A",
		Confidence:      0.6,
		BargeConfidence: 0.1,
		TopP:            0.3,
		Temperature:     1.0,
	}

	doc := Build(agent, "https://bot.example.com")

	if len(doc.Sections.Main) != 1 || doc.Sections.Main[0].AI == nil {
		t.Fatal("Expected a single ai verb in main")
	}

	ai := doc.Sections.Main[0].AI
	if ai.Voice != "en-US-Standard-A" {
		t.Errorf("Expected voice to come from config, got %q", ai.Voice)
	}
	if !ai.Params.SWAIGAllowSWML || !ai.Params.Conscience {
		t.Errorf("Expected swaig_allow_swml and conscience enabled, got %+v", ai.Params)
	}
	if !strings.Contains(ai.Prompt.Text, "SurveyBot") {
		t.Error("Expected prompt to name the agent")
	}

	names := make([]string, 0, len(ai.SWAIG.Functions))
	for _, fn := range ai.SWAIG.Functions {
		names = append(names, fn.Function)
		if !strings.HasPrefix(fn.WebHookURL, "https://bot.example.com/swaig/") {
			t.Errorf("Function %s has unexpected webhook URL %q", fn.Function, fn.WebHookURL)
		}
		if fn.Argument.Type != "object" || len(fn.Argument.Properties) == 0 {
			t.Errorf("Function %s has malformed argument declaration", fn.Function)
		}
	}

	want := []string{"lookup_caller", "create_caller", "question_and_answer"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d functions, got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Function %d: expected %q, got %q", i, name, names[i])
		}
	}
}
