package openai

import "testing"

func TestIsGPT5(t *testing.T) {
	models := map[string]bool{
		"gpt-5":             true,
		"gpt-5-mini":        true,
		" GPT-5o ":          true,
		"openai/gpt-5-mini": true,
		"gpt-4o":            false,
		"openai/gpt-4o":     false,
		"gpt-4.1-nano":      false,
		"":                  false,
	}
	for model, want := range models {
		if got := isGPT5(model); got != want {
			t.Errorf("isGPT5(%q) = %v, want %v", model, got, want)
		}
	}
}
