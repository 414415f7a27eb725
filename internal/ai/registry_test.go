package ai

import (
	"context"
	"strings"
	"testing"
)

func testSettings() Settings {
	return Settings{
		OllamaBaseURL:    "http://ollama:11434",
		OllamaModel:      "llama3:latest",
		OpenRouterAPIKey: "sk-test",
		OpenRouterModel:  "deepseek/deepseek-chat",
	}
}

func TestRegistryGet_EmptyNameResolvesToOllamaDefault(t *testing.T) {
	reg := NewRegistry(testSettings())

	p, err := reg.Get(context.Background(), "", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ollama, ok := p.(*OllamaProvider)
	if !ok {
		t.Fatalf("got %T, want *OllamaProvider", p)
	}
	if ollama.Model != "llama3:latest" {
		t.Fatalf("model = %q, want configured default", ollama.Model)
	}
	if ollama.BaseURL != "http://ollama:11434" {
		t.Fatalf("base url = %q", ollama.BaseURL)
	}
}

func TestRegistryGet_ExplicitModelOverridesDefault(t *testing.T) {
	reg := NewRegistry(testSettings())

	p, err := reg.Get(context.Background(), "ollama", "mistral:7b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m := p.(*OllamaProvider).Model; m != "mistral:7b" {
		t.Fatalf("model = %q, want override", m)
	}
}

func TestRegistryGet_NameIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(testSettings())

	p, err := reg.Get(context.Background(), " OpenRouter ", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	or, ok := p.(*OpenRouterProvider)
	if !ok {
		t.Fatalf("got %T, want *OpenRouterProvider", p)
	}
	if or.Model != "deepseek/deepseek-chat" {
		t.Fatalf("model = %q, want configured default", or.Model)
	}
}

func TestRegistryGet_UnknownProviderListsKnown(t *testing.T) {
	reg := NewRegistry(testSettings())

	_, err := reg.Get(context.Background(), "gemini", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ollama") || !strings.Contains(err.Error(), "openrouter") {
		t.Fatalf("error does not list known providers: %v", err)
	}
}

func TestRegistryGet_OpenRouterWithoutKeyFails(t *testing.T) {
	s := testSettings()
	s.OpenRouterAPIKey = ""
	reg := NewRegistry(s)

	if _, err := reg.Get(context.Background(), "openrouter", ""); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
