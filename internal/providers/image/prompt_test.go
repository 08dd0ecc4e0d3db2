package image

import (
	"strings"
	"testing"
)

func TestBuildRenderPromptTitleCasesSubject(t *testing.T) {
	prompt := buildRenderPrompt("omega seamaster wristwatch")
	if !strings.Contains(prompt, "Omega Seamaster Wristwatch") {
		t.Fatalf("prompt missing title-cased subject: %q", prompt)
	}
	if !strings.Contains(prompt, "exactly one") {
		t.Fatalf("prompt should request a single rendering: %q", prompt)
	}
}

func TestBuildRenderPromptFallbackSubject(t *testing.T) {
	prompt := buildRenderPrompt("   ")
	if !strings.Contains(prompt, "the item shown in the photos") {
		t.Fatalf("prompt missing fallback subject: %q", prompt)
	}
}
