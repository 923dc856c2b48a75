package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game_started", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Game has two players and is starting!" {
		t.Fatalf("game_started = %q", got)
	}

	got, err = c.Render("game_over.checkmate", map[string]string{"WinnerSide": "WHITE"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "WHITE wins by checkmate!" {
		t.Fatalf("checkmate = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestMissingTemplateData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("game_over.checkmate", map[string]string{}); err == nil {
		t.Fatalf("expected error for missing template data")
	}
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	override := "game_started: \"Both seats filled, play!\"\n"
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game_started", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Both seats filled, play!" {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their defaults.
	if got, err := c.Render("game_over.draw", nil); err != nil || got != "Game Over: Draw!" {
		t.Fatalf("default lost after override: %q err=%v", got, err)
	}
}

func TestOverridePathMissing(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing override file")
	}
}
