package chat

import "testing"

func TestParseTheme(t *testing.T) {
	cases := map[string]Theme{"Light": ThemeLight, " dark ": ThemeDark, "DARK": ThemeDark}
	for raw, want := range cases {
		got, ok := ParseTheme(raw)
		if !ok || got != want {
			t.Fatalf("ParseTheme(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseTheme("neon"); ok {
		t.Fatal("expected neon to be rejected")
	}
}

func TestSettingsPatchApply(t *testing.T) {
	dark := "Dark"
	off := false
	on := true
	got := SettingsPatch{Theme: &dark, PenguinMode: &off, SigmaMode: &on}.Apply(DefaultSettings())

	if got.Theme != ThemeDark {
		t.Fatalf("expected dark theme, got %s", got.Theme)
	}
	if got.PenguinMode {
		t.Fatal("expected penguin mode disabled")
	}
	if !got.SigmaMode {
		t.Fatal("expected sigma mode enabled")
	}
	if got.Speak {
		t.Fatal("speak should be untouched")
	}
}

func TestSettingsPatchIgnoresUnknownTheme(t *testing.T) {
	neon := "neon"
	got := SettingsPatch{Theme: &neon}.Apply(DefaultSettings())
	if got.Theme != ThemeLight {
		t.Fatalf("expected light theme kept, got %s", got.Theme)
	}
}
