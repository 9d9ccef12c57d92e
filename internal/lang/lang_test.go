package lang

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFill(t *testing.T) {
	cases := []struct {
		tmpl string
		args []any
		want string
	}{
		{"You can craft {0} more. Requires {1}w.", []any{1, 100}, "You can craft 1 more. Requires 100w."},
		{" - {0} x{1}", []any{"scrap", "500 (unknown item)"}, " - scrap x500 (unknown item)"},
		{"no args {0}", nil, "no args {0}"},
		{"bad {x}", []any{1}, "bad {x}"},
		{"out of range {3}", []any{1}, "out of range {3}"},
	}
	for _, tc := range cases {
		if got := Fill(tc.tmpl, tc.args...); got != tc.want {
			t.Fatalf("Fill(%q)=%q want %q", tc.tmpl, got, tc.want)
		}
	}
}

func TestLoad_RepoOverrides(t *testing.T) {
	c, err := Load("../../configs/lang")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.Format(CraftLimitReached, "de-DE", 2); got != "Du hast dein Miner-Limit erreicht (2)." {
		t.Fatalf("de=%q", got)
	}
	// keys missing from the override fall back to English
	if got := c.Get(ScanResult, "de"); got != "Target fridges present: {0}" {
		t.Fatalf("fallback=%q", got)
	}
	if got := c.Get("No.Such.Key", "en"); got != "No.Such.Key" {
		t.Fatalf("unknown key=%q", got)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fr.yaml"), []byte("a: [b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil || c.Get(AdminWipeDone, "") != "Miner craft counts wiped." {
		t.Fatalf("c=%v err=%v", c, err)
	}
}
