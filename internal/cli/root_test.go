package cli

import (
	"sort"
	"testing"
)

// TestAllCommandsRegistered ensures every expected command is registered on
// the root cobra command tree.
func TestAllCommandsRegistered(t *testing.T) {
	root := Root()

	expected := []string{"export", "serve", "version"}

	got := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	sort.Strings(got)

	if len(got) != len(expected) {
		t.Fatalf("command count mismatch: expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("command mismatch at index %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestExportCommandOutputFlag(t *testing.T) {
	flag := exportCmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("export command is missing the output flag")
	}
	if flag.DefValue != "registry.json" {
		t.Errorf("unexpected default output path: %q", flag.DefValue)
	}
}
