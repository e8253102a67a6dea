package main

import (
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"run", "transcribe", "history"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q, got %v (err %v)", name, cmd, err)
		}
	}

	history, _, _ := root.Find([]string{"history"})
	if f := history.Flags().Lookup("limit"); f == nil || f.DefValue != "10" {
		t.Errorf("expected --limit flag with default 10")
	}
}

func TestTranscribeRejectsBadInput(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"transcribe", "https://example.com/not-youtube"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for non-YouTube input")
	}
}
