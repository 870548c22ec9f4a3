package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "version": false, "migrate": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version command: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Lantern "+AppVersion) {
		t.Errorf("output %q missing version line", got)
	}
	if !strings.Contains(got, "GEMINI_API_KEY") {
		t.Errorf("output %q missing key status", got)
	}
}
