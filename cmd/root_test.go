package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	want := map[string]bool{
		"serve":   false,
		"migrate": false,
		"version": false,
	}
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
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"version"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestServeCommandHasAddrFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	if flag == nil {
		t.Fatal("serve command missing --addr flag")
	}
	if !strings.Contains(flag.Usage, "listen address") {
		t.Errorf("unexpected usage text %q", flag.Usage)
	}
}
