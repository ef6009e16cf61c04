package services_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"workbench/internal/services"
)

func TestCommandExecutorStreamsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var lines []string
	err := services.CommandExecutor{}.Run(context.Background(), "sh", []string{"-c", "echo one; echo two 1>&2"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	joined := strings.Join(lines, ",")
	if !strings.Contains(joined, "one") || !strings.Contains(joined, "two") {
		t.Fatalf("expected both streams, got %q", joined)
	}
}

func TestCommandExecutorReportsOutputTail(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := services.CommandExecutor{}.Run(context.Background(), "sh", []string{"-c", "echo broken input 1>&2; exit 3"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "broken input") {
		t.Fatalf("expected output tail in error, got %v", err)
	}
}
