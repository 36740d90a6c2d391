package command

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell assumptions differ on windows")
	}

	e := NewExecutor(0)

	out, err := e.Execute(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestExecutor_EmptyCommand(t *testing.T) {
	e := NewExecutor(time.Second)

	if _, err := e.Execute(context.Background(), ""); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Execute(\"\") error = %v, want %v", err, ErrEmptyCommand)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell assumptions differ on windows")
	}

	e := NewExecutor(100 * time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep 5")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Execute() should time out")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error = %v, want a timeout error", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("took %v, the timeout should have cut it off", elapsed)
	}
}

func TestExecutor_FailureIncludesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell assumptions differ on windows")
	}

	e := NewExecutor(time.Second)

	_, err := e.Execute(context.Background(), "echo oops >&2; exit 1")
	if err == nil {
		t.Fatal("Execute() should fail")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("error = %v, want stderr folded in", err)
	}
}

func TestExecutor_ShellFeatures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell assumptions differ on windows")
	}

	e := NewExecutor(time.Second)

	// Commands run through the shell, so pipes and variables work.
	out, err := e.Execute(context.Background(), "printf 'a\\nb\\nc' | wc -l")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Errorf("output = %q, want 2", out)
	}
}
