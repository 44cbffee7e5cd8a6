package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// ExecContext carries the resolved external tool paths and the environment
// subprocesses run with. It is built once at startup and never mutated, so
// strategies share it without synchronization and nothing touches the
// process-wide environment.
type ExecContext struct {
	// Resolved binary paths; empty when the tool is not installed.
	Prefetch    string
	FasterqDump string
	FastqDump   string
	Amalgkit    string
	Rscript     string

	// Env is the complete subprocess environment.
	Env []string
	// Dir is the working directory for subprocesses; empty inherits ours.
	Dir string
}

// NewExecContext resolves tool binaries from PATH. amalgkitPath overrides
// lookup for the pipeline tool (it defaults to "amalgkit"); binDir, when
// set, is prepended to the subprocess PATH so bundled helper binaries
// resolve first.
func NewExecContext(amalgkitPath, binDir string) *ExecContext {
	env := os.Environ()
	if binDir != "" {
		env = append(env, "PATH="+binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		env = deduplicateEnv(env)
	}

	e := &ExecContext{Env: env}
	e.Prefetch = lookPath("prefetch")
	e.FasterqDump = lookPath("fasterq-dump")
	e.FastqDump = lookPath("fastq-dump")
	e.Rscript = lookPath("Rscript")

	if amalgkitPath == "" {
		amalgkitPath = "amalgkit"
	}
	if strings.ContainsRune(amalgkitPath, os.PathSeparator) {
		if _, err := os.Stat(amalgkitPath); err == nil {
			e.Amalgkit = amalgkitPath
		}
	} else {
		e.Amalgkit = lookPathName(amalgkitPath)
	}
	return e
}

func lookPath(name string) string { return lookPathName(name) }

func lookPathName(name string) string {
	p, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return p
}

// CmdResult is the result of one subprocess invocation.
type CmdResult struct {
	// ExitCode is the process exit code; -1 when it cannot be determined.
	ExitCode int
	// Output is the combined stdout+stderr.
	Output string
}

// Run executes bin with args, capturing combined output and extracting the
// exit code. A non-zero exit is reported through CmdResult, not the error;
// the error is reserved for failures to launch at all.
func (e *ExecContext) Run(ctx context.Context, bin string, args ...string) (*CmdResult, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = e.Env
	cmd.Dir = e.Dir

	out, err := cmd.CombinedOutput()
	result := &CmdResult{Output: string(out)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				result.ExitCode = status.ExitStatus()
			} else {
				result.ExitCode = -1
			}
			return result, nil
		}
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	return result, nil
}

// Stream executes bin with args, invoking onLine for every line of combined
// output as it arrives, and returns the exit code. Used for long-running
// tools whose salient log lines must be surfaced live.
func (e *ExecContext) Stream(ctx context.Context, onLine func(string), bin string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = e.Env
	cmd.Dir = e.Dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return -1, fmt.Errorf("start %s: %w", bin, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLine(scanner.Text())
		}
	}()

	err := cmd.Wait()
	_ = pw.Close()
	<-done
	_ = pr.Close()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				return status.ExitStatus(), nil
			}
			return -1, nil
		}
		return -1, fmt.Errorf("wait %s: %w", bin, err)
	}
	return 0, nil
}

// deduplicateEnv keeps the last occurrence of each env var key.
// This ensures appended values (PATH) win over inherited duplicates
// from os.Environ().
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
