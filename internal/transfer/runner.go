// Package transfer moves the exported repository archive from the source
// server to the local working directory and drives the external
// export/import tool.
package transfer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// streamCommand runs a child process, feeding each stdout line to onLine as
// it arrives. The tool reports failures on its error stream rather than via
// exit codes, so any stderr content fails the command even on a clean exit.
func streamCommand(ctx context.Context, logger *slog.Logger, name string, args []string, onLine func(string)) error {
	// #nosec G204 -- name and args are built from configuration, not user-typed input
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		onLine(line)
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		logger.Error("Command wrote to its error stream", "command", name, "stderr", msg)
		return fmt.Errorf("%s reported errors: %s", name, msg)
	}
	if waitErr != nil {
		return fmt.Errorf("%s failed: %w", name, waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("failed to read %s output: %w", name, scanErr)
	}

	return nil
}

// runCommand runs a child process to completion, logging its output. A
// non-zero exit is an error carrying the captured stderr.
func runCommand(ctx context.Context, logger *slog.Logger, name string, args []string) error {
	// #nosec G204 -- name and args are built from configuration, not user-typed input
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Info("Command output", "command", name, "output", out)
	}
	if err != nil {
		return fmt.Errorf("%s %s failed: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	logger.Info("Command executed successfully", "command", name)
	return nil
}
