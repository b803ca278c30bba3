// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pdiddy/probsplit/pkg/types"
)

// Launcher runs one job to completion somewhere isolated from the caller.
type Launcher interface {
	Launch(ctx context.Context, job Job) (Result, error)
}

// executor abstracts process execution for testing.
type executor interface {
	RunPiped(ctx context.Context, argv, env []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) RunPiped(ctx context.Context, argv, env []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	return cmd.Run()
}

// ProcessLauncher starts one OS process per job. Command is the argv of
// the worker entry point (for the CLI: the executable followed by
// "worker"); Env is appended to the parent's environment.
type ProcessLauncher struct {
	Command []string
	Env     []string

	// Timeout bounds each job; zero means no per-job limit.
	Timeout time.Duration

	exec executor
}

// NewProcessLauncher returns a launcher running command with timeout.
func NewProcessLauncher(command []string, timeout time.Duration) *ProcessLauncher {
	return &ProcessLauncher{Command: command, Timeout: timeout, exec: osExecutor{}}
}

// SelfCommand returns the argv that re-executes the running binary's
// worker subcommand.
func SelfCommand() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	return []string{exe, "worker"}, nil
}

// Launch runs job in a fresh process. A crash, a non-zero exit, a timeout
// or unreadable output is returned as an error wrapping types.ErrWorker.
func (p *ProcessLauncher) Launch(ctx context.Context, job Job) (Result, error) {
	if len(p.Command) == 0 {
		return Result{}, fmt.Errorf("%w: no worker command configured", types.ErrWorker)
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return Result{}, fmt.Errorf("%w: encoding job: %w", types.ErrWorker, err)
	}

	var stdout, stderr bytes.Buffer
	runErr := p.executor().RunPiped(ctx, p.Command, p.Env, bytes.NewReader(payload), &stdout, &stderr)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{}, fmt.Errorf("%w: group %d timed out after %s", types.ErrWorker, job.Group, p.Timeout)
	}
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("%w: group %d: %w", types.ErrWorker, job.Group, ctx.Err())
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return Result{}, fmt.Errorf("%w: group %d: %v: %s", types.ErrWorker, job.Group, runErr, msg)
		}
		return Result{}, fmt.Errorf("%w: group %d: %v", types.ErrWorker, job.Group, runErr)
	}

	var res Result
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return Result{}, fmt.Errorf("%w: group %d: decoding result: %w", types.ErrWorker, job.Group, err)
	}
	if res.Group != job.Group {
		return Result{}, fmt.Errorf("%w: result for group %d answered job %d", types.ErrWorker, res.Group, job.Group)
	}
	return res, nil
}

func (p *ProcessLauncher) executor() executor {
	if p.exec == nil {
		return osExecutor{}
	}
	return p.exec
}
