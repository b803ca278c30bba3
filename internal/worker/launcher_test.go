// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/probsplit/pkg/types"
)

// helperEnv switches the test binary into worker mode (see TestMain).
const helperEnv = "PROBSPLIT_TEST_WORKER"

func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "":
		os.Exit(m.Run())
	case "serve":
		if err := Serve(os.Stdin, os.Stdout, registry()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	case "crash":
		fmt.Fprintln(os.Stderr, "segfault in engine")
		os.Exit(3)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
}

// mockExecutor feeds the launcher canned process behavior.
type mockExecutor struct {
	run func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error
}

func (m *mockExecutor) RunPiped(ctx context.Context, argv, env []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return m.run(ctx, stdin, stdout, stderr)
}

func TestProcessLauncher_Mocked(t *testing.T) {
	tests := []struct {
		name    string
		run     func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error
		timeout time.Duration
		wantErr string
	}{
		{
			name: "echoes successful result",
			run: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
				var job Job
				if err := json.NewDecoder(stdin).Decode(&job); err != nil {
					return err
				}
				return json.NewEncoder(stdout).Encode(Result{Group: job.Group, Success: true, OutputPath: job.OutputPath})
			},
		},
		{
			name: "non-zero exit carries stderr",
			run: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
				io.WriteString(stderr, "engine crashed\n")
				return errors.New("exit status 3")
			},
			wantErr: "engine crashed",
		},
		{
			name: "garbage on stdout",
			run: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
				_, err := io.WriteString(stdout, "hello")
				return err
			},
			wantErr: "decoding result",
		},
		{
			name: "result for another group",
			run: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
				return json.NewEncoder(stdout).Encode(Result{Group: 99, Success: true})
			},
			wantErr: "answered job 4",
		},
		{
			name: "timeout",
			run: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
				<-ctx.Done()
				return ctx.Err()
			},
			timeout: 10 * time.Millisecond,
			wantErr: "timed out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &ProcessLauncher{Command: []string{"probsplit", "worker"}, Timeout: tt.timeout, exec: &mockExecutor{run: tt.run}}

			res, err := l.Launch(context.Background(), Job{Group: 4, OutputPath: "out/problem_004.docx"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrWorker)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, "out/problem_004.docx", res.OutputPath)
		})
	}
}

func TestProcessLauncher_NoCommand(t *testing.T) {
	_, err := NewProcessLauncher(nil, 0).Launch(context.Background(), Job{Group: 1})
	assert.ErrorIs(t, err, types.ErrWorker)
}

func TestProcessLauncher_RealProcess(t *testing.T) {
	job := docxJob(t)
	l := NewProcessLauncher([]string{os.Args[0]}, 30*time.Second)
	l.Env = []string{helperEnv + "=serve"}

	res, err := l.Launch(context.Background(), job)

	require.NoError(t, err)
	assert.True(t, res.Success, res.Error)
	assert.FileExists(t, job.OutputPath)
}

func TestProcessLauncher_RealCrash(t *testing.T) {
	l := NewProcessLauncher([]string{os.Args[0]}, 30*time.Second)
	l.Env = []string{helperEnv + "=crash"}

	_, err := l.Launch(context.Background(), Job{Group: 1})

	assert.ErrorIs(t, err, types.ErrWorker)
	assert.ErrorContains(t, err, "segfault in engine")
}

func TestProcessLauncher_RealTimeout(t *testing.T) {
	l := NewProcessLauncher([]string{os.Args[0]}, 200*time.Millisecond)
	l.Env = []string{helperEnv + "=hang"}

	start := time.Now()
	_, err := l.Launch(context.Background(), Job{Group: 1})

	assert.ErrorIs(t, err, types.ErrWorker)
	assert.ErrorContains(t, err, "timed out")
	assert.Less(t, time.Since(start), 20*time.Second, "hung worker is killed")
}
