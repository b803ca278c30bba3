// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parallel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/probsplit/internal/duplicate"
	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/internal/engine/docx"
	"github.com/pdiddy/probsplit/internal/engine/docx/docxtest"
	"github.com/pdiddy/probsplit/internal/worker"
	"github.com/pdiddy/probsplit/pkg/types"
)

func init() {
	duplicate.PollInterval = time.Millisecond
}

// inProcessLauncher runs jobs with worker.Execute in the test process and
// records what it saw.
type inProcessLauncher struct {
	reg    *engine.Registry
	before func(ctx context.Context, job worker.Job) error

	mu     sync.Mutex
	jobs   []worker.Job
	active int
	peak   int
}

func newLauncher() *inProcessLauncher {
	return &inProcessLauncher{reg: engine.NewRegistry(docx.New())}
}

func (l *inProcessLauncher) Launch(ctx context.Context, job worker.Job) (worker.Result, error) {
	l.mu.Lock()
	l.jobs = append(l.jobs, job)
	l.active++
	l.peak = max(l.peak, l.active)
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	}()

	if l.before != nil {
		if err := l.before(ctx, job); err != nil {
			return worker.Result{}, fmt.Errorf("%w: %w", types.ErrWorker, err)
		}
	}
	return worker.Execute(job, l.reg), nil
}

var dupName = regexp.MustCompile(`dup-b(\d+)-s(\d+)\.docx$`)

// batchSizes counts the jobs launched per batch index.
func (l *inProcessLauncher) batchSizes(t *testing.T) []int {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	var sizes []int
	for _, j := range l.jobs {
		m := dupName.FindStringSubmatch(j.Duplicate)
		require.NotNil(t, m, j.Duplicate)
		b, _ := strconv.Atoi(m[1])
		for len(sizes) <= b {
			sizes = append(sizes, 0)
		}
		sizes[b]++
	}
	return sizes
}

// fixture writes an n-problem exam and returns a request with one task
// per problem.
func fixture(t *testing.T, n int) Request {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "exam.docx")
	require.NoError(t, docxtest.WriteFile(src, docxtest.Exam(n)))

	out := filepath.Join(dir, "out")
	req := Request{
		Source:    src,
		Engine:    docx.Name,
		Format:    types.FormatNative,
		MinBytes:  1,
		OutputDir: out,
		RunID:     "run-1",
	}
	for i := range n {
		rng := types.Range{Start: types.Index(2 * i), End: types.Index(2*i + 2)}
		req.Tasks = append(req.Tasks, Task{
			Group:      types.Group{Number: i + 1, Blocks: []int{i + 1}},
			Blocks:     []types.RangeSpec{rng.Spec()},
			OutputPath: filepath.Join(out, fmt.Sprintf("problem_%03d.docx", i+1)),
		})
	}
	return req
}

func scratchEntries(t *testing.T, req Request) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(req.OutputDir, ScratchDirName))
	require.NoError(t, err, "scratch root exists after the run")
	return entries
}

func TestBatches(t *testing.T) {
	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i].Group.Number = i + 1
	}

	tests := []struct {
		size int
		want []int
	}{
		{2, []int{2, 2, 1}},
		{5, []int{5}},
		{10, []int{5}},
		{1, []int{1, 1, 1, 1, 1}},
		{0, []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.size), func(t *testing.T) {
			var sizes []int
			next := 1
			for _, b := range Batches(tasks, tt.size) {
				sizes = append(sizes, len(b))
				for _, task := range b {
					assert.Equal(t, next, task.Group.Number, "order is preserved")
					next++
				}
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
	assert.Empty(t, Batches(nil, 3))
}

func TestScratchPath(t *testing.T) {
	assert.Equal(t, filepath.Join("run", "dup-b2-s1.docx"), ScratchPath("run", 2, 1, ".docx"))
	assert.NotEqual(t, ScratchPath("run", 0, 1, ".md"), ScratchPath("run", 1, 0, ".md"))
}

func TestRun_BatchesAndCleanup(t *testing.T) {
	req := fixture(t, 5)
	l := newLauncher()
	c := &Coordinator{Launcher: l, MaxWorkers: 2}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.False(t, res.Canceled)
	assert.Equal(t, []int{2, 2, 1}, l.batchSizes(t))
	assert.LessOrEqual(t, l.peak, 2)
	for _, task := range req.Tasks {
		assert.FileExists(t, task.OutputPath)
	}
	assert.Empty(t, scratchEntries(t, req), "scratch directory is empty")
}

func TestRun_OutcomesInGroupOrder(t *testing.T) {
	req := fixture(t, 4)
	l := newLauncher()
	// Later groups finish first.
	l.before = func(ctx context.Context, job worker.Job) error {
		time.Sleep(time.Duration(5-job.Group) * 5 * time.Millisecond)
		return nil
	}
	c := &Coordinator{Launcher: l, MaxWorkers: 4}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	require.Len(t, res.OutputPaths, 4)
	for i, task := range req.Tasks {
		assert.Equal(t, task.OutputPath, res.OutputPaths[i])
		assert.Equal(t, i+1, res.Outcomes[i].Group)
	}
}

func TestRun_DuplicationFailure(t *testing.T) {
	req := fixture(t, 5)
	l := newLauncher()
	c := &Coordinator{
		Launcher:   l,
		MaxWorkers: 2,
		Copy: func(ctx context.Context, src, dst string) error {
			if filepath.Base(dst) == "dup-b1-s0.docx" {
				// Leave a torn copy behind to prove cleanup handles it.
				os.WriteFile(dst, []byte("PK"), 0o644)
				return fmt.Errorf("%w: disk full", types.ErrDuplication)
			}
			return duplicate.Copy(ctx, src, dst, 0)
		},
	}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 4, res.Succeeded)
	assert.False(t, res.Outcomes[2].Success)
	assert.Equal(t, 3, res.Outcomes[2].Group)
	assert.Contains(t, res.Outcomes[2].Err, "duplication failure")
	assert.Len(t, l.jobs, 4, "failed duplicate is never dispatched")
	assert.NoFileExists(t, req.Tasks[2].OutputPath)
	assert.Empty(t, scratchEntries(t, req), "no duplicates remain")
}

func TestRun_WorkerFailures(t *testing.T) {
	req := fixture(t, 4)
	l := newLauncher()
	l.before = func(ctx context.Context, job worker.Job) error {
		switch job.Group {
		case 2:
			// A crashed worker leaves its lock file behind.
			os.WriteFile(job.Duplicate+engine.LockSuffix, []byte("123"), 0o644)
			return errors.New("exit status 2: engine crashed")
		case 4:
			return errors.New("group 4 timed out after 2m0s")
		}
		return nil
	}
	var out bytes.Buffer
	c := &Coordinator{Launcher: l, MaxWorkers: 2, Verbose: true}

	res := c.Run(context.Background(), req, &out)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []string{req.Tasks[0].OutputPath, req.Tasks[2].OutputPath}, res.OutputPaths)
	assert.Contains(t, res.Outcomes[1].Err, "engine crashed")
	assert.Empty(t, res.Outcomes[1].OutputPath)
	assert.Contains(t, res.Outcomes[3].Err, "timed out")
	assert.Empty(t, scratchEntries(t, req))
	assert.Contains(t, out.String(), "batch 1/2: groups 1-2")
	assert.Contains(t, out.String(), "failed:  group 2")
	assert.Contains(t, out.String(), "extracted: problem_003.docx")
}

func TestRun_WorkerReportsFailure(t *testing.T) {
	req := fixture(t, 2)
	req.MinBytes = 1 << 30
	c := &Coordinator{Launcher: newLauncher(), MaxWorkers: 2}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, res.OutputPaths)
	assert.Contains(t, res.Outcomes[0].Err, "implausible output size")
}

func TestRun_Canceled(t *testing.T) {
	req := fixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newLauncher()
	l.before = func(ctx context.Context, job worker.Job) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	c := &Coordinator{Launcher: l, MaxWorkers: 1, BatchPause: time.Hour}

	start := time.Now()
	res := c.Run(ctx, req, &bytes.Buffer{})

	assert.Less(t, time.Since(start), 10*time.Second, "pause is interrupted")
	assert.True(t, res.Canceled)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Failed)
	assert.Len(t, l.jobs, 1, "no batch starts after cancellation")
	assert.False(t, res.Outcomes[0].Canceled, "group 1 was attempted")
	assert.True(t, res.Outcomes[1].Canceled)
	assert.True(t, res.Outcomes[2].Canceled)
	assert.Contains(t, res.Outcomes[1].Err, "run canceled")
	assert.Contains(t, res.Outcomes[2].Err, "run canceled")
	assert.Equal(t, 1, res.Attempted())
	assert.Empty(t, scratchEntries(t, req))
}

func TestRun_RemovesPartialArtifactsOfFailedGroups(t *testing.T) {
	req := fixture(t, 3)
	failed := req.Tasks[1].OutputPath
	partial := filepath.Join(filepath.Dir(failed), "."+filepath.Base(failed)+".persist-123.tmp")

	l := newLauncher()
	l.before = func(ctx context.Context, job worker.Job) error {
		if job.Group != 2 {
			return nil
		}
		// A worker killed mid-write leaves its temp file behind.
		assert.NoError(t, os.MkdirAll(filepath.Dir(partial), 0o755))
		assert.NoError(t, os.WriteFile(partial, []byte("partial"), 0o644))
		return errors.New("worker killed")
	}
	c := &Coordinator{Launcher: l, MaxWorkers: 3}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.NoFileExists(t, partial)
	assert.FileExists(t, req.Tasks[0].OutputPath)
	assert.FileExists(t, req.Tasks[2].OutputPath)
}

func TestRun_SpawnRate(t *testing.T) {
	req := fixture(t, 3)
	c := &Coordinator{Launcher: newLauncher(), MaxWorkers: 3, SpawnRate: 1000}

	res := c.Run(context.Background(), req, &bytes.Buffer{})

	assert.Equal(t, 3, res.Succeeded)
}

func TestRun_NoTasks(t *testing.T) {
	c := &Coordinator{Launcher: newLauncher(), MaxWorkers: 2}

	res := c.Run(context.Background(), Request{OutputDir: t.TempDir(), RunID: "x"}, &bytes.Buffer{})

	assert.Zero(t, res.Total)
	assert.Equal(t, []string{}, res.OutputPaths)
}
