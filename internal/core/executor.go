package core

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"matrixci/internal/storage"
)

// Executor runs one resolved job to a terminal JobResult. Implementations
// must never panic or propagate a fault: anything that prevents the command
// from running becomes an errored result.
type Executor interface {
	Execute(ctx context.Context, spec JobSpec) JobResult
}

// ShellExecutor runs job commands through `sh -c` on the local host. Axis
// values are exported to the command as MATRIX_<NAME> environment variables.
type ShellExecutor struct {
	// Timeout bounds a single command; zero means no limit.
	Timeout time.Duration

	// Logs, when set, receives the captured output and its path becomes the
	// result's OutputRef. When nil output is discarded after status mapping.
	Logs *storage.LogStore
}

func (e *ShellExecutor) Execute(ctx context.Context, spec JobSpec) JobResult {
	res := JobResult{Spec: spec, Status: StatusRunning, StartedAt: time.Now()}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", spec.Command)
	cmd.Env = append(os.Environ(), matrixEnv(spec)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res.FinishedAt = time.Now()

	if e.Logs != nil {
		ref, logErr := e.Logs.Save(spec.Name(), out.Bytes())
		if logErr != nil {
			glog.Warningf("cannot save output for job %s: %v", spec.Name(), logErr)
		} else {
			res.OutputRef = ref
		}
	} else {
		res.Output = out.String()
	}

	switch {
	case ctx.Err() == context.Canceled:
		res.Status = StatusErrored
		res.Reason = ReasonCancelled
	case ctx.Err() == context.DeadlineExceeded:
		res.Status = StatusErrored
		res.Reason = "timeout"
	case err == nil:
		res.Status = StatusSucceeded
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Status = StatusFailed
			res.ExitCode = exitErr.ExitCode()
		} else {
			// could not even start the command
			res.Status = StatusErrored
			res.Reason = err.Error()
		}
	}
	return res
}

// matrixEnv renders the spec's axis values as MATRIX_* variables, e.g.
// toolchain=nightly becomes MATRIX_TOOLCHAIN=nightly.
func matrixEnv(spec JobSpec) []string {
	env := make([]string, 0, len(spec.Values))
	for name, value := range spec.Values {
		key := "MATRIX_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		env = append(env, key+"="+value)
	}
	return env
}
