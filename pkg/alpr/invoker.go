package alpr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

const (
	DefaultTimeout = 20 * time.Second
	DefaultTopN    = 5
	DefaultCountry = "eu"

	// Time allowed for stdout/stderr to drain after the process is killed.
	killWaitDelay = 2 * time.Second
)

// Result is the outcome of one alpr run. Diagnostic fields are always filled
// so callers can expose them without re-deriving anything.
type Result struct {
	ReturnCode int         `json:"return_code"`
	Stdout     string      `json:"stdout"`
	Stderr     string      `json:"stderr"`
	DurationMs int64       `json:"duration_ms"`
	Plate      string      `json:"plate"`
	Candidates []Candidate `json:"candidates"`
	Succeeded  bool        `json:"succeeded"`

	BinaryPath string `json:"alpr_path"`
	ConfigPath string `json:"config_file"`
	Country    string `json:"country"`
}

// Err reports a run that exited non-zero as ErrEngineFailure.
func (r *Result) Err() error {
	if r == nil || r.Succeeded {
		return nil
	}
	return fmt.Errorf("%w: rc=%d", ErrEngineFailure, r.ReturnCode)
}

type Invoker struct {
	TopN      int
	ExtraArgs []string
}

func (i *Invoker) Args(imagePath, country string) []string {
	topN := i.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	args := []string{"-j", "-n", strconv.Itoa(topN), "-c", country}
	args = append(args, i.ExtraArgs...)
	return append(args, imagePath)
}

// Invoke runs the alpr binary once against imagePath. A non-zero exit is not an
// error: it is reported through Result.Succeeded and Result.ReturnCode.
func (i *Invoker) Invoke(ctx context.Context, imagePath string, res Resolution, country string, timeout time.Duration) (*Result, error) {
	result := &Result{
		ReturnCode: -1,
		Plate:      UnknownPlate,
		Candidates: []Candidate{},
		BinaryPath: res.BinaryPath,
		ConfigPath: res.ConfigPath,
		Country:    country,
	}

	if res.BinaryPath == "" {
		return result, ErrConfiguration
	}

	if _, err := os.Stat(imagePath); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvocation, err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, res.BinaryPath, i.Args(imagePath, country)...)
	cmd.WaitDelay = killWaitDelay
	killProcessGroup(cmd)
	if res.ConfigPath != "" {
		cmd.Env = append(os.Environ(), ConfigFileEnv+"="+res.ConfigPath)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	result.DurationMs = time.Since(started).Milliseconds()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		switch ctxErr := runCtx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			return result, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case ctxErr != nil:
			return result, fmt.Errorf("%w: %v", ErrInvocation, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("%w: %v", ErrInvocation, err)
	}

	result.ReturnCode = 0
	result.Succeeded = true
	return result, nil
}
