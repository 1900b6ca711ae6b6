package langserver

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/framing"
)

// Process is a running language-server subprocess. Its standard streams are
// exposed as plain readers and writers so callers can layer the frame codec
// on top.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File

	framesOnce sync.Once
	frames     *framing.Reader

	done     chan struct{}
	exitErr  error
	termOnce sync.Once
	timeout  time.Duration
}

// newProcess wires the command's standard streams through pipes owned by the
// proxy and starts it. Pipes are managed by hand rather than through
// cmd.StdoutPipe so that process exit never races reads of buffered output.
func newProcess(cmd *exec.Cmd, timeout time.Duration) (*Process, *bufio.Scanner, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, nil, err
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, nil, err
	}

	// The child holds its own copies of the pipe ends now. Closing ours makes
	// the read sides report EOF as soon as the child exits.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	p := &Process{
		cmd:     cmd,
		stdin:   stdinW,
		stdout:  stdoutR,
		done:    make(chan struct{}),
		timeout: timeout,
	}

	go func() {
		p.exitErr = cmd.Wait()
		stderrR.Close()
		close(p.done)
	}()

	return p, bufio.NewScanner(stderrR), nil
}

// Stdin is the subprocess's standard input.
func (p *Process) Stdin() io.Writer { return p.stdin }

// Stdout is the subprocess's standard output.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Frames returns the frame reader attached to the subprocess's stdout. The
// reader is shared so that decode state stays intact when a second
// connection attaches to a still-live session.
func (p *Process) Frames() *framing.Reader {
	p.framesOnce.Do(func() {
		p.frames = framing.NewReader(p.stdout)
	})
	return p.frames
}

// Pid returns the operating-system process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Alive reports whether the subprocess is still running.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the subprocess has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitErr returns the result of waiting on the subprocess. Only valid after
// Done is closed.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.exitErr
	default:
		return nil
	}
}

// Terminate asks the subprocess to exit by closing its stdin and waits up to
// the configured shutdown timeout before killing it. Safe to call more than
// once; every call returns only after the process has exited.
func (p *Process) Terminate(ctx context.Context) error {
	p.termOnce.Do(func() {
		p.stdin.Close()

		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		select {
		case <-p.done:
			return
		case <-timer.C:
		case <-ctx.Done():
		}

		p.cmd.Process.Kill()
		<-p.done
	})

	<-p.done
	p.stdout.Close()
	if p.exitErr != nil {
		if _, ok := p.exitErr.(*exec.ExitError); ok {
			// Nonzero exit after a requested shutdown is not a failure.
			return nil
		}
		return p.exitErr
	}
	return nil
}
