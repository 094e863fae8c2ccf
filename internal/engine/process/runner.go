package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

// maxLineSize bounds a single output line (yt-dlp JSON dumps can be long)
const maxLineSize = 1024 * 1024

// Process is a running child whose stdout and stderr are merged into one line stream.
type Process struct {
	cmd   *exec.Cmd
	lines chan string

	done    chan struct{} // closed once the child has been reaped
	waitErr error

	stop     chan struct{} // closed by Close to release the reader
	stopOnce sync.Once
	reader   *os.File
}

// Start launches name with args in dir. Both output streams share one pipe so
// the line order matches what the child wrote.
func Start(name string, args []string, dir string) (*Process, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: pipe: %v", types.ErrProcessSpawn, err)
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("%w: %s: %v", types.ErrProcessSpawn, name, err)
	}
	// The child holds its own copy of the write end
	_ = pw.Close()

	p := &Process{
		cmd:    cmd,
		lines:  make(chan string, types.LineChannelBuffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		reader: pr,
	}

	go p.readLines()
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	utils.Debug("Process: started %s (pid %d)", name, cmd.Process.Pid)
	return p, nil
}

// Lines returns the merged output, one line per value. The channel is closed at EOF.
func (p *Process) Lines() <-chan string {
	return p.lines
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the child has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the child exits or ctx is done. On exit it returns the
// child's exit error; on cancellation it returns ctx.Err() and leaves the child running.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode returns the exit code, or -1 while the child is still running.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
		if p.cmd.ProcessState != nil {
			return p.cmd.ProcessState.ExitCode()
		}
	default:
	}
	return -1
}

// Terminate kills the child and its descendants, then waits at most wait for it to exit.
func (p *Process) Terminate(wait time.Duration) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := killProcessTree(p.cmd); err != nil {
		// It may have exited between the check and the kill
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		utils.Debug("Process: kill %d failed: %v", p.cmd.Process.Pid, err)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return types.ErrTerminateTimeout
	}
}

// Close releases the output reader. Lines not yet consumed are dropped.
func (p *Process) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		_ = p.reader.Close()
	})
}

func (p *Process) readLines() {
	defer close(p.lines)

	scanner := bufio.NewScanner(p.reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case p.lines <- line:
		case <-p.stop:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-p.stop:
		default:
			utils.Debug("Process: output read error: %v", err)
		}
	}
}

// scanLines splits on '\n' and on bare '\r', which yt-dlp uses to redraw progress.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
