package bridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/codec"
	"github.com/surfbridge/surf/internal/obslog"
)

// processUpstream runs the router as a spawned child process, piping its
// stdin/stdout through the framed codec (§4.A). Restart respawns the
// child after a crash or EOF.
type processUpstream struct {
	cmdArgs []string
	cmd     *exec.Cmd
	reader  *codec.Reader
	writer  *codec.Writer
}

// SpawnRouter starts the router child process named by cmdArgs (the
// first element is the executable path, the rest are its arguments).
func SpawnRouter(cmdArgs []string) (Upstream, error) {
	u := &processUpstream{cmdArgs: cmdArgs}
	if err := u.start(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *processUpstream) start() error {
	if len(u.cmdArgs) == 0 {
		return fmt.Errorf("router command is empty")
	}
	cmd := exec.Command(u.cmdArgs[0], u.cmdArgs[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	u.cmd = cmd
	u.reader = codec.NewReader(stdout)
	u.writer = codec.NewWriter(stdin)
	return nil
}

func (u *processUpstream) Reader() *codec.Reader { return u.reader }
func (u *processUpstream) Writer() *codec.Writer { return u.writer }

func (u *processUpstream) Close() error {
	if u.cmd == nil || u.cmd.Process == nil {
		return nil
	}
	return u.cmd.Process.Kill()
}

// Restart waits for the dead child to exit, then respawns it with
// simple backoff. It only gives up if ctx is cancelled.
func (u *processUpstream) Restart(ctx context.Context) (Upstream, error) {
	log := obslog.For("bridge")
	if u.cmd != nil {
		_ = u.cmd.Wait()
	}

	backoff := 500 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		next := &processUpstream{cmdArgs: u.cmdArgs}
		if err := next.start(); err != nil {
			log.Error("failed to respawn router", zap.Error(err))
			if backoff < 10*time.Second {
				backoff *= 2
			}
			continue
		}
		log.Info("router respawned")
		return next, nil
	}
}

// nativeHostUpstream treats the daemon's own stdio as the upstream pipe,
// for the --native-host mode where a real browser extension spawns the
// daemon directly and speaks the framed protocol to it. There is no
// child process to respawn: a stdio EOF means the browser closed the
// port, which is terminal.
type nativeHostUpstream struct {
	reader *codec.Reader
	writer *codec.Writer
}

func NativeHostUpstream() Upstream {
	return &nativeHostUpstream{
		reader: codec.NewReader(os.Stdin),
		writer: codec.NewWriter(os.Stdout),
	}
}

func (u *nativeHostUpstream) Reader() *codec.Reader { return u.reader }
func (u *nativeHostUpstream) Writer() *codec.Writer { return u.writer }
func (u *nativeHostUpstream) Close() error          { return nil }

func (u *nativeHostUpstream) Restart(ctx context.Context) (Upstream, error) {
	return nil, fmt.Errorf("native host stdio closed, cannot restart")
}
