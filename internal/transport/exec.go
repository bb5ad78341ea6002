package transport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

const (
	defaultShell     = "/bin/sh"
	defaultWaitDelay = time.Second

	shellMetachars = "#&;`|*?~<>^()[]{}$\\\n\xff"
)

// ExecTransport runs the vendor request and response binaries.
type ExecTransport struct {
	binaries map[Operation]string
	shell    string
	timeout  time.Duration
}

// NewExecTransport creates a transport for the given binaries. A zero timeout
// leaves calls bounded only by the caller's context.
func NewExecTransport(requestBin, responseBin string, timeout time.Duration) *ExecTransport {
	return &ExecTransport{
		binaries: map[Operation]string{
			OpRequest:  requestBin,
			OpResponse: responseBin,
		},
		shell:   defaultShell,
		timeout: timeout,
	}
}

func (t *ExecTransport) Name() string { return KindExec }

// Call runs the binary for op through the shell with the encoded arguments and
// returns its standard output.
func (t *ExecTransport) Call(ctx context.Context, op Operation, args protocol.Arguments) (string, error) {
	bin := t.binaries[op]
	if bin == "" {
		return "", fmt.Errorf("%w: no binary configured for %s", protocol.ErrInvalidConfiguration, op)
	}
	info, err := os.Stat(bin)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: binary %s not found", protocol.ErrInvalidConfiguration, bin)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	encoded := args.Encode()
	if _, raw := args.(protocol.RawArgs); raw {
		encoded = escapeShellCmd(encoded)
	}
	cmdline := strings.TrimSpace("exec " + shellescape.Quote(bin) + " " + encoded)
	cmd := exec.CommandContext(ctx, t.shell, "-c", cmdline)
	cmd.WaitDelay = defaultWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &protocol.ExecutionError{
			Op:     string(op),
			Target: bin,
			Detail: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// escapeShellCmd backslash-escapes shell metacharacters in a pre-rendered
// argument string so it cannot start another command. Quotes are left alone
// only when they form a pair.
func escapeShellCmd(s string) string {
	var b strings.Builder
	closing := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			if closing < 0 {
				if j := strings.IndexByte(s[i+1:], c); j >= 0 {
					closing = i + 1 + j
					b.WriteByte(c)
					continue
				}
			} else if i == closing {
				closing = -1
				b.WriteByte(c)
				continue
			}
			b.WriteByte('\\')
		case strings.IndexByte(shellMetachars, c) >= 0:
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
