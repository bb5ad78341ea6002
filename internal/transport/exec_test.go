package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecTransport_Success(t *testing.T) {
	bin := writeScript(t, "request", `printf '0!!<form>%s</form>!' "$*"`)
	tr := NewExecTransport(bin, "", time.Second)

	out, err := tr.Call(context.Background(), OpRequest, protocol.Args{
		"merchant_id": "014295303911111",
		"amount":      0,
		"caddie":      "it's mine",
		"language":    "",
	})

	require.NoError(t, err)
	assert.Equal(t, "0!!<form>amount=0 caddie=it's mine merchant_id=014295303911111</form>!", out)
	assert.Equal(t, "exec", tr.Name())
}

func TestExecTransport_ResponseBinary(t *testing.T) {
	bin := writeScript(t, "response", `for a in "$@"; do printf '%s|' "$a"; done`)
	tr := NewExecTransport("", bin, 0)

	out, err := tr.Call(context.Background(), OpResponse, protocol.Args{
		"message":  "abc def",
		"pathfile": "/etc/sips/pathfile",
	})

	require.NoError(t, err)
	assert.Equal(t, "message=abc def|pathfile=/etc/sips/pathfile|", out)
}

func TestExecTransport_MissingBinary(t *testing.T) {
	tr := NewExecTransport(filepath.Join(t.TempDir(), "nope"), "", time.Second)

	_, err := tr.Call(context.Background(), OpRequest, protocol.Args{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "not found")
}

func TestExecTransport_DirectoryIsNotABinary(t *testing.T) {
	tr := NewExecTransport(t.TempDir(), "", time.Second)
	_, err := tr.Call(context.Background(), OpRequest, protocol.Args{})
	assert.True(t, errors.Is(err, protocol.ErrInvalidConfiguration))
}

func TestExecTransport_NoBinaryConfigured(t *testing.T) {
	tr := NewExecTransport("", "", time.Second)
	_, err := tr.Call(context.Background(), OpResponse, protocol.Args{})
	assert.True(t, errors.Is(err, protocol.ErrInvalidConfiguration))
}

func TestExecTransport_NonZeroExit(t *testing.T) {
	bin := writeScript(t, "request", `echo "pathfile not readable" >&2; exit 3`)
	tr := NewExecTransport(bin, "", time.Second)

	_, err := tr.Call(context.Background(), OpRequest, protocol.Args{})

	require.Error(t, err)
	var execErr *protocol.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "pathfile not readable", execErr.Detail)
	assert.Equal(t, "request", execErr.Op)
	assert.Equal(t, bin, execErr.Target)
	assert.False(t, errors.Is(err, protocol.ErrInvalidConfiguration))
}

func TestExecTransport_Timeout(t *testing.T) {
	bin := writeScript(t, "request", `sleep 5`)
	tr := NewExecTransport(bin, "", 100*time.Millisecond)

	start := time.Now()
	_, err := tr.Call(context.Background(), OpRequest, protocol.Args{})

	require.Error(t, err)
	var execErr *protocol.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecTransport_RawArgs(t *testing.T) {
	bin := writeScript(t, "request", `printf '%s' "$1"`)
	tr := NewExecTransport(bin, "", time.Second)

	out, err := tr.Call(context.Background(), OpRequest, protocol.RawArgs(`amount=100`))
	require.NoError(t, err)
	assert.Equal(t, "amount=100", out)
}

func TestExecTransport_RawArgsCannotChainCommands(t *testing.T) {
	bin := writeScript(t, "request", `printf '%s|' "$@"`)
	marker := filepath.Join(t.TempDir(), "marker")
	tr := NewExecTransport(bin, "", time.Second)

	out, err := tr.Call(context.Background(), OpRequest,
		protocol.RawArgs("amount=100; touch "+marker+" $(touch "+marker+") caddie='a b'"))
	require.NoError(t, err)

	assert.Equal(t, "amount=100;|touch|"+marker+"|$(touch|"+marker+")|caddie=a b|", out)
	assert.NoFileExists(t, marker)
}

func TestEscapeShellCmd(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "amount=100 pathfile=/etc/sips", "amount=100 pathfile=/etc/sips"},
		{"Metachars", "a=1;b=2|c&d", `a=1\;b=2\|c\&d`},
		{"Substitution", "a=$(id) b=`id`", "a=\\$\\(id\\) b=\\`id\\`"},
		{"PairedQuotes", `caddie='a b' msg="c d"`, `caddie='a b' msg="c d"`},
		{"UnpairedQuote", `caddie=it's`, `caddie=it\'s`},
		{"MixedQuotes", `a='x"y'`, `a='x\"y'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeShellCmd(tt.in))
		})
	}
}
