package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdbxtools/kdbxrecover/internal/credential"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		c    credential.Combination
		want []string
	}{
		{
			"passphrase only",
			credential.Combination{Passphrase: "x", HasPassphrase: true},
			[]string{"open", "--quiet", "vault.kdbx"},
		},
		{
			"no credentials",
			credential.Combination{},
			[]string{"open", "--quiet", "--no-password", "vault.kdbx"},
		},
		{
			"keyfile without passphrase",
			credential.Combination{Keyfile: "/keys/k1"},
			[]string{"open", "--quiet", "--key-file", "/keys/k1", "--no-password", "vault.kdbx"},
		},
		{
			"all factors",
			credential.Combination{Passphrase: "x", HasPassphrase: true, Keyfile: "/keys/k1", TokenSlot: 2},
			[]string{"open", "--quiet", "--key-file", "/keys/k1", "--yubikey", "2", "vault.kdbx"},
		},
		{
			"empty passphrase is still a passphrase",
			credential.Combination{Passphrase: "", HasPassphrase: true, TokenSlot: 1},
			[]string{"open", "--quiet", "--yubikey", "1", "vault.kdbx"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildArgs("vault.kdbx", tt.c))
		})
	}
}

func TestStderrTail(t *testing.T) {
	assert.Equal(t, "", stderrTail(nil))
	assert.Equal(t, "one line", stderrTail([]byte("one line\n")))
	assert.Equal(t, "last", stderrTail([]byte("first\nsecond\nlast\n")))
}

// fakeTool writes a shell script standing in for keepassxc-cli and
// returns its path.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool stub")
	}
	path := filepath.Join(t.TempDir(), "fake-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func TestTry_Success(t *testing.T) {
	p := &KeePassXC{Binary: fakeTool(t, "exit 0\n")}

	res := p.Try(context.Background(), "vault.kdbx",
		credential.Combination{Passphrase: "x", HasPassphrase: true}, 5*time.Second)

	assert.Equal(t, Success, res.Outcome)
	assert.Empty(t, res.Detail)
}

func TestTry_PassphraseOnStdin(t *testing.T) {
	// The tool echoes stdin back; a correct probe feeds the passphrase
	// followed by a newline and nothing else on the command line.
	script := `read line
[ "$line" = "hunter2" ] || exit 1
for a in "$@"; do
  case "$a" in *hunter2*) exit 1;; esac
done
exit 0
`
	p := &KeePassXC{Binary: fakeTool(t, script)}

	res := p.Try(context.Background(), "vault.kdbx",
		credential.Combination{Passphrase: "hunter2", HasPassphrase: true}, 5*time.Second)

	assert.Equal(t, Success, res.Outcome)
}

func TestTry_Failure(t *testing.T) {
	p := &KeePassXC{Binary: fakeTool(t, "echo 'Error while reading the database' >&2\nexit 2\n")}

	res := p.Try(context.Background(), "vault.kdbx",
		credential.Combination{Passphrase: "wrong", HasPassphrase: true}, 5*time.Second)

	assert.Equal(t, Failure, res.Outcome)
	assert.Equal(t, "Error while reading the database", res.Detail)
}

func TestTry_Timeout(t *testing.T) {
	p := &KeePassXC{Binary: fakeTool(t, "sleep 30\n")}

	start := time.Now()
	res := p.Try(context.Background(), "vault.kdbx",
		credential.Combination{Passphrase: "x", HasPassphrase: true}, 100*time.Millisecond)

	assert.Equal(t, TimedOut, res.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second, "killed process must be reaped promptly")
}

// Cancelling the run while the tool is mid-attempt kills the process;
// the resulting exit status must not be mistaken for a wrong-credentials
// verdict, or the combination would be durably skipped on resume.
func TestTry_CancelledMidAttempt(t *testing.T) {
	p := &KeePassXC{Binary: fakeTool(t, "sleep 30\n")}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	res := p.Try(ctx, "vault.kdbx",
		credential.Combination{Passphrase: "x", HasPassphrase: true}, 25*time.Second)

	assert.Equal(t, Interrupted, res.Outcome)
}

func TestTry_ToolError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	p := &KeePassXC{Binary: missing}

	res := p.Try(context.Background(), "vault.kdbx",
		credential.Combination{Passphrase: "x", HasPassphrase: true}, 5*time.Second)

	assert.Equal(t, ToolError, res.Outcome)
	assert.NotEmpty(t, res.Detail)
	assert.Equal(t, missing, res.Binary)
}

func TestUnavailableError_Message(t *testing.T) {
	e := &UnavailableError{Binary: "keepassxc-cli", Detail: "executable not found"}
	assert.Equal(t, `unlock tool "keepassxc-cli" unavailable: executable not found`, e.Error())

	assert.Equal(t, "unlock tool unavailable", (&UnavailableError{}).Error())
}
