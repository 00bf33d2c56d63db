package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coforth/coforth/internal/logio"
)

func runShell(t *testing.T, input string) string {
	var out strings.Builder
	vm := New(WithOutput(&out))

	var logger logio.Logger
	logger.SetOutput(nopWriteCloser{&out})

	sh := NewShell(vm, NewPlainSource(strings.NewReader(input), nil), &logger)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

type nopWriteCloser struct{ w *strings.Builder }

func (nwc nopWriteCloser) Write(p []byte) (int, error) { return nwc.w.Write(p) }
func (nwc nopWriteCloser) Close() error                { return nil }

func TestShellEvalAndExit(t *testing.T) {
	out := runShell(t, "1 2 + .\nbye\n")
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "3 ")
	assert.Contains(t, out, "Bye, bye")
}

func TestShellHelpAndWords(t *testing.T) {
	out := runShell(t, "help\nwords\nexit\n")
	assert.Contains(t, out, "Reverse Polish Notation")
	assert.Contains(t, out, "DUP")
	assert.Contains(t, out, "CO_RANGE")
}

func TestShellRecoversFromErrors(t *testing.T) {
	out := runShell(t, "nosuchword\n4 5 + .\nbye\n")
	assert.Contains(t, out, "unknown word - nosuchword")
	assert.Contains(t, out, "9 ")
}

func TestShellMultiLineDefinition(t *testing.T) {
	out := runShell(t, ": double\n2 *\n;\n21 double .\nbye\n")
	assert.Contains(t, out, "42 ")
}

func TestShellEndOfInput(t *testing.T) {
	out := runShell(t, "7 .\n")
	assert.Contains(t, out, "7 ")
}

func TestShellLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.txt")
	require.NoError(t, os.WriteFile(path, []byte(": triple 3 * ;\n\\ a comment\n"), 0o644))

	out := runShell(t, "load\n"+path+"\n5 triple .\nbye\n")
	assert.Contains(t, out, "15 ")
}

func TestShellPumpsFibers(t *testing.T) {
	input := strings.Join([]string{
		"VARIABLE CNT",
		": tick CNT @ 1 + CNT ! 1 ;",
		": f [ -1 ] [ 0 ] tick CO_FIBER ;",
		"f",
		"f",
		"1 DROP", // an idle batch still pumps the scheduler
		"CNT @ .",
		"bye",
	}, "\n") + "\n"

	out := runShell(t, input)
	assert.Contains(t, out, "2 ")
}
