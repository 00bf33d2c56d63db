package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/coforth/coforth/internal/logio"
	"github.com/coforth/coforth/internal/source"
)

const welcomeText = `==========================================
Welcome to the coforth interpreter-compiler
==========================================
`

const helpText = `----------------------------------------------------------
Load - loads & executes a text file
Exit, bye - to leave
Words - prints a list of words in the dictionary
All operations on the stack in the Reverse Polish Notation
----------------------------------------------------------`

// lineSource abstracts where the shell reads lines from: a readline
// editor on a terminal, a plain buffered reader otherwise.
type lineSource interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// Shell drives the read-eval-print loop: system words first, then the
// interpreter, then one scheduler sweep per batch.
type Shell struct {
	VM    *VM
	Log   *logio.Logger
	Lines lineSource

	termID source.FileID
}

// NewShell wires a shell around vm reading from lines.
func NewShell(vm *VM, lines lineSource, log *logio.Logger) *Shell {
	return &Shell{
		VM:     vm,
		Log:    log,
		Lines:  lines,
		termID: vm.AddSource("Terminal"),
	}
}

// Run loops until BYE, EXIT, or end of input.
func (sh *Shell) Run(ctx context.Context) error {
	vm := sh.VM
	vm.writeString(welcomeText)
	vm.out.Flush()

	tz := NewTokenizer(sh.termID)
	for {
		tokens, err := sh.readBatch(tz)
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		} else if err != nil {
			return err
		}

		if exit, handled := sh.systemTokens(ctx, tokens); exit {
			vm.writeString("\nBye, bye to you, exiting ...\n")
			vm.out.Flush()
			return nil
		} else if !handled {
			if err := sh.eval(ctx, tokens); err != nil {
				return err
			}
		}

		if err := sh.pump(); err != nil {
			return err
		}
	}
}

// eval reports recoverable faults and keeps going; anything else ends the
// shell.
func (sh *Shell) eval(ctx context.Context, tokens []Token) error {
	if err := sh.VM.EvalTokens(ctx, tokens); err != nil {
		if !IsRecoverable(err) {
			return err
		}
		sh.Log.Errorf("Error: %v", err)
	}
	return nil
}

func (sh *Shell) pump() error {
	if err := sh.VM.Pump(); err != nil {
		if !IsRecoverable(err) {
			return err
		}
		sh.Log.Errorf("Error: %v", err)
	}
	return nil
}

// readBatch reads one batch of tokens, pulling further lines while a
// definition stays open.
func (sh *Shell) readBatch(tz *Tokenizer) ([]Token, error) {
	line, err := sh.Lines.ReadLine("\nOK:\n")
	if err != nil {
		return nil, err
	}
	tokens := tz.Line(line)
	for openDefinition(tokens) {
		line, err = sh.Lines.ReadLine("...  ")
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tz.Line(line)...)
	}
	return tokens, nil
}

// systemTokens pre-empts the interpreter for the CLI surface words. The
// first result asks the shell to terminate; the second tells whether the
// batch was consumed here.
func (sh *Shell) systemTokens(ctx context.Context, tokens []Token) (exit, handled bool) {
	if len(tokens) == 0 {
		return false, true
	}
	switch name := canonical(tokens[0].Name); name {
	case "BYE", "EXIT":
		return true, true

	case "LOAD":
		sh.load(ctx)
		return false, true

	case "HELP":
		sh.VM.writeString(helpText + "\n")
		sh.VM.out.Flush()
		return false, true

	case "WORDS":
		dumper{vm: sh.VM}.words()
		sh.VM.out.Flush()
		return false, true
	}
	return false, false
}

// load prompts for a path and feeds the file through the pipeline under a
// fresh source id.
func (sh *Shell) load(ctx context.Context) {
	path, err := sh.Lines.ReadLine("Enter path to the Forth code file [.txt]:\n")
	if err != nil {
		sh.Log.Errorf("Wrong file path: %v", err)
		return
	}
	path = strings.TrimSpace(path)

	f, err := os.Open(path)
	if err != nil {
		sh.Log.Errorf("Cannot open the file: %v", path)
		return
	}
	defer f.Close()

	id := sh.VM.AddSource(path)
	tz := NewTokenizer(id)

	var batch []Token
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		batch = append(batch, tz.Line(sc.Text())...)
		if openDefinition(batch) {
			continue
		}
		if err := sh.eval(ctx, batch); err != nil {
			sh.Log.ErrorIf(err)
			return
		}
		batch = batch[:0]
	}
	if err := sc.Err(); err != nil {
		sh.Log.Errorf("Cannot read the file: %v", err)
		return
	}
	if len(batch) > 0 {
		sh.eval(ctx, batch)
	}
	fmt.Fprintln(os.Stdout, "File processed OK")
}

// line sources

type readlineSource struct{ rl *readline.Instance }

// NewReadlineSource builds an editing line source for interactive use.
func NewReadlineSource() (lineSource, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\nOK:\n",
		HistoryFile:       os.TempDir() + "/coforth_history",
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &readlineSource{rl: rl}, nil
}

func (rs *readlineSource) ReadLine(prompt string) (string, error) {
	rs.rl.SetPrompt(prompt)
	return rs.rl.Readline()
}

func (rs *readlineSource) Close() error { return rs.rl.Close() }

type plainSource struct {
	r   *bufio.Reader
	out io.Writer
}

// NewPlainSource reads lines without editing, echoing prompts to out.
func NewPlainSource(r io.Reader, out io.Writer) lineSource {
	return &plainSource{r: bufio.NewReader(r), out: out}
}

func (ps *plainSource) ReadLine(prompt string) (string, error) {
	if ps.out != nil {
		io.WriteString(ps.out, prompt)
	}
	line, err := ps.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (ps *plainSource) Close() error { return nil }
