package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/timetravel"
)

const (
	historyFile = ".javelin_history"
	promptMain  = "jrt> "
	promptCont  = " ... "
	replBanner  = "Javelin REPL. Ctrl+C cancels input, Ctrl+D exits. Type :help for commands."
	replHelp    = `
REPL commands:
  :help            Show this help
  :quit / :exit    Exit the REPL
  :load <file>     Append a file's statements to the session
  :reset           Discard the session and start over
  :heap            Show heap and arena occupancy after the last run
  :gc              Force a collection cycle
  :back            Step the time-travel cursor backward
  :forward         Step the time-travel cursor forward

Statements accumulate: each input is appended to the session and the
whole session is reinterpreted, printing only the new output.
`
)

// replSession reinterprets the accumulated statements after every
// accepted input and tracks what was already printed.
type replSession struct {
	eng    *engine.Engine
	ctx    context.Context
	chunks []string

	prevOutput   string
	prevSafety   int
	prevDeadline int
}

func runREPL() error {
	cfg := config.Global().Get()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(replBanner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	sess := &replSession{eng: eng, ctx: ctx}

	for ctx.Err() == nil {
		code, ok := readStatement(ln)
		if !ok { // Ctrl+D
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			if done := sess.command(trimmed); done {
				break
			}
			continue
		}

		sess.eval(code)
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}

// readStatement accumulates lines until the parser accepts the buffer
// or reports an error that is not just truncated input.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the current input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if !looksIncomplete(src) {
			return src, true
		}
	}
}

// looksIncomplete reports whether src fails to parse in a way that
// more input could fix: an open brace, paren, string, or comment.
func looksIncomplete(src string) bool {
	diags, _ := checkSource(src)
	for _, d := range diags {
		if d.Rule != "syntax" {
			continue
		}
		if strings.Contains(d.Message, "found end of input") ||
			strings.Contains(d.Message, "unterminated string") ||
			strings.Contains(d.Message, "unterminated block comment") {
			return true
		}
	}
	return false
}

// eval appends chunk to the session if the combined program is
// accepted, printing only output beyond what earlier runs produced.
func (s *replSession) eval(chunk string) {
	// Lines added by this chunk; diagnostics before this are old news.
	startLine := 1
	if len(s.chunks) > 0 {
		startLine = strings.Count(strings.Join(s.chunks, "\n"), "\n") + 2
	}

	candidate := append(append([]string{}, s.chunks...), chunk)
	res, err := s.eng.Interpret(s.ctx, strings.Join(candidate, "\n"))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	// Syntax and validator errors poison every later run, so the
	// offending input is dropped rather than kept in the session.
	if rejected := s.printRejection(res); rejected {
		return
	}

	s.chunks = candidate
	s.printDelta(res, startLine)
	s.prevOutput = res.Output
	s.prevSafety = len(res.SafetyViolations)
	s.prevDeadline = len(res.DeadlineViolations)
}

func (s *replSession) printRejection(res *engine.Result) bool {
	for _, d := range res.Diagnostics {
		if d.Severity == analysis.Error {
			fmt.Printf("rejected: %s\n", d)
			return true
		}
	}
	if res.Halted {
		fmt.Println("rejected: execution halted")
		for _, v := range res.SafetyViolations[min(s.prevSafety, len(res.SafetyViolations)):] {
			fmt.Printf("  %s\n", v)
		}
		return true
	}
	return false
}

func (s *replSession) printDelta(res *engine.Result, startLine int) {
	out := res.Output
	if strings.HasPrefix(out, s.prevOutput) {
		out = out[len(s.prevOutput):]
	}
	if out != "" {
		fmt.Print(out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Println()
		}
	}

	for _, v := range res.SafetyViolations[min(s.prevSafety, len(res.SafetyViolations)):] {
		fmt.Printf("warning: %s\n", v)
	}
	for _, v := range res.DeadlineViolations[min(s.prevDeadline, len(res.DeadlineViolations)):] {
		fmt.Printf("warning: %s\n", v)
	}
	for _, d := range res.Diagnostics {
		if d.Line >= startLine {
			fmt.Printf("warning: %s\n", d)
		}
	}
}

func (s *replSession) command(line string) (exit bool) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Print(replHelp)

	case ":quit", ":exit":
		return true

	case ":reset":
		s.chunks = nil
		s.prevOutput = ""
		s.prevSafety = 0
		s.prevDeadline = 0
		fmt.Println("session reset.")

	case ":load":
		if len(fields) < 2 {
			fmt.Println("usage: :load <file>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Printf("cannot read %s: %v\n", fields[1], err)
			return false
		}
		s.eval(string(src))

	case ":heap":
		st := s.eng.HeapStatus()
		fmt.Printf("heap: %d/%d bytes (%.1f%%), %d objects\n",
			st.Used, st.Max, st.Percent, st.Counters.Objects)
		fmt.Printf("arena: %d/%d bytes\n", st.OffHeap.Allocated, st.OffHeap.Total)

	case ":gc":
		sample := s.eng.TriggerGC()
		fmt.Printf("collection %d: pause %.2fms, freed %d, heap %.1f%%\n",
			sample.Collections, sample.PauseTimeMs, sample.FreedCount, sample.HeapUsagePct)

	case ":back":
		printSnapshot(s.eng.StepBack())

	case ":forward":
		printSnapshot(s.eng.StepForward())

	default:
		fmt.Println("unknown command. Type :help for help.")
	}
	return false
}

func printSnapshot(snap *timetravel.Snapshot) {
	if snap == nil {
		fmt.Println("no snapshots captured.")
		return
	}
	fmt.Printf("snapshot %d @ line %d: heap %d/%d bytes, %d objects\n",
		snap.ID, snap.Line, snap.Heap.UsedBytes, snap.Heap.MaxBytes, snap.Heap.Objects)
	for _, v := range snap.Variables {
		fmt.Printf("  %s = %s\n", v.Name, v.Value)
	}
}
