// Package ui is the bundled reference terminal renderer for the event
// bus (spec.md §6 "Event bus surface"): it is an external collaborator,
// not part of the core protocol, and any alternative renderer could
// subscribe to the same Bus instead.
package ui

import (
	"bufio"
	"fmt"
	"os"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/shorthop/shorthop/internal/events"
)

// Renderer drains a Bus and prints a human-readable transcript of the
// session to stdout, answering Prompt events from stdin.
type Renderer struct {
	bus  *events.Bus
	tty  bool
	bar  *progressbar.ProgressBar
	spin *spinner.Spinner
	in   *bufio.Scanner
}

// New builds a Renderer for bus. Output degrades to plain, uncolored
// lines when stdout is not a terminal (e.g. piped into a log file).
func New(bus *events.Bus) *Renderer {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	color.NoColor = !tty

	return &Renderer{
		bus: bus,
		tty: tty,
		in:  bufio.NewScanner(os.Stdin),
	}
}

// Run consumes events for as long as the process lives: Bus.Close does
// not close the events channel, so Run does not return on its own. It
// is meant to run on its own goroutine alongside the session.
func (r *Renderer) Run() {
	for ev := range r.bus.Events() {
		switch ev.Kind {
		case events.KindStatus:
			r.stopSpinner()
			color.Cyan("%s", ev.Text)
		case events.KindProgress:
			r.renderProgress(ev.Text)
		case events.KindFileEnd:
			r.finishProgress()
		case events.KindPrompt:
			r.stopSpinner()
			reply := r.ask(ev.Text)
			r.bus.Reply(reply)
		case events.KindError:
			r.stopSpinner()
			color.Yellow("%s", ev.Text)
		case events.KindFatal:
			r.stopSpinner()
			color.Red("fatal: %s", ev.Text)
		case events.KindTime:
			color.Cyan("time remaining: %ds", ev.Seconds)
		case events.KindDone:
			r.stopSpinner()
			color.Green("done")
		}
	}
}

// Waiting shows a spinner until the first Status, Prompt, Error, Fatal
// or Done event stops it. On a non-tty stream it prints text as a plain
// line instead — the spinner has no meaning without a cursor to own.
func (r *Renderer) Waiting(text string) {
	if !r.tty {
		fmt.Println(text)
		return
	}
	r.spin = spinner.New(spinner.CharSets[11], spinnerInterval)
	r.spin.Suffix = " " + text
	r.spin.Start()
}

const spinnerInterval = 100_000_000 // 100ms, in time.Duration's ns units

func (r *Renderer) stopSpinner() {
	if r.spin != nil && r.spin.Active() {
		r.spin.Stop()
	}
}

// renderProgress draws or redraws the progress bar for the
// "File: ...  Progress: x/y" text the core emits. On a non-tty stream
// this just logs the line.
func (r *Renderer) renderProgress(text string) {
	if !r.tty {
		fmt.Println(text)
		return
	}
	if r.bar == nil {
		r.bar = progressbar.DefaultBytes(-1, text)
	}
	r.bar.Describe(text)
	_ = r.bar.Add(0)
}

func (r *Renderer) finishProgress() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// ask prints prompt and blocks for one line of stdin input.
func (r *Renderer) ask(prompt string) string {
	color.Magenta("%s", prompt)
	if !r.in.Scan() {
		return "s"
	}
	return r.in.Text()
}
