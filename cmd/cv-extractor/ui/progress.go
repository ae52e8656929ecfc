package ui

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// Spinner wraps a spinner instance for indeterminate progress display.
// It is inert when output is not animated.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	if !Animated() {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	if s.spinner != nil {
		s.spinner.Lock()
		s.spinner.Suffix = " " + message
		s.spinner.Unlock()
	}
}

// PageCounter counts recognized pages. The page total is unknown until OCR
// finishes, so the bar runs in spinner mode.
type PageCounter struct {
	bar *progressbar.ProgressBar
}

// NewPageCounter creates a page counter with the given description.
func NewPageCounter(description string) *PageCounter {
	if !Animated() {
		return &PageCounter{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
	)
	return &PageCounter{bar: bar}
}

// Add records one finished page.
func (p *PageCounter) Add() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the counter.
func (p *PageCounter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
