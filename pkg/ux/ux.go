// Package ux provides user experience utilities for remedy's command-line
// interface: colored output formatting, progress tracking, spinners, and
// consistent message styling for success, error, warning, and informational
// messages.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Color definitions for consistent output
var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
)

// PrintSuccess prints a success message with green checkmark
func PrintSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", Success("✓"), msg)
}

// PrintError prints an error message with red X
func PrintError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", Error("✗"), msg)
}

// PrintWarning prints a warning message with yellow triangle
func PrintWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", Warning("⚠"), msg)
}

// PrintInfo prints an info message with cyan dot
func PrintInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", Info("•"), msg)
}

// PrintHeader prints a bold header
func PrintHeader(text string) {
	fmt.Println(Bold(text))
	fmt.Println(Bold(strings.Repeat("=", len(text))))
	fmt.Println()
}

// PrintSection prints a section header
func PrintSection(text string) {
	fmt.Println()
	fmt.Println(Bold(text))
}

// NewProgressBar creates a new progress bar with consistent styling
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
	)
}

// ProgressFunc returns a callback that drives a progress bar, sized from the
// total reported on the first invocation. A non-positive total draws nothing.
func ProgressFunc(description string) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if total <= 0 {
			return
		}
		if bar == nil {
			bar = NewProgressBar(total, description)
		}
		_ = bar.Add(1)
	}
}

// Spinner is a simple text-based spinner for the AI ordering call
type Spinner struct {
	message string
	frames  []string
	index   int
	done    chan bool
	writer  io.Writer
}

// NewSpinner creates a new spinner with a message
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan bool),
		writer:  os.Stdout,
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				// Clear the line
				fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+5))
				return
			case <-ticker.C:
				frame := s.frames[s.index%len(s.frames)]
				fmt.Fprintf(s.writer, "\r%s %s", Info(frame), s.message)
				s.index++
			}
		}
	}()
}

// Stop stops the spinner
func (s *Spinner) Stop() {
	s.done <- true
	close(s.done)
}

// StopWithSuccess stops the spinner and shows success
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	PrintSuccess(message)
}

// StopWithError stops the spinner and shows error
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	PrintError(message)
}

// FormatCost formats a cost value with color
func FormatCost(cost float64) string {
	if cost < 0.01 {
		return Success(fmt.Sprintf("$%.4f", cost))
	} else if cost < 0.10 {
		return Info(fmt.Sprintf("$%.4f", cost))
	} else if cost < 1.00 {
		return Warning(fmt.Sprintf("$%.4f", cost))
	}
	return Error(fmt.Sprintf("$%.4f", cost))
}

// FormatTokens formats token count with color
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return Success(fmt.Sprintf("%d", tokens))
	} else if tokens < 5000 {
		return Info(fmt.Sprintf("%d", tokens))
	}
	return Warning(fmt.Sprintf("%d", tokens))
}

// FormatConfidence colors a step confidence: green when high, yellow when
// middling, red when heavily penalized
func FormatConfidence(confidence float64) string {
	s := fmt.Sprintf("%.0f%%", confidence*100)
	if confidence >= 0.8 {
		return Success(s)
	} else if confidence >= 0.5 {
		return Warning(s)
	}
	return Error(s)
}

// FormatRisk colors a risk score by magnitude
func FormatRisk(risk float64) string {
	s := fmt.Sprintf("%.2f", risk)
	if risk >= 0.7 {
		return Error(s)
	} else if risk >= 0.4 {
		return Warning(s)
	}
	return Success(s)
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return Dim(d.Round(time.Millisecond).String())
	}
	return Dim(d.Round(time.Second).String())
}

// IsTerminal checks if output is going to a terminal
func IsTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
