// Package command receives operator commands that steer the session
// supervisor: forcing a detection run outside market hours, restarting
// the stream, and driving the daily summary handshake.
package command

import "strings"

// Kind identifies an operator command.
type Kind int

const (
	// Unknown is returned for text that is not a recognized command.
	Unknown Kind = iota
	// Force starts a detection run even outside the market window.
	Force
	// Restart tears down the current run and starts a fresh one.
	Restart
	// SendSummary requests the daily top-movers summary.
	SendSummary
	// SummaryDone acknowledges the summary and stops the resend cadence.
	SummaryDone
)

// String returns the canonical command word.
func (k Kind) String() string {
	switch k {
	case Force:
		return "force"
	case Restart:
		return "restart"
	case SendSummary:
		return "send"
	case SummaryDone:
		return "done"
	}
	return "unknown"
}

// Command is one parsed operator instruction.
type Command struct {
	Kind Kind
	// Raw is the original message text, kept for logging.
	Raw string
}

// Parse maps free-form operator text onto a command. Matching is
// case-insensitive and tolerant of surrounding whitespace; "start" and
// "start now" are accepted aliases for force.
func Parse(text string) Command {
	cmd := Command{Raw: text}
	switch strings.ToLower(strings.Join(strings.Fields(text), " ")) {
	case "force", "start", "start now":
		cmd.Kind = Force
	case "restart":
		cmd.Kind = Restart
	case "send":
		cmd.Kind = SendSummary
	case "done":
		cmd.Kind = SummaryDone
	default:
		cmd.Kind = Unknown
	}
	return cmd
}
