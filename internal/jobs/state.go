package jobs

import (
	"fmt"
	"strings"
)

// Kind names the variant of a State.
type Kind string

const (
	KindIdle        Kind = "idle"
	KindAnalyzing   Kind = "analyzing"
	KindDownloading Kind = "downloading"
	KindConverting  Kind = "converting"
	KindCompleted   Kind = "completed"
	KindError       Kind = "error"
)

// Status messages emitted by the orchestration core.
const (
	MessageAnalyzingLink     = "Analyzing link..."
	MessageAnalyzingPlaylist = "Analyzing playlist..."
	MessageConverting        = "Converting to audio..."
	MessageCancelled         = "Download cancelled"
	MessageSingleItem        = "single item detected"
	MessageAnalysisFailed    = "analysis failed"
)

// State is the lifecycle state of a job. Only the fields that belong to Kind
// are meaningful; constructors keep the others zero.
type State struct {
	Kind Kind `json:"kind"`
	// Message is set for analyzing, converting, and error.
	Message string `json:"message,omitempty"`
	// Progress is the download fraction in [0,1].
	Progress float64 `json:"progress"`
	Speed    string  `json:"speed"`
	ETA      string  `json:"eta"`
	// OutputDir is set on completion.
	OutputDir string `json:"output_dir,omitempty"`
}

func Idle() State { return State{Kind: KindIdle} }

func Analyzing(message string) State { return State{Kind: KindAnalyzing, Message: message} }

// Downloading clamps progress into [0,1].
func Downloading(progress float64, speed, eta string) State {
	switch {
	case progress < 0 || progress != progress:
		progress = 0
	case progress > 1:
		progress = 1
	}
	return State{Kind: KindDownloading, Progress: progress, Speed: speed, ETA: eta}
}

func Converting(message string) State { return State{Kind: KindConverting, Message: message} }

func Completed(outputDir string) State { return State{Kind: KindCompleted, OutputDir: outputDir} }

func Failed(message string) State { return State{Kind: KindError, Message: message} }

// IsTerminal reports whether no further transitions are accepted.
func (s State) IsTerminal() bool {
	return s.Kind == KindCompleted || s.Kind == KindError
}

// Percent returns the download progress as 0-100.
func (s State) Percent() float64 {
	return s.Progress * 100
}

// String renders a compact, log-friendly description.
func (s State) String() string {
	switch s.Kind {
	case KindDownloading:
		parts := []string{fmt.Sprintf("downloading %.1f%%", s.Percent())}
		if s.Speed != "" {
			parts = append(parts, "at "+s.Speed)
		}
		if s.ETA != "" {
			parts = append(parts, "eta "+s.ETA)
		}
		return strings.Join(parts, " ")
	case KindCompleted:
		return "completed: " + s.OutputDir
	case KindAnalyzing, KindConverting, KindError:
		if s.Message == "" {
			return string(s.Kind)
		}
		return string(s.Kind) + ": " + s.Message
	case "":
		return string(KindIdle)
	default:
		return string(s.Kind)
	}
}
