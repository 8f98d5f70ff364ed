package cliptime

import (
	"errors"
	"fmt"
)

type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*s = SeverityNone
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

const (
	MinManualDuration = 5
	MaxClipDuration   = 30 * 60
	shortClipDuration = 30
	maxStartOffset    = 4 * 60 * 60

	// A value just past an hour boundary that stays under 90 hours is what a
	// minutes figure multiplied by 3600 instead of 60 looks like.
	unitSuspectFloor     = 3600
	unitSuspectRemainder = 120
	unitSuspectMaxHours  = 90
)

var ErrInvalidDuration = errors.New("invalid clip duration")

type Timing struct {
	Start int `json:"startTimeSeconds"`
	End   int `json:"endTimeSeconds"`
}

type Report struct {
	IsValid         bool     `json:"isValid"`
	Issues          []string `json:"issues"`
	Severity        Severity `json:"severity"`
	SuggestedAction string   `json:"suggestedAction"`
}

// Validate inspects clip timing and never modifies it. Severity is the worst
// finding across all checks.
func Validate(t Timing) Report {
	r := Report{Issues: make([]string, 0)}
	flag := func(sev Severity, format string, args ...any) {
		r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
		if sev > r.Severity {
			r.Severity = sev
		}
	}

	duration := t.End - t.Start
	switch {
	case duration < 0:
		flag(SeverityHigh, "negative duration: end %ds is before start %ds", t.End, t.Start)
	case duration == 0:
		flag(SeverityMedium, "zero duration: start and end are both %ds", t.Start)
	case duration > MaxClipDuration:
		flag(SeverityHigh, "duration %ds exceeds the %ds maximum", duration, MaxClipDuration)
	case duration < shortClipDuration:
		flag(SeverityLow, "duration %ds is shorter than %ds", duration, shortClipDuration)
	}

	if t.Start > maxStartOffset {
		flag(SeverityHigh, "start %ds (%s) is more than 4 hours into the video", t.Start, FormatSeconds(t.Start))
	}

	for _, field := range []struct {
		name  string
		value int
	}{{"start", t.Start}, {"end", t.End}} {
		if suspectUnitError(field.value) {
			flag(SeverityMedium, "%s %ds (%s) looks like minutes multiplied by 3600 instead of 60",
				field.name, field.value, FormatSeconds(field.value))
		}
	}

	r.IsValid = len(r.Issues) == 0
	r.SuggestedAction = suggestedAction(r.Severity)
	return r
}

func suspectUnitError(v int) bool {
	return v > unitSuspectFloor && v%3600 < unitSuspectRemainder && v/3600 < unitSuspectMaxHours
}

func suggestedAction(s Severity) string {
	switch s {
	case SeverityHigh:
		return "review immediately"
	case SeverityMedium:
		return "review when convenient"
	default:
		return "no action needed"
	}
}

// CheckManualDuration enforces the bounds for clips created by hand.
func CheckManualDuration(start, end int) error {
	if end <= start {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidDuration)
	}
	d := end - start
	if d < MinManualDuration {
		return fmt.Errorf("%w: clip must be at least %d seconds long", ErrInvalidDuration, MinManualDuration)
	}
	if d > MaxClipDuration {
		return fmt.Errorf("%w: clip must be at most %d minutes long", ErrInvalidDuration, MaxClipDuration/60)
	}
	return nil
}

type TimedClip struct {
	ID    string `json:"id"`
	Start int    `json:"startTimeSeconds"`
	End   int    `json:"endTimeSeconds"`
}

type FlaggedClip struct {
	TimedClip
	Validation Report `json:"validation"`
}

type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type BatchResult struct {
	Valid   []TimedClip    `json:"valid"`
	Flagged []FlaggedClip  `json:"flagged"`
	Counts  SeverityCounts `json:"counts"`
}

// ValidateBatch splits clips into those with clean timing and those with findings.
func ValidateBatch(clips []TimedClip) BatchResult {
	res := BatchResult{
		Valid:   make([]TimedClip, 0, len(clips)),
		Flagged: make([]FlaggedClip, 0),
	}
	for _, c := range clips {
		report := Validate(Timing{Start: c.Start, End: c.End})
		if report.IsValid {
			res.Valid = append(res.Valid, c)
			continue
		}
		res.Flagged = append(res.Flagged, FlaggedClip{TimedClip: c, Validation: report})
		switch report.Severity {
		case SeverityHigh:
			res.Counts.High++
		case SeverityMedium:
			res.Counts.Medium++
		case SeverityLow:
			res.Counts.Low++
		}
	}
	return res
}
