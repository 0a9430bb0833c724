package duplicates

import (
	"strings"
	"time"
)

// PriorScan is an earlier internal kanban scan of a serial.
type PriorScan struct {
	Serial    string
	ScannedAt time.Time
}

// IsDuplicate reports whether serial was already scanned inside the window
// [now-window, now). Scans at or after now are not counted.
func IsDuplicate(serial string, prior []PriorScan, now time.Time, windowHours int, allowDuplicates bool) bool {
	if allowDuplicates || serial == "" || windowHours <= 0 {
		return false
	}

	from := now.Add(-time.Duration(windowHours) * time.Hour)
	for _, p := range prior {
		if p.Serial != serial {
			continue
		}
		if !p.ScannedAt.Before(from) && p.ScannedAt.Before(now) {
			return true
		}
	}
	return false
}

type Decision int

const (
	Clear Decision = iota
	Alert
	Block
)

func (d Decision) String() string {
	switch d {
	case Clear:
		return "clear"
	case Alert:
		return "alert"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

type Policy struct {
	WindowHours      int
	AllowDuplicates  bool
	AlertOnDuplicate bool
	ExcludedParts    []string
}

// Since is the lower edge of the window for a scan taken at now. Callers
// use it to bound the prior scans they load.
func (p Policy) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(p.WindowHours) * time.Hour)
}

func (p Policy) Excluded(partNumber string) bool {
	partNumber = strings.TrimSpace(partNumber)
	for _, excluded := range p.ExcludedParts {
		if strings.EqualFold(strings.TrimSpace(excluded), partNumber) {
			return true
		}
	}
	return false
}

// Evaluate decides what happens to a scan of serial for partNumber.
func (p Policy) Evaluate(partNumber, serial string, prior []PriorScan, now time.Time) Decision {
	if p.Excluded(partNumber) {
		return Clear
	}
	if !IsDuplicate(serial, prior, now, p.WindowHours, p.AllowDuplicates) {
		return Clear
	}
	if p.AlertOnDuplicate {
		return Alert
	}
	return Block
}
