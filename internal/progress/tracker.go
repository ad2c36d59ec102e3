// Package progress reports throughput and ETA for the compile pipeline's
// long-running stages.
package progress

import (
	"fmt"
	"time"
)

// Tracker tracks progress for one long-running stage.
type Tracker struct {
	totalBytes  int64
	startTime   time.Time
	description string
}

// NewTracker creates a new progress tracker against totalBytes (the
// mapped input file's size for every stage, since every stage scans the
// same file).
func NewTracker(totalBytes int64, description string) *Tracker {
	return &Tracker{
		totalBytes:  totalBytes,
		startTime:   time.Now(),
		description: description,
	}
}

// Progress holds current progress information.
type Progress struct {
	Current     int64
	Total       int64
	Percentage  float64
	Elapsed     time.Duration
	ETA         time.Duration
	Throughput  float64 // units per second
	Description string
}

// Calculate returns current progress metrics given the current item count
// and bytes processed so far.
func (t *Tracker) Calculate(currentCount int64, bytesProcessed int64) Progress {
	elapsed := time.Since(t.startTime)

	var percentage float64
	var eta time.Duration

	if t.totalBytes > 0 && bytesProcessed > 0 {
		percentage = float64(bytesProcessed) / float64(t.totalBytes) * 100
		if percentage > 0 && percentage < 100 {
			bytesPerSecond := float64(bytesProcessed) / elapsed.Seconds()
			remainingBytes := t.totalBytes - bytesProcessed
			if bytesPerSecond > 0 {
				eta = time.Duration(float64(remainingBytes)/bytesPerSecond) * time.Second
			}
		}
	}

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(currentCount) / elapsed.Seconds()
	}

	return Progress{
		Current:     currentCount,
		Total:       t.totalBytes,
		Percentage:  percentage,
		Elapsed:     elapsed.Round(time.Second),
		ETA:         eta.Round(time.Second),
		Throughput:  throughput,
		Description: t.description,
	}
}

// FormatETA formats the ETA duration in a human-readable format.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatThroughput formats throughput as human-readable items per second.
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}

// FormatBytes formats bytes in a human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
