package directory

import (
	"fmt"
	"strings"
	"time"

	"torwatch/internal/app/node"
)

var bandwidthUnits = []string{"Bytes", "KBytes", "MBytes", "GBytes"}

// FormatBandwidth renders a byte rate with 1024 scaling, clamped at GBytes.
// Values past the top of the scale stay in GBytes rather than inventing units.
func FormatBandwidth(bytesPerSec int64) string {
	value := float64(bytesPerSec)
	unit := 0
	for value >= 1024 && unit < len(bandwidthUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, bandwidthUnits[unit])
}

// FormatUptime renders the elapsed time since lastRestarted. Durations of a
// month or more use 30-day buckets: "M months, D days, HH:MM:SS"; a day or
// more: "D days, HH:MM:SS"; otherwise just "HH:MM:SS".
func FormatUptime(lastRestarted, now time.Time) string {
	elapsed := now.Sub(lastRestarted)
	if elapsed < 0 {
		elapsed = 0
	}

	total := int64(elapsed.Seconds())
	const day = int64(24 * 60 * 60)

	months := total / (30 * day)
	total -= months * 30 * day
	days := total / day
	total -= days * day

	clock := fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)

	switch {
	case months >= 1:
		return fmt.Sprintf("%d months, %d days, %s", months, days, clock)
	case days >= 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	default:
		return clock
	}
}

// FormatStatusReport composes the multi-line status record sent to users.
// Missing nickname or country fall back to "N/A".
func FormatStatusReport(fp node.Fingerprint, info *RelayInfo, now time.Time) string {
	marker := "Offline!"
	if info.Running {
		marker = "Running..."
	}

	nickname := info.Nickname
	if nickname == "" {
		nickname = "N/A"
	}

	country := info.CountryName
	if country == "" {
		country = "N/A"
	}

	lines := []string{
		fmt.Sprintf("Fingerprint: %s", fp),
		marker,
		fmt.Sprintf("Nickname: %s", nickname),
		fmt.Sprintf("Country: %s", country),
		fmt.Sprintf("Bandwidth: %s/s", FormatBandwidth(info.BandwidthRate)),
		fmt.Sprintf("Uptime: %s", FormatUptime(info.LastRestarted, now)),
	}

	return strings.Join(lines, "\n")
}
