package audio

import (
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// deviceListing describes how a platform tool prints its input devices.
type deviceListing struct {
	argv []string
	// begin and end bracket the audio section. An empty begin means every
	// line is considered.
	begin    string
	end      string
	pattern  *regexp.Regexp
	device   func(m []string) Device
	fallback []Device
}

var (
	arecordListing = deviceListing{
		argv:    []string{"arecord", "-l"},
		pattern: regexp.MustCompile(`card\s+(\d+):\s+(\w+)\s+\[([^\]]+)\]`),
		device: func(m []string) Device {
			return Device{ID: "default:CARD=" + m[2], Name: m[3]}
		},
		fallback: []Device{{ID: "default", Name: "System default"}},
	}

	avfoundationListing = deviceListing{
		argv:    []string{"ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""},
		begin:   "AVFoundation audio devices:",
		end:     "AVFoundation video devices:",
		pattern: regexp.MustCompile(`\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*(.+)`),
		device: func(m []string) Device {
			return Device{ID: ":" + m[1], Name: strings.TrimSpace(m[2])}
		},
	}

	// Output differs between FFmpeg releases; only "(audio)" lines are stable.
	dshowListing = deviceListing{
		argv:    []string{"ffmpeg", "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"},
		pattern: regexp.MustCompile(`\[dshow[^\]]*\]\s*"([^"]+)"\s*\(audio\)`),
		device: func(m []string) Device {
			name := strings.TrimSpace(m[1])
			return Device{ID: "audio=" + name, Name: name}
		},
	}
)

func (l deviceListing) run() []Device {
	// FFmpeg exits non-zero after listing, so only empty output is a failure.
	out, err := exec.Command(l.argv[0], l.argv[1:]...).CombinedOutput() //nolint:gosec // fixed per-platform argv
	if err != nil && len(out) == 0 {
		slog.Warn("device listing failed", "command", l.argv[0], "error", err)
		return l.fallback
	}
	if found := l.parse(string(out)); len(found) > 0 {
		return found
	}
	return l.fallback
}

func (l deviceListing) parse(out string) []Device {
	var found []Device
	active := l.begin == ""

	for _, line := range strings.Split(out, "\n") {
		switch {
		case l.begin != "" && strings.Contains(line, l.begin):
			active = true
			continue
		case l.end != "" && strings.Contains(line, l.end):
			active = false
			continue
		case !active, strings.Contains(line, "Alternative name"):
			continue
		}
		if m := l.pattern.FindStringSubmatch(line); m != nil {
			found = append(found, l.device(m))
		}
	}
	return found
}
