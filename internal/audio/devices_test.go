package audio

import (
	"slices"
	"testing"
)

func TestDeviceListingParse(t *testing.T) {
	tests := []struct {
		name    string
		listing deviceListing
		output  string
		want    []Device
	}{
		{
			name:    "arecord",
			listing: arecordListing,
			output: "**** List of CAPTURE Hardware Devices ****\n" +
				"card 0: PCH [HDA Intel PCH], device 0: ALC3246 Analog [ALC3246 Analog]\n" +
				"  Subdevices: 1/1\n" +
				"card 2: Headset [Jabra Evolve2 40], device 0: USB Audio [USB Audio]\n",
			want: []Device{
				{ID: "default:CARD=PCH", Name: "HDA Intel PCH"},
				{ID: "default:CARD=Headset", Name: "Jabra Evolve2 40"},
			},
		},
		{
			name:    "avfoundation skips video section",
			listing: avfoundationListing,
			output: "[AVFoundation indev @ 0x1] AVFoundation video devices:\n" +
				"[AVFoundation indev @ 0x1] [0] FaceTime HD Camera\n" +
				"[AVFoundation indev @ 0x1] AVFoundation audio devices:\n" +
				"[AVFoundation indev @ 0x1] [0] MacBook Pro Microphone\n" +
				"[AVFoundation indev @ 0x1] [1] USB Mic \n",
			want: []Device{
				{ID: ":0", Name: "MacBook Pro Microphone"},
				{ID: ":1", Name: "USB Mic"},
			},
		},
		{
			name:    "dshow audio only",
			listing: dshowListing,
			output: "[dshow @ 0x1] \"Integrated Camera\" (video)\n" +
				"[dshow @ 0x1] \"Microphone Array (Realtek)\" (audio)\n" +
				"[dshow @ 0x1]   Alternative name \"@device_cm_{33D9A762}\\wave_{A1B2}\"\n",
			want: []Device{
				{ID: "audio=Microphone Array (Realtek)", Name: "Microphone Array (Realtek)"},
			},
		},
		{
			name:    "nothing recognised",
			listing: arecordListing,
			output:  "arecord: device_list:279: no soundcards found...\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.listing.parse(tt.output)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCaptureArgs(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 1}

	args := arecordCapture("default:CARD=PCH", f)
	if !slices.Contains(args, "16000") || !slices.Contains(args, "default:CARD=PCH") {
		t.Errorf("arecord args missing rate or device: %v", args)
	}

	unix := ffmpegCapture("avfoundation", false)(":1", f)
	if !slices.Contains(unix, "-nostdin") {
		t.Errorf("expected -nostdin in %v", unix)
	}
	if unix[len(unix)-1] != "pipe:1" {
		t.Errorf("expected output on pipe:1, got %q", unix[len(unix)-1])
	}

	windows := ffmpegCapture("dshow", true)("audio=Mic", f)
	if slices.Contains(windows, "-nostdin") {
		t.Errorf("stdin must stay open for dshow: %v", windows)
	}
}
