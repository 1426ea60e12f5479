//go:build windows

package audio

// DirectShow has no safe default, so the first listed input is used.
func platformBackend() backend {
	return backend{
		binary:  "ffmpeg",
		args:    ffmpegCapture("dshow", true),
		listing: dshowListing,
	}
}
