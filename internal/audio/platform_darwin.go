//go:build darwin

package audio

func platformBackend() backend {
	return backend{
		binary:   "ffmpeg",
		fallback: ":0",
		args:     ffmpegCapture("avfoundation", false),
		listing:  avfoundationListing,
	}
}
