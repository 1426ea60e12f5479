//go:build linux

package audio

func platformBackend() backend {
	return backend{
		binary:   "arecord",
		fallback: "default",
		args:     arecordCapture,
		listing:  arecordListing,
	}
}
