// Package encoder drives the external ffmpeg/ffprobe tools for transcoding,
// still extraction and source analysis. The tools are opaque: we hand them
// parameters and watch for success, failure and progress ticks.
package encoder

import (
	"context"
	"os/exec"

	"vidvault/logger"
	"vidvault/models"
)

// Transcoder is what the processing pipeline needs from an encoder.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string, preset Preset, onProgress func(float64)) error
	Probe(ctx context.Context, input string) (*models.VideoMetadata, error)
	ExtractStill(ctx context.Context, input, output string, offsetSeconds float64) error
}

// FFmpeg shells out to ffmpeg and ffprobe.
type FFmpeg struct {
	FFmpegBin  string
	FFprobeBin string
}

// NewFFmpeg returns an FFmpeg transcoder with the default binary names.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{FFmpegBin: "ffmpeg", FFprobeBin: "ffprobe"}
}

// Available checks that both binaries are on PATH, logging what is missing.
func (f *FFmpeg) Available() bool {
	ok := true
	for _, bin := range []string{f.FFmpegBin, f.FFprobeBin} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warnf("encoder tool '%s' not found in PATH", bin)
			ok = false
		}
	}
	return ok
}
