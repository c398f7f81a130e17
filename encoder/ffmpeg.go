package encoder

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"vidvault/logger"
)

// Transcode runs ffmpeg with the preset's parameters. Progress is parsed
// from ffmpeg's machine-readable -progress stream and reported as a fraction
// of the probed source duration.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, preset Preset, onProgress func(float64)) error {
	var duration float64
	if meta, err := f.Probe(ctx, input); err == nil {
		duration = meta.DurationSeconds
	}

	args := []string{
		"-i", input,
		"-vf", fmt.Sprintf("scale=%d:%d", preset.Width, preset.Height),
		"-c:v", preset.VideoCodec,
		"-b:v", preset.VideoBitrate,
		"-c:a", preset.AudioCodec,
		"-b:a", preset.AudioBitrate,
		"-progress", "pipe:1",
		"-nostats",
		"-y", output,
	}

	cmd := exec.CommandContext(ctx, f.FFmpegBin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "out_time_us=") {
			continue
		}
		if onProgress == nil || duration <= 0 {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64)
		if err != nil {
			continue
		}
		frac := float64(us) / 1e6 / duration
		if frac > 1 {
			frac = 1
		}
		onProgress(frac)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed for %s: %w", output, err)
	}

	logger.Debugf("transcoded %s -> %s (%dx%d %s)", input, output, preset.Width, preset.Height, preset.VideoBitrate)
	return nil
}

// ExtractStill grabs a single frame at the given offset.
func (f *FFmpeg) ExtractStill(ctx context.Context, input, output string, offsetSeconds float64) error {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", offsetSeconds),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", output,
	}
	cmd := exec.CommandContext(ctx, f.FFmpegBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg still at %.1fs: %w: %s", offsetSeconds, err, truncate(string(out), 256))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
