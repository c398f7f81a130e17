package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"vidvault/models"
)

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		Channels     int    `json:"channels"`
	} `json:"streams"`
}

// Probe runs ffprobe and assembles the source metadata.
func (f *FFmpeg) Probe(ctx context.Context, input string) (*models.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, f.FFprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", input, err)
	}

	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return nil, fmt.Errorf("ffprobe output parse: %w", err)
	}

	meta := &models.VideoMetadata{}
	meta.DurationSeconds, _ = strconv.ParseFloat(po.Format.Duration, 64)
	meta.Bitrate, _ = strconv.Atoi(po.Format.BitRate)
	meta.SizeBytes, _ = strconv.ParseInt(po.Format.Size, 10, 64)

	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			meta.Width = s.Width
			meta.Height = s.Height
			meta.VideoCodec = s.CodecName
			meta.FrameRate = parseFrameRate(s.RFrameRate)
		case "audio":
			meta.AudioCodec = s.CodecName
			meta.AudioChannels = s.Channels
		}
	}

	if meta.Width > 0 && meta.Height > 0 {
		meta.AspectRatio = aspectRatio(meta.Width, meta.Height)
	}
	return meta, nil
}

// parseFrameRate converts ffprobe's "num/den" rational to a float.
func parseFrameRate(r string) float64 {
	parts := strings.SplitN(r, "/", 2)
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(r, 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func aspectRatio(w, h int) string {
	g := gcd(w, h)
	return fmt.Sprintf("%d:%d", w/g, h/g)
}

func gcd(a, b int) int {
	a, b = int(math.Abs(float64(a))), int(math.Abs(float64(b)))
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
