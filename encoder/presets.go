package encoder

// Preset holds the encoder settings for one quality tier.
type Preset struct {
	Width        int
	Height       int
	VideoBitrate string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
}

// Presets maps quality label to encoder settings. 2160p switches to HEVC for
// the better compression efficiency at that resolution.
var Presets = map[string]Preset{
	"360p":  {640, 360, "800k", "libx264", "aac", "96k"},
	"480p":  {854, 480, "1400k", "libx264", "aac", "128k"},
	"720p":  {1280, 720, "2800k", "libx264", "aac", "128k"},
	"1080p": {1920, 1080, "5000k", "libx264", "aac", "192k"},
	"1440p": {2560, 1440, "9000k", "libx264", "aac", "192k"},
	"2160p": {3840, 2160, "16000k", "libx265", "aac", "192k"},
}

// DefaultLadder is the quality ladder scheduled for every ingested asset.
// Higher tiers stay available for manual re-enqueue.
var DefaultLadder = []string{"360p", "480p", "720p", "1080p"}

// PresetFor looks up the preset for a quality label.
func PresetFor(quality string) (Preset, bool) {
	p, ok := Presets[quality]
	return p, ok
}
