package config

import (
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
	"github.com/sacha-escudier/marangoni-spreading/internal/video"
)

const (
	defaultStorePath    = "ptrack.db"
	defaultFeatureColor = "#FF3030"
)

// Default returns a Config populated with repository defaults.
//
// Filter.SizeBound is deliberately left empty: Validate rejects it until the
// operator picks one of the supported bounds.
func Default() Config {
	return Config{
		Paths: Paths{
			StorePath: defaultStorePath,
		},
		Extract: Extract{
			Decoder:       video.DecoderFFmpeg,
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Prefix:        imaging.DefaultFramePrefix,
			Digits:        imaging.DefaultFrameDigits,
			Ext:           imaging.DefaultFrameExt,
		},
		Detect: Detect{
			Pattern:   "*." + imaging.DefaultFrameExt,
			Diameter:  11,
			MinMass:   100,
			Invert:    detection.DefaultInvert,
			NoiseSize: detection.DefaultNoiseSize,
		},
		Link: Link{
			Method:      tracking.MethodHungarian,
			SearchRange: tracking.DefaultSearchRange,
			Memory:      tracking.DefaultMemory,
		},
		Filter: Filter{
			MinLength: 25,
			MaxSize:   tracking.DefaultMaxSize,
			MaxEcc:    tracking.DefaultMaxEcc,
			Order:     string(tracking.StubsFirst),
		},
		Render: Render{
			FeatureColor: defaultFeatureColor,
			Radius:       0,
			Scale:        1,
			LineWidth:    1,
			Labels:       true,
		},
		Explore: Explore{
			FrameNumber: -1,
			Bins:        20,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
