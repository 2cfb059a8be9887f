package engine

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig selects the trigger hardware.
type SerialConfig struct {
	Port   string `json:"port" mapstructure:"port"`
	Baud   int    `json:"baud" mapstructure:"baud"`
	Driver string `json:"driver" mapstructure:"driver"` // "serial" or "dlp"
}

// ScreenConfig holds the window setup.
type ScreenConfig struct {
	Width      int  `json:"width" mapstructure:"width"`
	Height     int  `json:"height" mapstructure:"height"`
	Fullscreen bool `json:"fullscreen" mapstructure:"fullscreen"`
	VSync      bool `json:"vsync" mapstructure:"vsync"`
}

// TimingConfig holds the protocol phase lengths in seconds.
type TimingConfig struct {
	Rest        float64 `json:"rest" mapstructure:"rest"`
	Cue         float64 `json:"cue" mapstructure:"cue"`
	Flicker     float64 `json:"flicker" mapstructure:"flicker"`
	Feedback    float64 `json:"feedback" mapstructure:"feedback"`
	TagInterval float64 `json:"tagInterval" mapstructure:"tagInterval"`
	TrialCount  int     `json:"trialCount" mapstructure:"trialCount"`
}

// Config is the full session configuration.
type Config struct {
	Mode          string       `json:"mode" mapstructure:"mode"`
	LayoutFile    string       `json:"layoutFile" mapstructure:"layoutFile"`
	StimulusCount int          `json:"stimulusCount" mapstructure:"stimulusCount"` // used when no layout file is given
	OutputFile    string       `json:"outputFile" mapstructure:"outputFile"`
	LogLevel      string       `json:"logLevel" mapstructure:"logLevel"`
	Serial        SerialConfig `json:"serial" mapstructure:"serial"`
	Screen        ScreenConfig `json:"screen" mapstructure:"screen"`
	Timing        TimingConfig `json:"timing" mapstructure:"timing"`
}

// LoadConfig reads the JSON config file at path, filling every unset knob
// with its default. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("mode", "offline")
	v.SetDefault("layoutFile", "")
	v.SetDefault("stimulusCount", 6)
	v.SetDefault("outputFile", "session.csv")
	v.SetDefault("logLevel", "info")

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.driver", "serial")

	v.SetDefault("screen.width", 1920)
	v.SetDefault("screen.height", 1080)
	v.SetDefault("screen.fullscreen", false)
	v.SetDefault("screen.vsync", true)

	v.SetDefault("timing.rest", 1.0)
	v.SetDefault("timing.cue", 1.0)
	v.SetDefault("timing.flicker", 2.0)
	v.SetDefault("timing.feedback", 0.5)
	v.SetDefault("timing.tagInterval", 2.0)
	v.SetDefault("timing.trialCount", 5)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the session cannot start with.
func (c *Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	switch c.Serial.Driver {
	case "serial", "dlp":
	default:
		return fmt.Errorf("unknown serial driver %q", c.Serial.Driver)
	}
	if c.LayoutFile == "" && c.StimulusCount < 1 {
		return fmt.Errorf("stimulus count must be at least 1, got %d", c.StimulusCount)
	}
	if c.Screen.Width < 1 || c.Screen.Height < 1 {
		return fmt.Errorf("invalid screen size %dx%d", c.Screen.Width, c.Screen.Height)
	}
	for name, v := range map[string]float64{
		"rest":        c.Timing.Rest,
		"cue":         c.Timing.Cue,
		"flicker":     c.Timing.Flicker,
		"feedback":    c.Timing.Feedback,
		"tagInterval": c.Timing.TagInterval,
	} {
		if v <= 0 {
			return fmt.Errorf("timing.%s must be positive, got %g", name, v)
		}
	}
	if c.Timing.TrialCount < 1 {
		return fmt.Errorf("timing.trialCount must be at least 1, got %d", c.Timing.TrialCount)
	}
	return nil
}

// ProtocolMode returns the parsed experiment mode.
func (c *Config) ProtocolMode() (Mode, error) {
	return ParseMode(c.Mode)
}

// ProtocolTiming converts the configured seconds into protocol durations.
func (c *Config) ProtocolTiming() Timing {
	return Timing{
		Rest:        secondsToDuration(c.Timing.Rest),
		Cue:         secondsToDuration(c.Timing.Cue),
		Flicker:     secondsToDuration(c.Timing.Flicker),
		Feedback:    secondsToDuration(c.Timing.Feedback),
		TagInterval: secondsToDuration(c.Timing.TagInterval),
		TrialCount:  c.Timing.TrialCount,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
