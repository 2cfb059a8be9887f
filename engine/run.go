package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
)

// Run owns the SDL window and the frame loop: per frame it polls input,
// advances the protocol, then samples and renders every stimulus. Protocol
// mutations made in a frame are visible to that same frame's render samples.
func Run(cfg *Config) error {
	SetLogLevel(cfg.LogLevel)

	mode, err := cfg.ProtocolMode()
	if err != nil {
		return err
	}

	var stimuli []*Stimulus
	if cfg.LayoutFile != "" {
		stimuli, err = LoadLayout(cfg.LayoutFile)
		if err != nil {
			return err
		}
	} else {
		stimuli = DefaultLayout(cfg.StimulusCount)
	}

	marker := openMarker(cfg)
	if c, ok := marker.(interface{ Close() }); ok {
		defer c.Close()
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("init SDL: %w", err)
	}
	defer sdl.Quit()

	windowFlags := sdl.WINDOW_RESIZABLE
	if cfg.Screen.Fullscreen {
		windowFlags |= sdl.WINDOW_FULLSCREEN
	}
	window, renderer, err := sdl.CreateWindowAndRenderer("Stim", cfg.Screen.Width, cfg.Screen.Height, windowFlags)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	defer renderer.Destroy()

	if cfg.Screen.VSync {
		renderer.SetVSync(1)
	} else {
		renderer.SetVSync(0)
	}
	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)

	refresh := detectRefreshRate(window)
	Log.Info().Float64("refreshHz", refresh).Msg("display refresh rate")

	events := NewEventLog(time.Now())
	proto, err := NewProtocol(mode, stimuli, marker, cfg.ProtocolTiming(), WithEventLog(events))
	if err != nil {
		return err
	}

	clock := NewFrameClock(refresh)
	proto.Start(clock.Now(), clock.Frame())

	active := 0
	running := true
	for running {
		now := clock.Now()
		frame := clock.Frame()

		for {
			var ev sdl.Event
			if !sdl.PollEvent(&ev) {
				break
			}
			switch ev.Type {
			case sdl.EVENT_QUIT:
				running = false
			case sdl.EVENT_KEY_DOWN:
				key := ev.KeyboardEvent().Key
				events.Log(now, frame, "RESPONSE", key.KeyName())
				if !handleKey(key, stimuli, proto, &active, now, frame) {
					running = false
				}
			}
		}

		proto.Update(now, frame)
		if proto.Done() {
			running = false
		}

		renderer.SetDrawColor(0, 0, 0, 255)
		renderer.Clear()
		for _, s := range stimuli {
			if err := DrawStimulus(renderer, s, frame, refresh, now, cfg.Screen.Width, cfg.Screen.Height); err != nil {
				Log.Error().Err(err).Msg("draw stimulus")
			}
		}
		renderer.Present()

		if !cfg.Screen.VSync {
			sdl.Delay(1)
		}
		clock.Advance()
	}

	return saveEventLog(events, cfg.OutputFile)
}

// openMarker picks the trigger backend from config. A missing or failing
// device degrades to NullMarker with a warning; the session still runs.
func openMarker(cfg *Config) EventMarker {
	if cfg.Serial.Port == "" {
		Log.Warn().Msg("no trigger port configured, tags will be discarded")
		return NullMarker{}
	}
	var (
		marker EventMarker
		err    error
	)
	switch cfg.Serial.Driver {
	case "dlp":
		marker, err = OpenDLPIO8G(cfg.Serial.Port, cfg.Serial.Baud)
	default:
		marker, err = OpenSerialTrigger(cfg.Serial.Port, cfg.Serial.Baud)
	}
	if err != nil {
		Log.Error().Err(err).Msg("trigger unavailable, tags will be discarded")
		return NullMarker{}
	}
	return marker
}

func detectRefreshRate(window *sdl.Window) float64 {
	refresh := 60.0
	display := sdl.GetDisplayForWindow(window)
	mode, err := display.CurrentDisplayMode()
	if err == nil && mode.RefreshRate > 0 {
		refresh = float64(mode.RefreshRate)
	}
	return refresh
}

// handleKey applies one pressed key. KEY_DOWN events give the press edge, so
// toggles fire once per physical press. Returns false to end the session.
func handleKey(key sdl.Keycode, stimuli []*Stimulus, proto *Protocol, active *int, now time.Time, frame int64) bool {
	if key >= sdl.K_0 && key <= sdl.K_9 {
		proto.SubmitResult(int(key-sdl.K_0), now, frame)
		return true
	}

	s := stimuli[*active]
	switch key {
	case sdl.K_ESCAPE:
		return false
	case sdl.K_TAB:
		*active = (*active + 1) % len(stimuli)
		Log.Info().Int("stimulus", *active).Stringer("shape", stimuli[*active].Shape).Msg("active stimulus")
	case sdl.K_UP:
		s.Size = min(2.0, s.Size+0.01)
	case sdl.K_DOWN:
		s.Size = max(0.1, s.Size-0.01)
	case sdl.K_RIGHT:
		s.FlickerFreq += 0.1
		Log.Info().Float64("freqHz", s.FlickerFreq).Msg("flicker frequency")
	case sdl.K_LEFT:
		s.FlickerFreq = max(0.1, s.FlickerFreq-0.1)
		Log.Info().Float64("freqHz", s.FlickerFreq).Msg("flicker frequency")
	case sdl.K_F:
		if s.IsFlickering() {
			s.StopFlicker()
		} else if err := s.StartFlicker(s.FlickerFreq, s.FlickerPhase, 0, frame, now); err != nil {
			Log.Error().Err(err).Msg("start flicker")
		}
	case sdl.K_T:
		if err := s.StartFlicker(s.FlickerFreq, s.FlickerPhase, 2*time.Second, frame, now); err != nil {
			Log.Error().Err(err).Msg("start timed flicker")
		}
	case sdl.K_B:
		s.StartBorderFlash(ColorCue, now)
	}
	return true
}

// saveEventLog writes the session log next to the configured output name,
// with a timestamp so repeated sessions never overwrite each other.
func saveEventLog(events *EventLog, outputFile string) error {
	timestamp := time.Now().Format("20060102-150405")
	path := strings.Replace(outputFile, ".csv", "_"+timestamp+".csv", 1)
	if err := events.Save(path); err != nil {
		return fmt.Errorf("save event log: %w", err)
	}
	Log.Info().Str("path", path).Int("events", len(events.Entries())).Msg("session log saved")
	return nil
}
