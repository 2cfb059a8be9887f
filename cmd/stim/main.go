package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/spf13/cobra"

	"github.com/dsgguo/Stim/engine"
)

func init() {
	// SDL3 requires the main thread for some operations.
	runtime.LockOSThread()
}

func main() {
	root := &cobra.Command{
		Use:          "stim",
		Short:        "SSVEP flicker stimulus presenter",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), layoutCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := engine.LoadConfig(configFile)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			defer binsdl.Load().Unload()
			return engine.Run(cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "JSON config file")
	cmd.Flags().String("mode", "", `experiment mode: "offline", "online_discrete" or "online_continuous"`)
	cmd.Flags().String("layout", "", "stimulus layout JSON file")
	cmd.Flags().String("serial-port", "", "trigger serial device")
	cmd.Flags().Int("trials", 0, "offline trial count")
	cmd.Flags().Bool("fullscreen", false, "fullscreen window")
	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, cfg *engine.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("layout") {
		cfg.LayoutFile, _ = flags.GetString("layout")
	}
	if flags.Changed("serial-port") {
		cfg.Serial.Port, _ = flags.GetString("serial-port")
	}
	if flags.Changed("trials") {
		cfg.Timing.TrialCount, _ = flags.GetInt("trials")
	}
	if flags.Changed("fullscreen") {
		cfg.Screen.Fullscreen, _ = flags.GetBool("fullscreen")
	}
}

func layoutCmd() *cobra.Command {
	var (
		count int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Write a default stimulus layout file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			if err := engine.SaveLayout(out, engine.DefaultLayout(count)); err != nil {
				return err
			}
			fmt.Printf("wrote %d stimuli to %s\n", count, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 6, "number of stimuli")
	cmd.Flags().StringVar(&out, "out", "layout.json", "output file")
	return cmd
}
