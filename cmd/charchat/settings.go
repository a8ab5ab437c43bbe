package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/ai-charchat-go/internal/services/settings"
	"github.com/spf13/cobra"
)

// settingsRun wires the services and runs fn with a settings controller.
func settingsRun(a *app, fn func(ctx context.Context, c *handlers.SettingsController, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := a.services(ctx); err != nil {
			return err
		}
		return fn(ctx, handlers.NewSettingsController(a.deps(), a.player), args)
	}
}

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change settings",
		Args:  cobra.NoArgs,
		RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
			v, err := c.Load(ctx)
			printSettings(a, v)
			return err
		}),
	}

	var theme string
	var darkMode, notifications bool
	language := &cobra.Command{
		Use:   "language LANG",
		Short: "Set the language and display preferences",
		Args:  cobra.ExactArgs(1),
		RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
			_, err := c.SaveLanguageAndTheme(ctx, args[0], theme, darkMode, notifications)
			return err
		}),
	}
	language.Flags().StringVar(&theme, "theme", settings.ThemeLight, "Theme: light or dark")
	language.Flags().BoolVar(&darkMode, "dark-mode", false, "Enable dark mode")
	language.Flags().BoolVar(&notifications, "notifications", false, "Enable notifications")

	var filterLevel string
	var filterOff bool
	filter := &cobra.Command{
		Use:   "content-filter",
		Short: "Set the content filter",
		Args:  cobra.NoArgs,
		RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
			_, err := c.SaveContentFilter(ctx, !filterOff, filterLevel)
			return err
		}),
	}
	filter.Flags().StringVar(&filterLevel, "level", "medium", "Filter level: low, medium or high")
	filter.Flags().BoolVar(&filterOff, "off", false, "Disable the filter")

	cmd.AddCommand(
		language,
		filter,
		&cobra.Command{
			Use:   "share-usage on|off",
			Short: "Share anonymous usage data",
			Args:  cobra.ExactArgs(1),
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				on, err := parseSwitch(args[0])
				if err != nil {
					return err
				}
				_, err = c.SetShareUsage(ctx, on)
				return err
			}),
		},
		&cobra.Command{
			Use:   "key PROVIDER VALUE",
			Short: "Store an API key for openai or openrouter",
			Args:  cobra.ExactArgs(2),
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				_, err := c.SaveAPIKey(ctx, args[0], args[1])
				return err
			}),
		},
		&cobra.Command{
			Use:   "test-key PROVIDER",
			Short: "Check that a provider answers",
			Args:  cobra.ExactArgs(1),
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				status, label := c.TestAPIKey(ctx, args[0])
				fmt.Fprintf(a.out, "%s: %s\n", args[0], label)
				if status != settings.KeyValid {
					return fmt.Errorf("%s key check: %s", args[0], status)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "theme",
			Short: "Toggle between the light and dark theme",
			Args:  cobra.NoArgs,
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				theme, err := c.ToggleTheme(ctx)
				if err == nil {
					fmt.Fprintf(a.out, "Theme: %s\n", theme)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore default settings, keeping API keys",
			Args:  cobra.NoArgs,
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				_, err := c.ResetToDefaults(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "reset-tutorials",
			Short: "Show the tutorials again",
			Args:  cobra.NoArgs,
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				return c.ResetTutorials(ctx)
			}),
		},
		&cobra.Command{
			Use:   "reset-onboarding",
			Short: "Show the onboarding again",
			Args:  cobra.NoArgs,
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				return c.ResetOnboarding(ctx)
			}),
		},
		&cobra.Command{
			Use:   "clear-cache",
			Short: "Remove all local data and log out",
			Args:  cobra.NoArgs,
			RunE: settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
				return c.ClearCache(ctx)
			}),
		},
	)
	return cmd
}

func newMusicCommand(a *app) *cobra.Command {
	var volume, effectsVolume float64
	var track, effects string
	cmd := &cobra.Command{
		Use:   "music [on|off]",
		Short: "Show or change the audio preferences",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = settingsRun(a, func(ctx context.Context, c *handlers.SettingsController, args []string) error {
		v, err := c.Load(ctx)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		changed := false
		for _, name := range []string{"volume", "effects-volume", "track", "effects"} {
			changed = changed || flags.Changed(name)
		}
		if len(args) == 0 && !changed {
			printAudio(a, v)
			return nil
		}

		s := v.Settings
		prefs := settings.Audio{
			MusicEnabled:   s.MusicEnabled,
			EffectsEnabled: s.SoundEffectsEnabled,
			MusicVolume:    s.MusicVolume,
			EffectsVolume:  s.EffectsVolume,
			MusicTrack:     s.MusicTrack,
		}
		if len(args) == 1 {
			if prefs.MusicEnabled, err = parseSwitch(args[0]); err != nil {
				return err
			}
		}
		if flags.Changed("volume") {
			prefs.MusicVolume = volume / 100
		}
		if flags.Changed("effects-volume") {
			prefs.EffectsVolume = effectsVolume / 100
		}
		if flags.Changed("track") {
			prefs.MusicTrack = track
		}
		if flags.Changed("effects") {
			if prefs.EffectsEnabled, err = parseSwitch(effects); err != nil {
				return err
			}
		}

		v, err = c.SaveAudio(ctx, prefs)
		if err == nil {
			printAudio(a, v)
		}
		return err
	})
	cmd.Flags().Float64Var(&volume, "volume", 30, "Music volume in percent")
	cmd.Flags().Float64Var(&effectsVolume, "effects-volume", 50, "Sound effects volume in percent")
	cmd.Flags().StringVar(&track, "track", "", "Music track")
	cmd.Flags().StringVar(&effects, "effects", "", "Sound effects on or off")
	return cmd
}

func printSettings(a *app, v handlers.SettingsView) {
	s := v.Settings
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Language:\t%s (available: %s)\n", s.Language, strings.Join(v.Languages, ", "))
	fmt.Fprintf(w, "Theme:\t%s\n", v.Theme)
	fmt.Fprintf(w, "Notifications:\t%s\n", onOff(s.Notifications))
	fmt.Fprintf(w, "Content filter:\t%s (%s)\n", onOff(s.ContentFilter), s.ContentFilterLevel)
	fmt.Fprintf(w, "Share usage:\t%s\n", onOff(s.ShareUsage))
	fmt.Fprintf(w, "OpenAI key:\t%s\n", orNone(s.APIKeys.OpenAI))
	fmt.Fprintf(w, "OpenRouter key:\t%s\n", orNone(s.APIKeys.OpenRouter))
	w.Flush()
	printAudio(a, v)
}

func printAudio(a *app, v handlers.SettingsView) {
	s := v.Settings
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Music:\t%s, %s, track %s\n", onOff(s.MusicEnabled), v.MusicVolumeLabel, s.MusicTrack)
	fmt.Fprintf(w, "Sound effects:\t%s, %s\n", onOff(s.SoundEffectsEnabled), v.EffectsVolumeLabel)
	fmt.Fprintf(w, "Tracks:\t%s\n", strings.Join(v.Tracks, ", "))
	w.Flush()
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orNone(key string) string {
	if key == "" {
		return "(none)"
	}
	return key
}
