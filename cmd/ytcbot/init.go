package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/ytclab/ytcbot/internal/atomicfile"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/config"
)

// starterConfig is written next to a new bot config when no process
// config exists yet.
const starterConfig = `version: "1"
bot_config: ` + config.DefaultBotConfig + `

log:
  level: info

assistant:
  model_timeout: 60s

memory:
  backend: file
  history_fallback: summary

modules:
  provider.gemini:
    api_key_env: GEMINI_API_KEY
  channel.console: {}
`

var errExists = errors.New("file already exists (use --force to overwrite)")

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a bot config document interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			useDefaults, _ := cmd.Flags().GetBool("defaults")

			settings := botconfig.Defaults()
			settings.ChatMemory = true
			if !useDefaults {
				if err := settingsForm(&settings).Run(); err != nil {
					return err
				}
			}

			written, err := writeInitFiles(dir, settings, force)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing bot config")
	cmd.Flags().Bool("defaults", false, "Skip the questions and write default settings")
	return cmd
}

func settingsForm(s *botconfig.Settings) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("System prompt").
				Description("Instructions given to the model on every turn.").
				Value(&s.SystemPrompt),
			huh.NewText().
				Title("Personality").
				Description("The bot's default persona. Scopes can override it.").
				Value(&s.Personality),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Value(&s.Model).
				Validate(notBlank("model")),
			huh.NewInput().
				Title("Command prefix").
				Value(&s.Prefix).
				Validate(notBlank("prefix")),
			huh.NewConfirm().
				Title("Remember conversations?").
				Value(&s.ChatMemory),
			huh.NewConfirm().
				Title("Let the bot decide when to search?").
				Value(&s.UseSearchEngine),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Presence status").
				Options(huh.NewOptions("online", "idle", "dnd", "invisible")...).
				Value(&s.Presence.Status),
			huh.NewInput().
				Title("Presence activity").
				Value(&s.Presence.Activity),
		),
	)
}

func notBlank(field string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}

// writeInitFiles writes the bot config document into dir, and a starter
// process config when dir has none. It returns the paths written.
func writeInitFiles(dir string, settings botconfig.Settings, force bool) ([]string, error) {
	botPath := filepath.Join(dir, config.DefaultBotConfig)
	if _, err := os.Stat(botPath); err == nil && !force {
		return nil, fmt.Errorf("%s: %w", botPath, errExists)
	}
	if err := atomicfile.WriteJSON(botPath, settings); err != nil {
		return nil, err
	}
	written := []string{botPath}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := atomicfile.WriteFile(cfgPath, []byte(starterConfig), 0o644); err != nil {
			return written, err
		}
		written = append(written, cfgPath)
	}
	return written, nil
}
