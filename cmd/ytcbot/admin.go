package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/scope"
	"github.com/ytclab/ytcbot/pkg/app"
)

// withOffline opens the stores of a stopped bot for the duration of fn.
func withOffline(cmd *cobra.Command, fn func(o *app.Offline) error) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	resolved, err := config.ResolvePath(cfgPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	o, err := app.OpenOffline(cfg, dataDir, logger)
	if err != nil {
		return err
	}
	defer o.Close()
	return fn(o)
}

const scopeHelp = `A scope is a channel name and chat ID joined by a dot,
for example "websocket.room-1" or "console.console".`

func scopeArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		return err
	}
	return scope.Validate(args[0])
}

func personaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Inspect and edit per-scope personas",
		Long:  scopeHelp,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <scope>",
			Short: "Show the persona a scope resolves to",
			Args:  scopeArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					p, err := o.Admin.Prompts(args[0])
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "source:   %s\n", p.Source)
					fmt.Fprintf(out, "override: %s\n", orNotSet(p.ScopePersonality))
					fmt.Fprintf(out, "global:   %s\n", orNotSet(p.Personality))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <scope> <text...>",
			Short: "Override the persona of a scope",
			Args: func(cmd *cobra.Command, args []string) error {
				if err := cobra.MinimumNArgs(2)(cmd, args); err != nil {
					return err
				}
				return scopeArg(cmd, args)
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					if err := o.Admin.SetScopePersonality(args[0], strings.Join(args[1:], " ")); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "persona set for %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear <scope>",
			Short: "Remove the persona override of a scope",
			Args:  scopeArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					removed, err := o.Admin.ClearScopePersonality(args[0])
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(cmd.OutOrStdout(), "no persona override for %s\n", args[0])
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "persona cleared for %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and clear durable conversation memory",
		Long:  scopeHelp,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <scope>",
			Short: "Print the recent durable turns of a scope",
			Args:  scopeArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					view, err := o.Admin.Memory(cmd.Context(), "", args[0])
					if err != nil {
						return err
					}
					if view.Durable == "" {
						fmt.Fprintf(cmd.OutOrStdout(), "no memory for %s\n", args[0])
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d turns\n\n%s\n", view.Turns, view.Durable)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear <scope>",
			Short: "Delete the durable log of a scope",
			Args:  scopeArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					if err := o.Admin.ClearMemory(cmd.Context(), "", args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "memory cleared for %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "path <scope>",
			Short: "Show where the durable log of a scope lives",
			Args:  scopeArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withOffline(cmd, func(o *app.Offline) error {
					info, err := o.Admin.MemoryInfo(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					printLogInfo(cmd.OutOrStdout(), info)
					return nil
				})
			},
		},
	)
	return cmd
}

func printLogInfo(w io.Writer, info memory.LogInfo) {
	fmt.Fprintf(w, "backend:  %s\n", info.Backend)
	fmt.Fprintf(w, "location: %s\n", info.Location)
	fmt.Fprintf(w, "exists:   %t\n", info.Exists)
	if info.Size > 0 {
		fmt.Fprintf(w, "size:     %d bytes\n", info.Size)
	}
	fmt.Fprintf(w, "turns:    %d\n", info.Turns)
	fmt.Fprintf(w, "scopes:   %s\n", orNotSet(strings.Join(info.Scopes, ", ")))
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
