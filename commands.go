package main

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"io"
	"strings"
	"text/tabwriter"
)

var errProfileExists = errors.New("profile already exists")

// cli owns the command tree and the app its commands run against.
type cli struct {
	root *cobra.Command
	app  *app
}

// Execute runs the command line and closes the app afterwards, also when the
// command failed.
func (c *cli) Execute() error {
	err := c.root.Execute()
	if c.app != nil {
		if closeErr := c.app.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func newCLI() *cli {
	var opts options
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "lingoswitch",
		Short:         "Switch the system language list between saved profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}

			var err error
			c.app, err = newApp(cmd.Context(), opts)
			return err
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.settingsPath, "settings", "", "path to settings.toml")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.backend, "backend", "", "profile store backend: json|sqlite")
	flags.StringVar(&opts.storePath, "store", "", "path of the profile store")
	flags.StringVar(&opts.snapshotPath, "snapshot", "", "use a snapshot file instead of the running system")

	current := func() *app { return c.app }

	rootCmd.AddCommand(
		newListCommand(current),
		newAddCommand(current),
		newRemoveCommand(current),
		newUpdateCommand(current),
		newRecreateMainCommand(current),
		newCurrentCommand(current),
		newInstalledCommand(current),
		newLayoutsCommand(current),
		newApplyCommand(current),
		newWatchCommand(current),
	)

	c.root = rootCmd
	return c
}

func newListCommand(a func() *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"profiles"},
		Short:   "List saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles := a().store.OrderedProfiles()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), profiles)
			}

			installed, _, err := a().switcher.MatchCurrentProfile(cmd.Context())
			if err != nil {
				a().log.Warnw("can't tell which profile is installed", "error", err)
			}
			return printProfiles(cmd.OutOrStdout(), profiles, installed)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print profiles as JSON")

	return cmd
}

func newAddCommand(a func() *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add <name> <tip>...",
		Short: "Create a profile from input method tips",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if _, exists := a().store.Profile(name); exists && !force {
				return fmt.Errorf("%w: %q (use --force to replace it)", errProfileExists, name)
			}

			profile, err := buildProfile(a(), name, args[1:])
			if err != nil {
				return err
			}

			if err := a().store.AddProfile(profile); err != nil {
				return fmt.Errorf("add profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", profile.Name, profile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace a profile with the same name")

	return cmd
}

func newRemoveCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a().store.RemoveProfile(args[0]); err != nil {
				return fmt.Errorf("remove profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newUpdateCommand(a func() *app) *cobra.Command {
	var newName string
	var tips []string

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Rename a profile or replace its layouts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldName := args[0]
			existing, ok := a().store.Profile(oldName)
			if !ok {
				return fmt.Errorf("update profile: %w: %q", lingoswitch.ErrUnknownProfile, oldName)
			}

			name := strings.TrimSpace(newName)
			if name == "" {
				name = oldName
			}
			if _, taken := a().store.Profile(name); taken && name != oldName {
				return fmt.Errorf("%w: %q", errProfileExists, name)
			}

			updated := existing
			updated.Name = name
			if len(tips) > 0 {
				var err error
				updated, err = buildProfile(a(), name, tips)
				if err != nil {
					return err
				}
			}

			if err := a().store.UpdateProfile(oldName, updated); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", updated.Name, updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&newName, "name", "", "new profile name")
	cmd.Flags().StringSliceVar(&tips, "tips", nil, "replacement input method tips")

	return cmd
}

func newRecreateMainCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recreate-main",
		Short: "Rebuild the main profile from the current system language list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			main, err := a().store.RecreateMainProfile(cmd.Context())
			if err != nil {
				return fmt.Errorf("recreate main profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recreated %s (%s)\n", main.Name, main)
			return nil
		},
	}
}

func newCurrentCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the profile matching the installed keyboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, ok, err := a().switcher.MatchCurrentProfile(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no profile matches the installed keyboards")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newInstalledCommand(a func() *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "installed",
		Short: "List the installed keyboards grouped by language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs, err := a().enumerator.ListInstalledLanguages(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), langs)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, l := range langs {
				for _, tip := range l.InputMethods {
					info, _ := a().layouts.Lookup(tip)
					fmt.Fprintf(w, "%s\t%s\t%s\n", l.Tag, tip, info.DisplayName)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print languages as JSON")

	return cmd
}

func newLayoutsCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layouts [search]",
		Short: "List known keyboard layouts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			search := ""
			if len(args) == 1 {
				search = args[0]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, l := range a().layouts.Search(search) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.InputMethodTip, l.LanguageTag, l.DisplayName)
			}
			return w.Flush()
		},
	}
}

func newApplyCommand(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <name>",
		Short: "Switch the system language list to a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := <-a().switcher.Select(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "switched to %s\n", args[0])
			return nil
		},
	}
}

func buildProfile(a *app, name string, tips []string) (lingoswitch.LanguageProfile, error) {
	layouts, err := a.layouts.Resolve(tips...)
	if err != nil {
		return lingoswitch.LanguageProfile{}, fmt.Errorf("resolve layouts: %w", err)
	}
	return lingoswitch.BuildProfile(name, layouts), nil
}

func printProfiles(out io.Writer, profiles []lingoswitch.LanguageProfile, installed string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range profiles {
		marker := " "
		if p.Name == installed {
			marker = "*"
		}

		flags := ""
		if p.IsMainProfile {
			flags = "main"
		}

		tips := p.InputMethodSet()
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", marker, p.Name, flags, p, strings.Join(tips, " "))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
