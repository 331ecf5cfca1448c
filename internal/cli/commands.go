package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/liangyou/goup/internal/remote"
	"github.com/liangyou/goup/internal/version"
	"github.com/liangyou/goup/pkg/models"
)

var errConfirmRequired = errors.New("refusing to delete without --yes")

func (a *App) installCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "install [toolchain]",
		Aliases: []string{"i", "add"},
		Short:   "Install Go with a version",
		Long: `Install Go with a version.

toolchain can be 'stable' (default), 'unstable', 'beta', an exact
version such as '=1.21.4' or a requirement such as '1.21' or '>=1.20.0 <1.22.0'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			toolchain := "stable"
			if len(args) == 1 {
				toolchain = args[0]
			}

			resolved, err := s.Resolver.Resolve(cmd.Context(), toolchain)
			if err != nil {
				return err
			}
			tag := models.Version(resolved.Tag())
			fmt.Fprintf(a.out, "Installing %s ...\n", tag)

			outcome, err := s.Installer.Install(cmd.Context(), tag)
			if err != nil {
				return err
			}
			if outcome == version.OutcomeAlreadyInstalled {
				fmt.Fprintf(a.out, "%s is already installed\n", tag)
				return nil
			}
			fmt.Fprintf(a.out, "Installed %s, activate it with `goup set %s`\n", tag, resolved)
			return nil
		},
	}
}

func (a *App) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "show"},
		Short:   "List all installed Go",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			versions, err := s.Lister.LocalVersions()
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(a.out, "No Go is installed, install one with `goup install`.")
				return nil
			}
			for _, v := range versions {
				fmt.Fprintln(a.out, version.FormatLocalVersion(v))
			}
			return nil
		},
	}
}

func (a *App) removeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "remove <version>...",
		Aliases: []string{"rm"},
		Short:   "Remove the specified Go versions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			versions := make([]models.Version, 0, len(args))
			for _, arg := range args {
				versions = append(versions, models.Version(arg))
			}
			if err := s.Uninstaller.Uninstall(versions, force); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", strings.Join(args, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove the active version as well")
	return cmd
}

func (a *App) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [filter]",
		Short: "Search Go versions to install",
		Long:  "Search Go versions to install. filter can be 'stable', 'unstable', 'beta' or any regular expression such as '1.22.*'.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := ""
			if len(args) == 1 {
				expr = args[0]
			}
			filter, err := remote.ParseFilter(expr)
			if err != nil {
				return err
			}

			s, err := a.svc()
			if err != nil {
				return err
			}
			results, err := s.Lister.Search(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(a.out, version.FormatSearchResult(r))
			}
			return nil
		},
	}
}

func (a *App) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <version>",
		Aliases: []string{"use"},
		Short:   "Set the default Go version",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			v := models.Version(args[0])
			if err := s.Switcher.SetActive(v); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Default Go is set to '%s'\n", v.Normalize())
			return nil
		},
	}
}

func (a *App) currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active Go version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			v, ok := s.Switcher.Active()
			if !ok {
				fmt.Fprintln(a.out, "No active Go version.")
				return nil
			}
			fmt.Fprintln(a.out, v)
			return nil
		},
	}
}

func (a *App) envCmd() *cobra.Command {
	var host bool
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show goup environment variables and values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			for _, line := range s.Env.Vars() {
				fmt.Fprintln(a.out, line)
			}
			if host && s.HostInfo != nil {
				info := s.HostInfo(cmd.Context())
				fmt.Fprintf(a.out, "GOOS=%s\nGOARCH=%s\n", info.OS, info.Arch)
				if info.Platform != "" {
					fmt.Fprintf(a.out, "PLATFORM=%s %s (%s)\n", info.Platform, info.PlatformVersion, info.Family)
				}
				if info.KernelArch != "" {
					fmt.Fprintf(a.out, "KERNEL_ARCH=%s\n", info.KernelArch)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&host, "host", false, "also print detected host information")
	return cmd
}

func (a *App) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "init [shell]",
		Short:     "Add $GOUP_HOME/current/go/bin to PATH in the shell profile",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bash", "zsh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			shell := ""
			if len(args) == 1 {
				shell = args[0]
			}
			path, err := s.Env.UpdateShellConfig(shell)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s, restart the shell or run `source %s`\n", path, path)
			return nil
		},
	}
}

func (a *App) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded archive files",
	}

	var withChecksums bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show downloaded archive files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc()
			if err != nil {
				return err
			}
			entries, err := s.Cache.ListCache(withChecksums)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "%-48s %s\n", e.Name, humanize.IBytes(uint64(e.Size)))
			}
			return nil
		},
	}
	show.Flags().BoolVarP(&withChecksums, "contain-sha256", "c", false, "also list archive sha256 files")

	var yes bool
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Clean downloaded archive files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired
			}
			s, err := a.svc()
			if err != nil {
				return err
			}
			if err := s.Cache.CleanCache(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Cache cleaned")
			return nil
		},
	}
	clean.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")

	cmd.AddCommand(show, clean)
	return cmd
}

func (a *App) cleanCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove $GOUP_HOME with every installed version and the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired
			}
			s, err := a.svc()
			if err != nil {
				return err
			}
			if err := s.Cache.RemoveHome(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "goup home removed")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
