package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/autobrr/go-mediafix/internal/cli"
	"github.com/autobrr/go-mediafix/internal/media"
)

var version = "dev"

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:           "mediafix",
	Short:         "Repair and inspect fragmented WebM, MP4 and OGG recordings.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var fixCmd = &cobra.Command{
	Use:   "fix PREV BROKEN",
	Short: "Repair a chunk using the chunk recorded before it",
	Long:  cli.FixHelp,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Fix(cmd.Context(), opts, args[0], args[1], cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge CHUNK [CHUNK...]",
	Short: "Concatenate chunks of one recording",
	Long:  cli.MergeHelp,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Merge(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var displayCmd = &cobra.Command{
	Use:   "display FILE [FILE...]",
	Short: "Print the container structure of files",
	Long:  cli.DisplayHelp,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Display(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chunk upload service",
	Long:  cli.ServeHelp,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		code := cli.Serve(ctx, opts, cmd.ErrOrStderr())
		stop()
		os.Exit(code)
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the values accepted by --format",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli.HelpFormats(cmd.OutOrStdout())
		return nil
	},
	DisableFlagsInUseLine: true,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update mediafix",
	Long:  "Update mediafix to latest version (release builds only).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSelfUpdate(cmd.Context())
	},
	DisableFlagsInUseLine: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print go-mediafix version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli.Version(cmd.OutOrStdout())
		return nil
	},
	DisableFlagsInUseLine: true,
}

func init() {
	cli.SetVersion(resolveVersion())
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.Format, "format", "auto", "container format: auto, webm, mp4 or ogg")
	flags.BoolVar(&opts.Debug, "debug", false, "log the decoded structure and repair details")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format: text or json")

	for _, cmd := range []*cobra.Command{fixCmd, mergeCmd} {
		cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the result to this file instead of stdout")
		cmd.Flags().BoolVar(&opts.ClampTimestampJumps, "clamp", false, "limit large WebM timestamp jumps to the default delta")
	}
	mergeCmd.Flags().BoolVar(&opts.FixTimestamps, "fix-timestamps", false, "rewrite WebM timestamps so they keep increasing")
	serveCmd.Flags().StringVar(&opts.Listen, "listen", "", "address to listen on (default from config, :3000)")

	rootCmd.AddCommand(fixCmd, mergeCmd, displayCmd, serveCmd, formatsCmd, updateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runSelfUpdate(ctx context.Context) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("autobrr/go-mediafix"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", "autobrr/go-mediafix", version)
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("Current binary is the latest version: %s\n", media.FormatVersion(version))
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Printf("Successfully updated to version: %s\n", media.FormatVersion(latest.Version()))
	return nil
}

func resolveVersion() string {
	if version != "" && version != "dev" {
		return normalizeVersion(version)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return normalizeVersion(info.Main.Version)
		}
	}
	return "dev"
}

func normalizeVersion(value string) string {
	return strings.TrimPrefix(value, "v")
}
