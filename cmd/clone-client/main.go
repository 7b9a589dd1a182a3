// main package for the voice cloning command line client
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/book-expert/voice-cloner/internal/cloning"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/book-expert/voice-cloner/internal/web"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// Flag names.
const (
	flagServer  = "server"
	flagTimeout = "timeout"
	flagSample  = "sample"
	flagText    = "text"
	flagPreset  = "preset"
	flagOutput  = "output"
)

// Flag descriptions.
const (
	flagServerDesc  = "Base URL of the voice cloner service"
	flagTimeoutDesc = "Overall request timeout"
	flagSampleDesc  = "Voice sample WAV file (repeat 2 to 5 times)"
	flagTextDesc    = "Text to speak in the cloned voice"
	flagPresetDesc  = "Quality preset: ultra_fast, fast, standard or high_quality"
	flagOutputDesc  = "Where to write the generated WAV"
)

const (
	defaultServer  = "http://127.0.0.1:8080"
	defaultTimeout = 20 * time.Minute

	msgServiceHealthy = "Voice cloner is healthy (engine: %s)\n"
	msgClipWritten    = "Wrote %s (%s, %.2fs at %d Hz)\n"
	msgWarning        = "warning: %s\n"
)

type clientFlags struct {
	server  string
	timeout time.Duration
	samples []string
	text    string
	preset  string
	output  string
}

func newRootCmd() *cobra.Command {
	flags := &clientFlags{}

	rootCmd := &cobra.Command{
		Use:           "clone-client",
		Short:         "Clone a voice with a running voice cloner service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	rootCmd.AddCommand(newCloneCmd(flags), newHealthCmd(flags))

	return rootCmd
}

func newCloneCmd(flags *clientFlags) *cobra.Command {
	cloneCmd := &cobra.Command{
		Use:     "clone",
		Short:   "Upload voice samples and download the cloned speech",
		Example: "clone-client clone --sample a.wav --sample b.wav --text \"Hello there.\" --output hello.wav",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newServiceClient(flags.server, flags.timeout)

			result, err := client.clone(cmd.Context(), cloneInput{
				SamplePaths: flags.samples,
				Text:        flags.text,
				Preset:      flags.preset,
				OutputPath:  flags.output,
			})
			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), msgWarning, warning)
			}

			fmt.Fprintf(cmd.OutOrStdout(), msgClipWritten, flags.output,
				humanize.Bytes(uint64(result.Size)), result.DurationSeconds, result.SampleRate)

			return nil
		},
	}

	cloneCmd.Flags().StringArrayVar(&flags.samples, flagSample, nil, flagSampleDesc)
	cloneCmd.Flags().StringVar(&flags.text, flagText, cloning.DefaultText, flagTextDesc)
	cloneCmd.Flags().StringVar(&flags.preset, flagPreset, core.DefaultPreset.String(), flagPresetDesc)
	cloneCmd.Flags().StringVar(&flags.output, flagOutput, web.DownloadFilename, flagOutputDesc)

	_ = cloneCmd.MarkFlagRequired(flagSample)

	return cloneCmd
}

func newHealthCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service and its engine are up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := newServiceClient(flags.server, flags.timeout).health(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), msgServiceHealthy, health.Engine)

			return nil
		},
	}
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
