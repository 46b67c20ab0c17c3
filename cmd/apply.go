package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"voicemorph/pkg/config"
	"voicemorph/pkg/effects"
	"voicemorph/pkg/engine"

	"github.com/spf13/cobra"
)

var (
	applyOutputPath string
	applyFFmpegPath string
	applyTimeout    int
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <effect-id> <input-file>",
	Short: "Apply an effect to a local audio file",
	Long:  "Transcodes a local audio file with the named effect, without any bot connection. Run the effects command for available effect ids.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		effectID := strings.TrimSpace(args[0])
		inputPath := args[1]

		if _, err := os.Stat(inputPath); err != nil {
			fmt.Printf("cannot read input file: %v\n", err)
			return
		}

		cfg := config.TranscoderConfig{
			FFmpegPath:     applyFFmpegPath,
			TimeoutSeconds: applyTimeout,
		}

		catalog := effects.NewCatalog()
		eng := engine.New(catalog, cfg, slog.Default())

		output, err := eng.Transcode(context.Background(), fileSource{path: inputPath}, effectID)
		if err != nil {
			fmt.Printf("transcode failed: %v\n", err)
			return
		}
		defer output.Release()

		destination := applyOutputPath
		if destination == "" {
			destination = inputPath + "." + effectID + ".ogg"
		}

		if err := copyFile(output.Path, destination); err != nil {
			fmt.Printf("failed to write output: %v\n", err)
			return
		}

		fmt.Println(destination)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&applyOutputPath, "output", "o", "", "output file path (default <input>.<effect>.ogg)")
	applyCmd.Flags().StringVar(&applyFFmpegPath, "ffmpeg", "", "ffmpeg binary path (default ffmpeg from PATH)")
	applyCmd.Flags().IntVar(&applyTimeout, "timeout", 0, "transcode timeout in seconds")
}

// fileSource adapts a local file into a voice message source.
type fileSource struct {
	path string
}

func (s fileSource) Fetch(_ context.Context, w io.Writer) error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

func copyFile(sourcePath string, destinationPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(destinationPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}

	return destination.Close()
}
