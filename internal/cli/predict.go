package cli

import (
	"fmt"
	"io"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/clients/tfserving"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/imagesource"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tensor"
	"github.com/spf13/cobra"
)

type predictOutput struct {
	Image         string    `json:"image"`
	MaxIndex      int64     `json:"max_index"`
	Probabilities []float32 `json:"probabilities"`
}

func newPredictCommand() *cobra.Command {
	var (
		model modelFlags
		scale float32
		mean  float32
		std   float32
	)
	cmd := &cobra.Command{
		Use:   "predict IMAGE...",
		Short: "Classify images with an image model",
		Long:  `Sends every image as a [1, width, height, 3] float tensor named "input". Use "-" to read one encoded image from stdin.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preprocess, err := preprocessFor(cmd, scale, mean, std)
			if err != nil {
				return err
			}
			descriptor := model.descriptor(cmd)
			return withClient(cmd, func(client tfserving.Client) error {
				for _, arg := range args {
					source, err := sourceFor(cmd, arg)
					if err != nil {
						return err
					}
					result, err := client.PredictWithPreprocessing(cmd.Context(), source, descriptor, preprocess)
					if err != nil {
						return fmt.Errorf("%s: %w", arg, err)
					}
					out := predictOutput{Image: arg, MaxIndex: result.MaxIndex, Probabilities: result.Probabilities}
					if err := printJSON(cmd.OutOrStdout(), out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	model.register(cmd)
	cmd.Flags().Float32Var(&scale, "scale", 1, "multiply every channel value by this factor")
	cmd.Flags().Float32Var(&mean, "mean", 0, "normalize channel values to (v/255 - mean) / std")
	cmd.Flags().Float32Var(&std, "std", 1, "standard deviation used with --mean")
	cmd.MarkFlagsMutuallyExclusive("scale", "mean")
	cmd.MarkFlagsMutuallyExclusive("scale", "std")
	return cmd
}

func preprocessFor(cmd *cobra.Command, scale, mean, std float32) (tensor.Preprocess, error) {
	flags := cmd.Flags()
	switch {
	case flags.Changed("mean") || flags.Changed("std"):
		if std == 0 {
			return nil, fmt.Errorf("--std must not be zero")
		}
		return tensor.Normalize(mean, std), nil
	case flags.Changed("scale"):
		return tensor.Scale(scale), nil
	default:
		return tensor.Identity, nil
	}
}

func sourceFor(cmd *cobra.Command, arg string) (imagesource.Source, error) {
	if arg != "-" {
		return imagesource.Path(arg), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading image from stdin: %w", err)
	}
	return imagesource.Encoded(b), nil
}
