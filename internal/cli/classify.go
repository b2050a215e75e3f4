package cli

import (
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/clients/tfserving"
	"github.com/spf13/cobra"
)

type classOutput struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

func newClassifyCommand() *cobra.Command {
	var (
		model    modelFlags
		features []string
	)
	cmd := &cobra.Command{
		Use:     "classify",
		Short:   "Classify one example built from --feature flags",
		Example: `  tfserving classify --host localhost --port 8500 -m census -f age=int:52 -f workclass=bytes:Private`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			featureMap, err := parseFeatures(features)
			if err != nil {
				return err
			}
			return withClient(cmd, func(client tfserving.Client) error {
				result, err := client.Classify(cmd.Context(), model.descriptor(cmd), featureMap)
				if err != nil {
					return err
				}
				out := make([][]classOutput, len(result.Classifications))
				for i, c := range result.Classifications {
					out[i] = make([]classOutput, len(c.Classes))
					for j, class := range c.Classes {
						out[i][j] = classOutput{Label: class.Label, Score: class.Score}
					}
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	model.register(cmd)
	cmd.Flags().StringArrayVarP(&features, "feature", "f", nil, "feature as name=type:v1,v2 with type bytes, int or float")
	return cmd
}

func newRegressCommand() *cobra.Command {
	var (
		model    modelFlags
		features []string
	)
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Run a regression on one example built from --feature flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			featureMap, err := parseFeatures(features)
			if err != nil {
				return err
			}
			return withClient(cmd, func(client tfserving.Client) error {
				result, err := client.Regress(cmd.Context(), model.descriptor(cmd), featureMap)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result.Values)
			})
		},
	}
	model.register(cmd)
	cmd.Flags().StringArrayVarP(&features, "feature", "f", nil, "feature as name=type:v1,v2 with type bytes, int or float")
	return cmd
}
