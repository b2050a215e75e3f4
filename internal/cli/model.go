package cli

import (
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/clients/tfserving"
	"github.com/spf13/cobra"
)

type modelFlags struct {
	name    string
	version int64
	label   string
}

func (m *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.name, "model", "m", "", "model name")
	cmd.Flags().Int64Var(&m.version, "version", 0, "model version, latest when unset")
	cmd.Flags().StringVar(&m.label, "label", "", "model version label")
	_ = cmd.MarkFlagRequired("model")
	cmd.MarkFlagsMutuallyExclusive("version", "label")
}

func (m *modelFlags) descriptor(cmd *cobra.Command) tfserving.ModelDescriptor {
	switch {
	case cmd.Flags().Changed("version"):
		return tfserving.ModelVersion(m.name, m.version)
	case m.label != "":
		return tfserving.ModelLabel(m.name, m.label)
	default:
		return tfserving.Model(m.name)
	}
}
