package cli

import (
	"sort"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/clients/tfserving"
	"github.com/spf13/cobra"
)

type versionOutput struct {
	Version      int64  `json:"version"`
	State        string `json:"state"`
	ErrorCode    int32  `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type tensorOutput struct {
	Name  string  `json:"name"`
	Dtype string  `json:"dtype"`
	Shape []int64 `json:"shape,omitempty"`
}

type signatureOutput struct {
	MethodName string                  `json:"method_name"`
	Inputs     map[string]tensorOutput `json:"inputs"`
	Outputs    map[string]tensorOutput `json:"outputs"`
}

type metadataOutput struct {
	Model      string                     `json:"model"`
	Version    *int64                     `json:"version,omitempty"`
	Fields     map[string]string          `json:"fields"`
	Signatures map[string]signatureOutput `json:"signatures,omitempty"`
}

func tensorOutputs(infos map[string]tfserving.TensorInfo) map[string]tensorOutput {
	out := make(map[string]tensorOutput, len(infos))
	for name, info := range infos {
		out[name] = tensorOutput{Name: info.Name, Dtype: info.Dtype.String(), Shape: info.Shape}
	}
	return out
}

func newStatusCommand() *cobra.Command {
	var model modelFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the loaded versions of a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(client tfserving.Client) error {
				status, err := client.GetModelStatus(cmd.Context(), model.descriptor(cmd))
				if err != nil {
					return err
				}
				out := make([]versionOutput, len(status.Versions))
				for i, v := range status.Versions {
					out[i] = versionOutput{Version: v.Version, State: v.State.String(), ErrorCode: v.ErrorCode, ErrorMessage: v.ErrorMessage}
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	model.register(cmd)
	return cmd
}

func newMetadataCommand() *cobra.Command {
	var model modelFlags
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show the metadata fields and signatures a model exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(client tfserving.Client) error {
				md, err := client.GetModelMetadata(cmd.Context(), model.descriptor(cmd))
				if err != nil {
					return err
				}
				out := metadataOutput{Model: md.Model.Name, Version: md.Model.Version, Fields: make(map[string]string, len(md.Metadata))}
				for field, value := range md.Metadata {
					if value != nil {
						out.Fields[field] = value.TypeUrl
					}
				}
				if len(md.Signatures) > 0 {
					out.Signatures = make(map[string]signatureOutput, len(md.Signatures))
					for name, sig := range md.Signatures {
						out.Signatures[name] = signatureOutput{
							MethodName: sig.MethodName,
							Inputs:     tensorOutputs(sig.Inputs),
							Outputs:    tensorOutputs(sig.Outputs),
						}
					}
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	model.register(cmd)
	return cmd
}
