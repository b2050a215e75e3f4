// Package cli implements the tfserving command line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/clients/tfserving"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string

	// newClient is replaced in tests.
	newClient = func(ctx context.Context) (tfserving.Client, error) {
		conf, err := tfserving.LoadClientConfig(tfserving.Version1)
		if err != nil {
			return nil, err
		}
		return tfserving.NewClientFromConfig(ctx, conf)
	}
)

// NewRootCommand returns the tfserving command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tfserving",
		Short:         "Query a TensorFlow Serving model server",
		Long:          `Sends predict, classify and regress requests to a TensorFlow Serving gRPC endpoint and inspects the models it serves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file with TFSERVING_CLIENT_V1_* keys")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("host", "", "model server hostname")
	flags.Uint16("port", 0, "model server gRPC port")
	flags.String("signature", tfserving.DefaultSignatureName, "signature name")
	flags.Int("deadline-ms", 0, "per call deadline in milliseconds, 0 for none")
	flags.Int("connect-timeout-ms", 0, "wait this long for a ready connection, 0 to connect lazily")
	flags.Bool("plaintext", tfserving.DefaultPlainText, "disable TLS")
	flags.String("caller-id", "", "caller id sent as request metadata")

	bindings := map[string]string{
		"host":               tfserving.Host,
		"port":               tfserving.Port,
		"signature":          tfserving.SignatureName,
		"deadline-ms":        tfserving.DeadlineMS,
		"connect-timeout-ms": tfserving.ConnectTimeoutMS,
		"plaintext":          tfserving.PlainText,
		"caller-id":          tfserving.CallerID,
	}
	for flag, key := range bindings {
		_ = viper.BindPFlag(tfserving.V1Prefix+key, flags.Lookup(flag))
	}

	root.AddCommand(
		newPredictCommand(),
		newClassifyCommand(),
		newRegressCommand(),
		newStatusCommand(),
		newMetadataCommand(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func setup(cmd *cobra.Command) error {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		log.Debug().Str("config", viper.ConfigFileUsed()).Msg("loaded config file")
	}
	return nil
}

// withClient connects, runs fn and closes the client.
func withClient(cmd *cobra.Command, fn func(tfserving.Client) error) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close client")
		}
	}()
	return fn(client)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
