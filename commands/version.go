package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/hasura/healthz"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

// NewVersionCmd returns the version command
func NewVersionCmd(ec *console.ExecutionContext) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the console and server versions",
		SilenceUsage: true,
		Annotations:  map[string]string{skipValidation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetOutput(ec.Stdout)
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: ec.NoColor})
			if !ec.IsTerminal {
				logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: false})
			}

			logger.WithField("version", ec.Version.CLI).Info("hge-console")
			err := ec.Validate(cmd.Context())
			if err != nil {
				ec.Logger.WithError(err).Debug("server version not available")
				reportHealth(ec, logger)
				return nil
			}
			logger.
				WithField("endpoint", ec.Config.ServerConfig.Endpoint).
				WithField("version", ec.Version.Server).
				WithField("metadata_v3", ec.HasMetadataV3).
				Info("graphql engine")
			reportHealth(ec, logger)
			return nil
		},
	}
	return versionCmd
}

// reportHealth tells a stopped engine apart from one that answers but
// cannot report its version.
func reportHealth(ec *console.ExecutionContext, logger *logrus.Logger) {
	server := ec.Config.ServerConfig
	if server.ParsedEndpoint == nil {
		return
	}
	tlsConfig, err := httpc.GenerateTLSConfig(server.CAPath, server.InsecureSkipTLSVerify)
	if err != nil {
		ec.Logger.WithError(err).Debug("health check skipped")
		return
	}
	status, err := healthz.New(server.BaseURL(), tlsConfig).Check()
	if err != nil {
		logger.WithError(err).Warn("graphql engine health")
		return
	}
	logger.WithField("healthy", status.Healthy).WithField("status", status.Message).Info("graphql engine health")
}
