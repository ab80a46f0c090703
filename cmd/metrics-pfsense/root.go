package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/3cpo-dev/metrics-pfsense/internal/check"
	"github.com/3cpo-dev/metrics-pfsense/internal/config"
	"github.com/3cpo-dev/metrics-pfsense/internal/fauxapi"
	"github.com/3cpo-dev/metrics-pfsense/internal/output"
	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
)

const appName = "metrics-pfsense"

// flags holds the raw command-line values; only those the user changed
// override lower configuration layers.
type flags struct {
	configPath string
	scheme     string
	apiSecret  string
	apiKey     string
	host       string
	port       int
	insecure   bool
	https      bool
	verbose    bool
	timeout    time.Duration
	format     string
}

// Create the root command
func newRootCmd(stdout io.Writer) *cobra.Command {
	var f flags
	formats := output.DefaultRegistry()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Print pfSense FauxAPI system statistics as Graphite metrics",
		Long: "metrics-pfsense queries the FauxAPI system_stats action of a pfSense firewall " +
			"and prints one metric per statistic in the Graphite plaintext format.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), f)
			if err != nil {
				return check.Unknownf(err, "configuration")
			}
			writer, err := formats.Get(cfg.Format)
			if err != nil {
				return check.Unknownf(err, "configuration")
			}
			client := fauxapi.NewClient(cfg.Target(), cfg.Credentials(),
				fauxapi.WithUserAgent(appName+"/"+version))
			runner := &check.Runner{
				Source:    client,
				Flattener: stats.NewFlattener(cfg.Scheme),
				Writer:    writer,
				Out:       stdout,
			}
			return runner.Run(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)

	// -h belongs to --host as in the original plugin.
	cmd.Flags().Bool("help", false, "help for "+appName)

	cmd.PersistentFlags().StringP("log", "l", "warn", "Set log level. Available: trace, debug, info, warn, error, fatal")
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/metrics-pfsense/config.yaml)")
	cmd.Flags().StringVarP(&f.scheme, "scheme", "S", "", "Metric naming scheme, text to prepend to metric (default <hostname>.pfsense)")
	cmd.Flags().StringVarP(&f.apiSecret, "api-secret", "s", "", "pfSense FauxAPI secret")
	cmd.Flags().StringVar(&f.apiSecret, "api-secter", "", "pfSense FauxAPI secret")
	_ = cmd.Flags().MarkHidden("api-secter")
	cmd.Flags().StringVarP(&f.apiKey, "api-key", "k", "", "pfSense FauxAPI key")
	cmd.Flags().StringVarP(&f.host, "host", "h", "", "pfSense host")
	cmd.Flags().IntVarP(&f.port, "port", "p", 80, "pfSense port")
	cmd.Flags().BoolVarP(&f.insecure, "insecure", "i", false, "Skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.https, "https", false, "Use https connections")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Ask FauxAPI for more verbose errors")
	cmd.Flags().DurationVar(&f.timeout, "timeout", fauxapi.DefaultTimeout, "Request timeout")
	cmd.Flags().StringVarP(&f.format, "format", "f", "graphite", "Output format: "+strings.Join(formats.Names(), ", "))

	cmd.PersistentPreRun = func(c *cobra.Command, args []string) {
		levelStr, _ := c.Flags().GetString("log")
		switch levelStr {
		case "trace":
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		case "debug":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "info":
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case "warn":
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case "error":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case "fatal":
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		default:
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
	}

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Create the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) %s\n", appName, version, commit, buildDate)
		},
	}
}

// resolveConfig layers defaults, the config file, secrets.env, the
// environment and finally any flags the user set.
func resolveConfig(fs *pflag.FlagSet, f flags) (config.Config, error) {
	cfg := config.Default()
	if err := config.LoadFile(&cfg, f.configPath); err != nil {
		return cfg, err
	}
	secrets, err := config.LoadSecretsEnv("")
	if err != nil {
		return cfg, fmt.Errorf("read secrets: %w", err)
	}
	if err := config.ApplyEnv(&cfg, secrets, os.LookupEnv); err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs, f)
	if err := config.ResolveScheme(&cfg, os.Hostname); err != nil {
		return cfg, err
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f flags) {
	if fs.Changed("scheme") {
		cfg.Scheme = f.scheme
	}
	if fs.Changed("api-secret") || fs.Changed("api-secter") {
		cfg.APISecret = f.apiSecret
	}
	if fs.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if fs.Changed("host") {
		cfg.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("insecure") {
		cfg.Insecure = f.insecure
	}
	if fs.Changed("https") {
		cfg.HTTPS = f.https
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
}
