package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	ipupdate "github.com/dacut/route53-ip-update"
)

const (
	exitOK          = 0
	exitZoneFailure = 1
	exitConfigError = 2
)

var flags = struct {
	addressType      string
	allowNonroutable bool
	configFile       string
	queryInterfaces  bool
	queryIPService   bool
	ignoreInterfaces []string
	ipService        string
	timeout          time.Duration
	ttl              int64
	route53Zone      string
	noWait           bool
	verbose          bool
}{}

var rootCmd = &cobra.Command{
	Use:   "route53-ip-update [flags] [hostname...]",
	Short: "Update Route 53 address records with this host's current public IP",
	Long: `route53-ip-update discovers the host's public IPv4/IPv6 addresses from
local interfaces and/or an IP echo service, then upserts the A/AAAA records
of the configured hostnames in Route 53 whenever they differ.

AWS credentials and region come from the standard AWS environment
(environment variables, shared config, instance metadata).`,
	Args:          cobra.ArbitraryArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flags.addressType, "address-type", "a", "", "whether to use ipv4, ipv6, or both")
	f.BoolVarP(&flags.allowNonroutable, "allow-nonroutable", "n", false, "allow non-routable addresses to be used")
	f.StringVarP(&flags.configFile, "config-file", "c", "", "config file to read (.toml, .yaml, .yml, or .json)")
	f.BoolVarP(&flags.queryInterfaces, "query-interfaces", "q", false, "query local interfaces for their addresses")
	f.BoolVar(&flags.queryIPService, "query-ip-service", true, "query the IP service for the current address")
	f.StringArrayVarP(&flags.ignoreInterfaces, "ignore-interfaces", "I", nil, "interfaces to ignore while querying (repeatable)")
	f.StringVarP(&flags.ipService, "ip-service", "s", "", "the service to query for the current IP address")
	f.DurationVarP(&flags.timeout, "timeout", "t", 0, "timeout to allow for the IP service to respond")
	f.Int64VarP(&flags.ttl, "ttl", "T", 0, "time-to-live in seconds to apply to new records")
	f.StringVarP(&flags.route53Zone, "route53-zone", "r", "", "the Route 53 zone to update")
	f.BoolVar(&flags.noWait, "no-wait", false, "do not wait for Route 53 to report changes in sync")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		var configErr *ipupdate.ConfigError
		if errors.As(err, &configErr) {
			os.Exit(exitConfigError)
		}
		os.Exit(exitZoneFailure)
	}
	os.Exit(exitOK)
}

func run(cmd *cobra.Command, hostnames []string) error {
	log := newLogger(flags.verbose)

	args, err := buildArgs(cmd.Flags(), hostnames)
	if err != nil {
		return err
	}
	cfg, err := args.IntoConfig()
	if err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	log.WithField("zones", len(cfg.Zones)).Debug("configuration merged")

	ctx := cmd.Context()
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("error loading AWS configuration: %w", err)
	}

	client, err := ipupdate.New(cfg,
		ipupdate.UsingRoute53(awsConfig),
		ipupdate.WithLogger(log),
		ipupdate.WaitForSync(!flags.noWait),
	)
	if err != nil {
		return err
	}
	return client.Run(ctx)
}

// buildArgs converts the flag set into the command-line configuration layer.
// Only flags the user actually set take part in the merge.
func buildArgs(f *pflag.FlagSet, hostnames []string) (ipupdate.Args, error) {
	args := ipupdate.Args{Hostnames: hostnames}

	if f.Changed("address-type") {
		addressType, err := ipupdate.ParseAddressType(flags.addressType)
		if err != nil {
			return args, err
		}
		args.AddressType = &addressType
	}
	if f.Changed("allow-nonroutable") {
		args.AllowNonroutable = &flags.allowNonroutable
	}
	if f.Changed("config-file") {
		args.ConfigFile = &flags.configFile
	}
	if f.Changed("query-interfaces") {
		args.QueryInterfaces = &flags.queryInterfaces
	}
	if f.Changed("query-ip-service") {
		args.QueryIPService = &flags.queryIPService
	}
	if f.Changed("ignore-interfaces") {
		args.IgnoreInterfaces = flags.ignoreInterfaces
	}
	if f.Changed("ip-service") {
		args.IPService = &flags.ipService
	}
	if f.Changed("timeout") {
		args.Timeout = &flags.timeout
	}
	if f.Changed("ttl") {
		ttl, err := ipupdate.NewTTL(flags.ttl)
		if err != nil {
			return args, &ipupdate.ConfigError{Problems: []string{err.Error()}}
		}
		args.TTL = &ttl
	}
	if f.Changed("route53-zone") {
		args.Route53Zone = &flags.route53Zone
	}
	return args, nil
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   term.IsTerminal(int(os.Stderr.Fd())),
		FullTimestamp: true,
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
