// Swadm - Switch Admission and Provisioning Tool
//
// A CLI for provisioning baremetal access switches over their management
// CLI: VLAN membership, rate limits, port state, configuration
// persistence, and MAC/port queries.
//
// Device selection flags pick the target; verbs act on it:
//
//	swadm -d <address> -u <user> <noun> <verb> [flags]
//
// Examples:
//
//	swadm -d 192.0.2.10 -u admin vlan set --port 10GE1/0/1 --vlan 10-20 --link-type trunk
//	swadm -d 192.0.2.10 -u admin port open --port 10GE1/0/1
//	swadm -d 192.0.2.10 -u admin relations --vlan 100
//	swadm -d 192.0.2.10 -u admin save
//
// Concurrent invocations against one device are bounded through the
// coordination backend configured in /etc/swadm/swadm.yaml.
package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/metalfabric/swadm/pkg/audit"
	"github.com/metalfabric/swadm/pkg/config"
	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/driver"
	"github.com/metalfabric/swadm/pkg/session"
	"github.com/metalfabric/swadm/pkg/util"
	"github.com/metalfabric/swadm/pkg/version"
)

const defaultConfigPath = "/etc/swadm/swadm.yaml"

var (
	// Device selection flags
	deviceAddr  string // -d, --device
	username    string // -u, --user
	password    string // --password
	dialectName string // --dialect

	// Global option flags
	configPath string
	verbose    bool
	jsonOutput bool

	// Global state
	cfg         *config.Config
	coord       *redis.Client
	gateway     *session.Gateway
	auditLogger *audit.FileLogger
)

// audited runs a mutating operation and records it on the audit trail.
func audited(operation string, ports []string, fn func() error) error {
	start := time.Now()
	err := fn()

	event := audit.NewEvent(username, deviceAddr, operation).
		WithPorts(ports).
		WithDuration(time.Since(start))
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
	}
	if logErr := audit.Log(event); logErr != nil {
		util.Warnf("recording audit event: %v", logErr)
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "swadm",
	Short:             "Switch Admission and Provisioning Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Swadm provisions baremetal access switches over their management CLI.

Device selection flags pick the target; verbs act on it:

  swadm -d <address> -u <user> <noun> <verb> [flags]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel(cfg.LogLevel)
		}

		coord = cfg.CoordinationClient()
		if coord == nil {
			util.Warnf("no coordination backend configured, sessions are unbounded")
		}
		dialer := &session.SSHDialer{
			DialTimeout: cfg.Session.DialTimeout,
			IdleTimeout: cfg.Session.IdleTimeout,
		}
		gateway = session.NewGateway(coord, dialer, cfg.GatewayConfig())

		if cfg.Audit.Path != "" {
			auditLogger, err = audit.NewFileLogger(cfg.Audit.Path, audit.RotationConfig{
				MaxSize:    cfg.Audit.MaxSize,
				MaxBackups: cfg.Audit.MaxBackups,
			})
			if err != nil {
				util.Warnf("could not initialize audit logging: %v", err)
			} else {
				audit.SetDefaultLogger(auditLogger)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if auditLogger != nil {
			auditLogger.Close()
		}
		if coord != nil {
			coord.Close()
		}
	},
}

// newSwitch builds the driver for the selected device, prompting for the
// password when none was given on the command line.
func newSwitch() (*driver.Switch, error) {
	if deviceAddr == "" {
		return nil, fmt.Errorf("no device selected: use -d <address>")
	}
	if username == "" {
		return nil, fmt.Errorf("no user selected: use -u <user>")
	}
	if password == "" {
		fmt.Fprintf(os.Stderr, "password for %s@%s: ", username, deviceAddr)
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		password = string(secret)
	}

	profile, err := dialect.NewProfile(deviceAddr, username, password, dialectName)
	if err != nil {
		return nil, err
	}
	return driver.New(gateway, profile), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("swadm", version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceAddr, "device", "d", "", "Device address (device selector)")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Login user")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Login password (prompted when omitted)")
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "huawei", "Device CLI dialect")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		vlanCmd,
		limitCmd,
		templateCmd,
		portCmd,
		initCmd,
		cleanCmd,
		relationsCmd,
		saveCmd,
		auditCmd,
		versionCmd,
	)
}
