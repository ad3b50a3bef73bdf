package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	dataDir    string
	appVersion string // set in Execute, used by serve for telemetry
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maktaba",
		Short: "API gateway for Islamic text libraries",
		Long: `Maktaba: one API for the major Islamic text libraries.

Developers register apps, pick which libraries each app may reach, and issue
scoped API keys. Key holders fetch books through a single gateway endpoint
that proxies to Shamela, Ketab Online, and Turath.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./maktaba.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.maktaba)")

	cobra.OnInitialize(initViper)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initViper wires environment overrides: MAKTABA_AUTH_JWT_SECRET overrides
// auth.jwt_secret and so on. The YAML file itself is parsed by the config
// package; viper only layers the environment on top.
func initViper() {
	viper.SetEnvPrefix("MAKTABA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
