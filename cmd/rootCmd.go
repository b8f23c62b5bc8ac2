package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aditinnerkar/ans-ss25-copy/pkg"
)

var rootCmd = &cobra.Command{
	Use:   "ftbench",
	Short: "Fat-tree bisection bandwidth benchmark",
	Long: `ftbench builds a k-ary fat-tree out of docker containers and Open
vSwitch bridges, drives random host-pair traffic through it and reports
the achieved bisection bandwidth.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the TOML configuration file")
}

func loadConfig(cmd *cobra.Command) (pkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return pkg.LoadConfig(path)
}

// requireRoot rejects unprivileged invocations early. Namespaces, bridges
// and qdiscs all need CAP_NET_ADMIN.
func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must run as root")
	}
	return nil
}
