package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aditinnerkar/ans-ss25-copy/pkg"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/emu"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove leftovers of earlier runs",
	Long: `Sweep the machine for containers, bridges and interfaces left behind by
interrupted runs and remove them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		pkg.SetupLogger(cfg.Log)

		if err = requireRoot(); err != nil {
			return err
		}

		platform, err := emu.NewManager(emu.Options{
			Controller: cfg.Controller.Target(),
			Image:      cfg.Hosts.Image,
		})
		if err != nil {
			return err
		}

		if err = platform.Cleanup(context.Background()); err != nil {
			return err
		}
		log.Info("Cleanup done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
