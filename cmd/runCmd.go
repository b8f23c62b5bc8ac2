package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aditinnerkar/ans-ss25-copy/pkg"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/emu"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	Long:  `Build the fat-tree, measure its bisection bandwidth and tear everything down.`,
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

		rep, err := pkg.NewRunner(cfg, platform).Run(context.Background())
		if err != nil {
			return err
		}
		log.Infof("Run %s (%s) finished with status %s: %.2f Mbit/s total over %d pairs",
			rep.RunID, rep.Label, rep.Status, rep.TotalMbps, rep.OK)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
