package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aditinnerkar/ans-ss25-copy/pkg"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the generated topology",
	Long:  `Materialize the fat-tree into a network plan and print it, without touching the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		plan, err := pkg.BuildPlan(cfg)
		if err != nil {
			return err
		}

		for _, h := range plan.Hosts {
			fmt.Printf("Host: %s, Addr: %s\n", h.Name, h.Addr)
		}
		for _, s := range plan.Switches {
			fmt.Printf("Switch: %s\n", s.Name)
		}
		for _, l := range plan.Links {
			fmt.Printf("Link: %s <-> %s, Rate: %dMbps, Delay: %dms\n",
				l.A, l.B, l.Properties.Rate, l.Properties.Latency)
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := plan.WriteToFile(out); err != nil {
				return err
			}
			fmt.Printf("Plan written to %s\n", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringP("out", "o", "", "Also write the plan to this file (.yaml or .json)")
}
