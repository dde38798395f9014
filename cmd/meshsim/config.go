package main

import (
	"fmt"

	"github.com/ncwn/xMESH/state"
	"github.com/spf13/cobra"
)

var checkConfigCmd = &cobra.Command{
	Use:     "check-config <path>",
	Aliases: []string{"cc"},
	Short:   "Load and validate a node configuration file",
	GroupID: "diag",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.LoadConfig(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("node_id=%s role=%s protocol=%s duty_cycle=%d/%dms\n",
			cfg.NodeID, cfg.Role, cfg.Protocol, cfg.DutyCycleMaxMs, cfg.DutyCycleWindowMs)
		fmt.Println("configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
