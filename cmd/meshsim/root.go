// Package main implements meshsim, a developer-facing simulation and
// diagnostics harness for the routing core. It is explicitly not the mesh
// node's own runtime — that surface is the radio driver and board firmware
// this repository never implements — but a companion tool for exercising
// the routing/link-quality/duty-cycle logic against synthetic topologies,
// in the teacher's cmd/ cobra-CLI style.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meshsim",
	Short: "Simulation and diagnostics harness for the mesh routing core",
	Long: `meshsim drives the routing core against synthetic topologies without a
real radio: it wires MeshCore instances together over an in-process link and
lets you observe convergence, duty-cycle admission, and route selection.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "sim", Title: "Simulation"})
	rootCmd.AddGroup(&cobra.Group{ID: "diag", Title: "Diagnostics"})
}

func main() {
	Execute()
}
