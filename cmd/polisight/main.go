package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "polisight"}

	root.AddCommand(serveCMD(), collectCMD(), scoreCMD(), predictCMD(),
		analyzeCMD(), cacheCMD(), searchCMD(), migrateCMD())
	_ = root.Execute()
}
