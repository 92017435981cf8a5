// Copyright 2026 Portside Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the upload ledger",
}

var historyListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List past uploads, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		entries, err := db.History(limit)
		if err != nil {
			fmt.Printf("Failed to read history: %v\n", err)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No uploads recorded.")
			return
		}

		fmt.Printf("% -20s % -30s % -12s % -10s % -9s %s\n", "WHEN", "FILE", "PATH KEY", "SIZE", "STATUS", "ERROR")
		fmt.Println(strings.Repeat("-", 100))
		for _, e := range entries {
			fmt.Printf("% -20s % -30s % -12s % -10s % -9s %s\n",
				e.UploadedAt, e.Filename, e.PathKey, humanize.Bytes(uint64(e.FileSize)), e.Status, e.ErrorMsg)
		}
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	Long:  `Removes the entire upload ledger. This is atomic and irreversible.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		if err := db.ClearHistory(); err != nil {
			fmt.Printf("Failed to clear history: %v\n", err)
			return
		}
		fmt.Println("History cleared.")
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 100, "Maximum entries to show")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
