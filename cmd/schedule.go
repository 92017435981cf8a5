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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portside/shipper/internal/scheduler"
	"github.com/portside/shipper/internal/store"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage cron-driven uploads",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a scheduled upload",
	Long: `Registers a 5-field cron rule (minute hour day-of-month month day-of-week).
The expression is validated now; the running agent picks the change up on
its next tick. Missed firings are not replayed after downtime.`,
	Example: `  shipper schedule add --name nightly --cron "0 3 * * *" --source ./backup --server prod --path-key archives`,
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		cronExpr, _ := cmd.Flags().GetString("cron")
		source, _ := cmd.Flags().GetString("source")
		serverRef, _ := cmd.Flags().GetString("server")
		pathKey, _ := cmd.Flags().GetString("path-key")
		extract, _ := cmd.Flags().GetBool("extract")

		if name == "" || cronExpr == "" || source == "" || pathKey == "" {
			fmt.Println("Error: --name, --cron, --source and --path-key are required.")
			return
		}
		if err := scheduler.Validate(cronExpr); err != nil {
			fmt.Printf("Rejected: %v\n", err)
			return
		}
		absSource, err := filepath.Abs(source)
		if err != nil {
			fmt.Printf("Invalid source path: %v\n", err)
			return
		}

		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		srv, err := resolveServer(db, serverRef)
		if err != nil {
			fmt.Println(err)
			return
		}
		if !srv.HasPathKey(pathKey) {
			fmt.Printf("Error: path key %q is not whitelisted for server '%s'.\n", pathKey, srv.Name)
			return
		}

		sc, err := db.SaveSchedule(store.Schedule{
			ID:         id,
			Name:       name,
			CronExpr:   cronExpr,
			SourcePath: absSource,
			ServerID:   srv.ID,
			PathKey:    pathKey,
			Extract:    extract,
			Enabled:    true,
		})
		if err != nil {
			fmt.Printf("Failed to save schedule: %v\n", err)
			return
		}
		fmt.Printf("Schedule '%s' saved (%s): %s -> %s/%s at '%s'\n", name, sc.ID, absSource, srv.Name, pathKey, cronExpr)
	},
}

var scheduleListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List scheduled uploads",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		schedules, err := db.Schedules()
		if err != nil {
			fmt.Printf("Failed to list schedules: %v\n", err)
			return
		}
		if len(schedules) == 0 {
			fmt.Println("No schedules configured.")
			return
		}

		fmt.Printf("% -38s % -15s % -15s % -35s % -12s %s\n", "ID", "NAME", "CRON", "SOURCE", "PATH KEY", "ENABLED")
		fmt.Println(strings.Repeat("-", 125))
		for _, s := range schedules {
			fmt.Printf("% -38s % -15s % -15s % -35s % -12s %v\n", s.ID, s.Name, s.CronExpr, s.SourcePath, s.PathKey, s.Enabled)
		}
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm", "del"},
	Short:   "Remove a scheduled upload",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		if err := db.DeleteSchedule(args[0]); err != nil {
			fmt.Printf("Failed to remove: %v\n", err)
			return
		}
		fmt.Println("Schedule removed.")
	},
}

func setScheduleEnabled(id string, enabled bool) {
	db, err := openStore()
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		return
	}
	defer db.Close()

	sc, err := db.Schedule(id)
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}
	sc.Enabled = enabled
	if _, err := db.SaveSchedule(*sc); err != nil {
		fmt.Printf("Failed to save: %v\n", err)
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Schedule '%s' %s. Takes effect on the agent's next tick.\n", sc.Name, state)
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setScheduleEnabled(args[0], true)
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setScheduleEnabled(args[0], false)
	},
}

func init() {
	scheduleAddCmd.Flags().String("id", "", "Existing schedule id to update")
	scheduleAddCmd.Flags().String("name", "", "Schedule name")
	scheduleAddCmd.Flags().String("cron", "", "5-field cron expression")
	scheduleAddCmd.Flags().String("source", "", "File or folder to upload")
	scheduleAddCmd.Flags().String("server", "", "Target server id or name (default: the default server)")
	scheduleAddCmd.Flags().String("path-key", "", "Whitelisted destination path key")
	scheduleAddCmd.Flags().Bool("extract", false, "Ask the receiver to unpack archives")

	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleEnableCmd)
	scheduleCmd.AddCommand(scheduleDisableCmd)
	rootCmd.AddCommand(scheduleCmd)
}
