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

	"github.com/portside/shipper/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage watched folders",
}

var watchAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a watched folder",
	Long: `Watches a folder for changes and uploads the most recently changed
matching file once the folder has been quiet for the debounce window.
Bursts of events collapse into a single upload.`,
	Example: `  shipper watch add --folder ./build --server prod --path-key web --pattern "*.tar.gz" --debounce-ms 2000`,
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		folder, _ := cmd.Flags().GetString("folder")
		serverRef, _ := cmd.Flags().GetString("server")
		pathKey, _ := cmd.Flags().GetString("path-key")
		patterns, _ := cmd.Flags().GetStringArray("pattern")
		debounceMs, _ := cmd.Flags().GetInt("debounce-ms")

		if folder == "" || pathKey == "" {
			fmt.Println("Error: --folder and --path-key are required.")
			return
		}
		absFolder, err := filepath.Abs(folder)
		if err != nil {
			fmt.Printf("Invalid folder: %v\n", err)
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

		w, err := db.SaveWatch(store.WatchConfig{
			ID:         id,
			FolderPath: absFolder,
			ServerID:   srv.ID,
			PathKey:    pathKey,
			Patterns:   patterns,
			DebounceMs: debounceMs,
			Enabled:    true,
		})
		if err != nil {
			fmt.Printf("Failed to save watch: %v\n", err)
			return
		}

		patternDesc := "all files"
		if len(patterns) > 0 {
			patternDesc = strings.Join(patterns, ", ")
		}
		fmt.Printf("Watch '%s' saved: %s (%s) -> %s/%s, debounce %dms\n",
			w.ID, absFolder, patternDesc, srv.Name, pathKey, w.DebounceMs)
		fmt.Println("A running agent picks this up within a few seconds.")
	},
}

var watchListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List watched folders",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		watches, err := db.Watches()
		if err != nil {
			fmt.Printf("Failed to list watches: %v\n", err)
			return
		}
		if len(watches) == 0 {
			fmt.Println("No watches configured.")
			return
		}

		fmt.Printf("% -38s % -35s % -20s % -12s % -10s %s\n", "ID", "FOLDER", "PATTERNS", "PATH KEY", "DEBOUNCE", "ENABLED")
		fmt.Println(strings.Repeat("-", 125))
		for _, w := range watches {
			patterns := "*"
			if len(w.Patterns) > 0 {
				patterns = strings.Join(w.Patterns, ",")
			}
			fmt.Printf("% -38s % -35s % -20s % -12s % -10s %v\n",
				w.ID, w.FolderPath, patterns, w.PathKey, fmt.Sprintf("%dms", w.DebounceMs), w.Enabled)
		}
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm", "del"},
	Short:   "Remove a watched folder",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		if err := db.DeleteWatch(args[0]); err != nil {
			fmt.Printf("Failed to remove: %v\n", err)
			return
		}
		fmt.Println("Watch removed.")
	},
}

func setWatchEnabled(id string, enabled bool) {
	db, err := openStore()
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		return
	}
	defer db.Close()

	w, err := db.Watch(id)
	if err != nil {
		fmt.Printf("Failed: %v\n", err)
		return
	}
	w.Enabled = enabled
	if _, err := db.SaveWatch(*w); err != nil {
		fmt.Printf("Failed to save: %v\n", err)
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Watch on %s %s. A running agent picks this up within a few seconds.\n", w.FolderPath, state)
}

var watchEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a watch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setWatchEnabled(args[0], true)
	},
}

var watchDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a watch (cancels any pending debounce)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setWatchEnabled(args[0], false)
	},
}

func init() {
	watchAddCmd.Flags().String("id", "", "Existing watch id to update")
	watchAddCmd.Flags().String("folder", "", "Folder to watch")
	watchAddCmd.Flags().String("server", "", "Target server id or name (default: the default server)")
	watchAddCmd.Flags().String("path-key", "", "Whitelisted destination path key")
	watchAddCmd.Flags().StringArray("pattern", nil, "Glob pattern to match (repeatable, empty = all files)")
	watchAddCmd.Flags().Int("debounce-ms", 1000, "Quiet window after the last event before uploading")

	watchCmd.AddCommand(watchAddCmd)
	watchCmd.AddCommand(watchListCmd)
	watchCmd.AddCommand(watchRemoveCmd)
	watchCmd.AddCommand(watchEnableCmd)
	watchCmd.AddCommand(watchDisableCmd)
	rootCmd.AddCommand(watchCmd)
}
