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
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/portside/shipper/internal/notify"
	"github.com/portside/shipper/internal/queue"
	"github.com/portside/shipper/internal/transport"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [path]",
	Short: "Upload a file or folder to a receiver",
	Long: `Queues one upload and runs it to completion. Folders are packed into a
zip and transferred as a single unit; pass --extract to have the receiver
unpack it into the target directory.`,
	Example: `  shipper upload ./dist --server prod --path-key web --extract`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		serverRef, _ := cmd.Flags().GetString("server")
		pathKey, _ := cmd.Flags().GetString("path-key")
		extract, _ := cmd.Flags().GetBool("extract")

		sourcePath, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Printf("Invalid path: %v\n", err)
			return
		}
		if pathKey == "" {
			fmt.Println("Error: --path-key is required.")
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

		settings := loadSettings()
		orch := queue.New(db, transport.NewClient(), notify.New(settings.NotifyURLs, nil), settings.UploadParallelism)
		orch.Subscribe(func(ev queue.ProgressEvent) {
			fmt.Printf("\r%s: %5.1f%%", ev.Filename, ev.Percent)
		})

		q := orch.NewQueue()
		task, err := q.Enqueue(sourcePath, srv.ID, pathKey, extract)
		if err != nil {
			fmt.Printf("Cannot queue upload: %v\n", err)
			return
		}

		what := task.Filename
		if task.IsDirectory {
			what = fmt.Sprintf("%s (%d files)", task.Filename, task.FileCount)
		}
		fmt.Printf("Uploading %s (%s) to %s/%s\n", what, humanize.Bytes(uint64(task.SizeBytes)), srv.Name, pathKey)

		if err := q.Run(context.Background()); err != nil {
			fmt.Println()
			if errors.Is(err, queue.ErrNoIdentity) {
				fmt.Println("No signing identity configured. Run 'shipper key generate --save' first.")
			} else {
				fmt.Printf("Upload aborted: %v\n", err)
			}
			return
		}
		fmt.Println()

		for _, t := range q.Tasks() {
			if t.ID != task.ID {
				continue
			}
			if t.Status == queue.StatusSuccess {
				fmt.Println("Upload complete.")
			} else {
				fmt.Printf("Upload failed: %s\n", t.ErrorMessage)
			}
		}
	},
}

func init() {
	uploadCmd.Flags().String("server", "", "Target server id or name (default: the default server)")
	uploadCmd.Flags().String("path-key", "", "Whitelisted destination path key")
	uploadCmd.Flags().Bool("extract", false, "Ask the receiver to unpack the archive")
	rootCmd.AddCommand(uploadCmd)
}
