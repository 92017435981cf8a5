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
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/portside/shipper/internal/notify"
	"github.com/portside/shipper/internal/queue"
	"github.com/portside/shipper/internal/scheduler"
	"github.com/portside/shipper/internal/transport"
	"github.com/portside/shipper/internal/watcher"
)

// RunAgent is the entry point for the long-running process. It wires the
// scheduler and watcher trigger sources into a shared upload orchestrator
// and blocks until interrupted.
func RunAgent() {
	if service.Interactive() {
		fmt.Println("Shipper Agent starting...")
	} else {
		log.Println("Shipper Agent starting as service...")
	}

	// Reload config just in case
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: config not found or invalid: %v", err)
	}
	settings := loadSettings()

	db, err := openStore()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	notifier := notify.New(settings.NotifyURLs, nil)
	orch := queue.New(db, transport.NewClient(), notifier, settings.UploadParallelism)
	orch.Subscribe(func(ev queue.ProgressEvent) {
		if ev.Percent == 100 {
			log.Printf("[upload] %s done", ev.Filename)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		cancel()
	}()

	sched := scheduler.New(db, orch)
	go sched.Run(ctx)

	w, err := watcher.New(db, orch)
	if err != nil {
		log.Fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Run(ctx); err != nil {
		log.Fatalf("Watcher failed: %v", err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long:  `Runs the scheduler and folder watchers directly. Also invoked by the OS service wrapper.`,
	Run: func(cmd *cobra.Command, args []string) {
		if service.Interactive() {
			RunAgent()
		} else {
			// When running as a service we must check in with the service manager
			s, err := getService(viper.ConfigFileUsed())
			if err != nil {
				log.Fatalf("Failed to initialize service: %v", err)
			}
			s.Run()
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
