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

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// program implements the service.Interface
type program struct{}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) Stop(s service.Service) error {
	return nil
}

func (p *program) run() {
	RunAgent()
}

func getService(configPath string) (service.Service, error) {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	svcConfig := &service.Config{
		Name:        "ShipperAgent",
		DisplayName: "Shipper Deployment Agent",
		Description: "Pushes files to deploy receivers on schedule and on folder changes.",
		Arguments:   args,
	}

	prg := &program{}
	return service.New(prg, svcConfig)
}

func namedService() (service.Service, error) {
	return service.New(&program{}, &service.Config{Name: "ShipperAgent"})
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the agent as an OS service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := getService(viper.ConfigFileUsed())
		if err != nil {
			fmt.Printf("Setup failed: %v\n", err)
			return
		}

		// Check if already installed
		status, err := s.Status()
		if err == nil {
			fmt.Println("Shipper Agent is already installed.")
			if status == service.StatusRunning {
				fmt.Println("Service is currently RUNNING.")
			} else {
				fmt.Println("Service is currently STOPPED.")
			}
			fmt.Println("Use 'shipper restart' to apply config changes, or 'shipper uninstall' to remove it.")
			return
		}

		fmt.Println("Installing Shipper Agent service...")
		if err := s.Install(); err != nil {
			fmt.Printf("Failed to install: %v\n", err)
			fmt.Println("Hint: ensure you have administrative privileges.")
			return
		}
		fmt.Println("Service installed successfully.")

		fmt.Println("Starting service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the agent service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := namedService()
		if err != nil {
			fmt.Println(err)
			return
		}

		if err := s.Stop(); err != nil {
			// Ignore stop errors, it might not be running
		}

		if err := s.Uninstall(); err != nil {
			fmt.Printf("Failed to uninstall: %v\n", err)
			return
		}
		fmt.Println("Service uninstalled.")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the agent service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := namedService()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Restarting Shipper Agent service...")
		if err := s.Restart(); err != nil {
			fmt.Printf("Failed to restart: %v\n", err)
			return
		}
		fmt.Println("Service restarted.")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the agent service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := namedService()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Stopping Shipper Agent service...")
		if err := s.Stop(); err != nil {
			fmt.Printf("Failed to stop: %v\n", err)
			return
		}
		fmt.Println("Service stopped.")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := namedService()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Starting Shipper Agent service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the agent service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := namedService()
		if err != nil {
			fmt.Println(err)
			return
		}

		status, err := s.Status()
		if err != nil {
			fmt.Printf("Could not get status: %v\n", err)
			return
		}

		statusStr := "Unknown"
		switch status {
		case service.StatusRunning:
			statusStr = "Running"
		case service.StatusStopped:
			statusStr = "Stopped"
		}

		fmt.Printf("Shipper Agent service status: %s\n", statusStr)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
}
