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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portside/shipper/internal/store"
	"github.com/portside/shipper/internal/transport"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage deploy receiver endpoints",
}

// resolveServer finds a server by id or name; an empty ref resolves to the
// default server.
func resolveServer(db *store.DB, ref string) (*store.Server, error) {
	if ref == "" {
		srv, err := db.DefaultServer()
		if err != nil {
			return nil, fmt.Errorf("no server given and no default set")
		}
		return srv, nil
	}
	if srv, err := db.Server(ref); err == nil {
		return srv, nil
	}
	servers, err := db.Servers()
	if err != nil {
		return nil, err
	}
	for i, s := range servers {
		if s.Name == ref {
			return &servers[i], nil
		}
	}
	return nil, fmt.Errorf("server not found: %s", ref)
}

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a deploy receiver",
	Long: `Registers a receiver endpoint and the path keys it accepts. Path keys are
the only destinations uploads may reference; anything else is rejected
before any bytes move.`,
	Example: `  shipper server add --name prod --url "https://deploy.example.com" --path-key web --path-key assets --default`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")
		id, _ := cmd.Flags().GetString("id")
		pathKeys, _ := cmd.Flags().GetStringArray("path-key")
		isDefault, _ := cmd.Flags().GetBool("default")
		force, _ := cmd.Flags().GetBool("force")

		if name == "" || url == "" {
			fmt.Println("Error: --name and --url are required.")
			return
		}
		url = strings.TrimRight(url, "/")

		if !force {
			fmt.Printf("Verifying connection to %s...\n", url)
			if err := transport.NewClient().TestConnection(context.Background(), url); err != nil {
				fmt.Printf("Connection failed: %v\n", err)
				fmt.Println("Use --force to add anyway.")
				return
			}
			fmt.Println("Connection verified.")
		}

		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		srv, err := db.SaveServer(store.Server{
			ID:    id,
			Name:  name,
			URL:   url,
			Paths: pathKeys,
		})
		if err != nil {
			fmt.Printf("Failed to save server: %v\n", err)
			return
		}
		if isDefault {
			if err := db.SetDefaultServer(srv.ID); err != nil {
				fmt.Printf("Failed to set default: %v\n", err)
				return
			}
		}

		fmt.Printf("Server '%s' saved (%s). Path keys: %s\n", name, srv.ID, strings.Join(pathKeys, ", "))
	},
}

var serverListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List configured receivers",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		servers, err := db.Servers()
		if err != nil {
			fmt.Printf("Failed to list servers: %v\n", err)
			return
		}
		if len(servers) == 0 {
			fmt.Println("No servers configured.")
			return
		}

		fmt.Printf("% -38s % -15s % -35s % -25s %s\n", "ID", "NAME", "URL", "PATH KEYS", "DEFAULT")
		fmt.Println(strings.Repeat("-", 120))
		for _, s := range servers {
			def := ""
			if s.IsDefault {
				def = "*"
			}
			fmt.Printf("% -38s % -15s % -35s % -25s %s\n", s.ID, s.Name, s.URL, strings.Join(s.Paths, ","), def)
		}
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove [id|name]",
	Aliases: []string{"rm", "del"},
	Short:   "Remove a configured receiver",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		srv, err := resolveServer(db, args[0])
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := db.DeleteServer(srv.ID); err != nil {
			fmt.Printf("Failed to remove: %v\n", err)
			return
		}
		fmt.Printf("Server '%s' removed.\n", srv.Name)
		if srv.IsDefault {
			fmt.Println("Note: the removed server was the default. Set a new one with 'shipper server set-default'.")
		}
	},
}

var serverSetDefaultCmd = &cobra.Command{
	Use:   "set-default [id|name]",
	Short: "Mark a receiver as the default upload target",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		srv, err := resolveServer(db, args[0])
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := db.SetDefaultServer(srv.ID); err != nil {
			fmt.Printf("Failed to set default: %v\n", err)
			return
		}
		fmt.Printf("'%s' is now the default server.\n", srv.Name)
	},
}

var serverTestCmd = &cobra.Command{
	Use:   "test [id|name|url]",
	Short: "Probe a receiver's health endpoint",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]
		if !strings.Contains(url, "://") {
			db, err := openStore()
			if err != nil {
				fmt.Printf("Failed to open store: %v\n", err)
				return
			}
			defer db.Close()
			srv, err := resolveServer(db, args[0])
			if err != nil {
				fmt.Println(err)
				return
			}
			url = srv.URL
		}

		if err := transport.NewClient().TestConnection(context.Background(), url); err != nil {
			fmt.Printf("Unreachable: %v\n", err)
			return
		}
		fmt.Printf("%s is reachable.\n", url)
	},
}

var serverInfoCmd = &cobra.Command{
	Use:   "info [id|name|url]",
	Short: "Fetch a receiver's info document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]
		if !strings.Contains(url, "://") {
			db, err := openStore()
			if err != nil {
				fmt.Printf("Failed to open store: %v\n", err)
				return
			}
			defer db.Close()
			srv, err := resolveServer(db, args[0])
			if err != nil {
				fmt.Println(err)
				return
			}
			url = srv.URL
		}

		info, err := transport.NewClient().ServerInfo(context.Background(), url)
		if err != nil {
			fmt.Printf("Failed: %v\n", err)
			return
		}
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	serverAddCmd.Flags().String("id", "", "Existing server id to update")
	serverAddCmd.Flags().String("name", "", "Unique name for this receiver")
	serverAddCmd.Flags().String("url", "", "Receiver base URL")
	serverAddCmd.Flags().StringArray("path-key", nil, "Whitelisted path key (repeatable)")
	serverAddCmd.Flags().Bool("default", false, "Make this the default upload target")
	serverAddCmd.Flags().Bool("force", false, "Skip connection verification")

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverSetDefaultCmd)
	serverCmd.AddCommand(serverTestCmd)
	serverCmd.AddCommand(serverInfoCmd)
	rootCmd.AddCommand(serverCmd)
}
