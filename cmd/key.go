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

	"github.com/spf13/cobra"

	"github.com/portside/shipper/internal/sigkey"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the signing identity",
	Long: `The agent signs every upload with an Ed25519 key pair. Only the public
key ever leaves this machine: paste it into the receiver's configuration.`,
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair",
	Run: func(cmd *cobra.Command, args []string) {
		save, _ := cmd.Flags().GetBool("save")

		priv, pub, err := sigkey.Generate()
		if err != nil {
			fmt.Printf("Key generation failed: %v\n", err)
			return
		}

		fmt.Printf("Private key: %s\n", priv)
		fmt.Printf("Public key:  %s\n", pub)

		if !save {
			fmt.Println("\nDry run only. Re-run with --save to make this the active identity.")
			return
		}

		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		if err := db.SaveIdentity(priv, pub); err != nil {
			fmt.Printf("Failed to save identity: %v\n", err)
			return
		}
		fmt.Println("\nSaved as the active identity. The previous identity (if any) was replaced.")
	},
}

var keyImportCmd = &cobra.Command{
	Use:   "import [private-key-hex]",
	Short: "Import an existing private key",
	Long:  `Accepts a hex-encoded Ed25519 private key (64-byte key or 32-byte seed) and derives the public key.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		priv := args[0]

		pub, err := sigkey.PublicKeyFromPrivate(priv)
		if err != nil {
			fmt.Printf("Invalid key: %v\n", err)
			return
		}

		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		if err := db.SaveIdentity(priv, pub); err != nil {
			fmt.Printf("Failed to save identity: %v\n", err)
			return
		}
		fmt.Printf("Identity imported. Public key: %s\n", pub)
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active identity's public key",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openStore()
		if err != nil {
			fmt.Printf("Failed to open store: %v\n", err)
			return
		}
		defer db.Close()

		identity, err := db.Identity()
		if err != nil {
			fmt.Printf("Failed to read identity: %v\n", err)
			return
		}
		if identity == nil {
			fmt.Println("No identity configured. Run 'shipper key generate --save' first.")
			return
		}

		fmt.Printf("Public key: %s\n", identity.PublicKey)
		fmt.Printf("Updated at: %s\n", identity.UpdatedAt)
		fmt.Println("\nCopy the public key into the receiver's security configuration.")
	},
}

func init() {
	keyGenerateCmd.Flags().Bool("save", false, "Persist the generated pair as the active identity")

	keyCmd.AddCommand(keyGenerateCmd)
	keyCmd.AddCommand(keyImportCmd)
	keyCmd.AddCommand(keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}
