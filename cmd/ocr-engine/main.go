// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ocr-engine CLI.
// Implements: prd001-ingestion … prd007-pipeline (CLI surface).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// resolveAPIKey returns the OCR credential by precedence: explicit
// flag value, MISTRAL_API_KEY environment variable, then the
// .secrets/mistral-api-key file. Empty means no credential.
func resolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		return v
	}
	return loadedSecrets["mistral-api-key"]
}

// rootCmd is the base command for the ocr-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "ocr-engine",
	Short: "Convert PDFs and images to Markdown via remote OCR",
	Long: `ocr-engine turns PDF and raster image documents into Markdown using the
Mistral OCR service, extracts embedded images, renders an HTML preview, and
keeps a searchable history of processed documents.

Each pipeline operation is a subcommand: process runs the full OCR pipeline,
preview re-renders saved Markdown as HTML, and history/lookup query the index
of earlier runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ocr-engine.yaml or ~/.config/ocr-engine/config.yaml)")
}

func initConfig() {
	// A local .env may carry MISTRAL_API_KEY; missing files are fine.
	godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ocr-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ocr-engine"))
		}
	}

	viper.SetEnvPrefix("OCR_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
