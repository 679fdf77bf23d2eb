/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/perevoice/internal/gateway"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string
	noCache    bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text with the configured services",
	Long: `Translate text with the configured translation services.

The text is taken from the arguments, from --input, or from stdin.
Services are tried in the order of translation.services.

Example:
  perevoice translate --target uk "Good morning"
  perevoice translate -i article.txt -o article.uk.txt -t uk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile != "" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readInput(cmd, args, inputFile)
		if err != nil {
			return err
		}

		if noCache {
			cfg.Cache.Enabled = false
		}
		rt, err := buildRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := rt.service.Translate(context.Background(), gateway.TranslateInput{
			Text:       text,
			TargetLang: targetLang,
			SourceLang: sourceLang,
		})
		if err != nil {
			return err
		}

		if outputFile == "" {
			fmt.Fprintln(cmd.OutOrStdout(), out.TranslatedText)
		} else if err := writeOutput(outputFile, []byte(out.TranslatedText)); err != nil {
			return err
		}

		from := "cache"
		if !out.Cached {
			from = out.Service
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Translated %s to %s (%s)\n", out.SourceLang, targetOrDefault(targetLang), from)
		return nil
	},
}

func targetOrDefault(lang string) string {
	if lang == "" {
		return gateway.DefaultTargetLang
	}
	return lang
}

// readInput returns the joined arguments, the contents of path, or stdin.
func readInput(cmd *cobra.Command, args []string, path string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "Source language code (default translation.source_lang)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", gateway.DefaultTargetLang, "Target language code")
	translateCmd.Flags().StringSlice("services", nil, "Translation services to use, in order (overrides translation.services)")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory")

	_ = v.BindPFlag("translation.services", translateCmd.Flags().Lookup("services"))
}
