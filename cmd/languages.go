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
	"strings"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List language codes accepted by the configured services",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		langs := rt.service.Languages(context.Background())
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Translation: %s\n", describeLanguages(langs.Translation))
		fmt.Fprintf(w, "Speech:      %s\n", describeLanguages(langs.Speech))
		return nil
	},
}

func describeLanguages(codes []string) string {
	if codes == nil {
		return "any (at least one service accepts every code)"
	}
	return strings.Join(codes, " ")
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
