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

	"github.com/spf13/cobra"

	"github.com/valpere/perevoice/internal/gateway"
)

var (
	speakInput  string
	speakOutput string
	speakLang   string
	speakFormat string
)

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Synthesize speech to an MP3 file",
	Long: `Synthesize speech with the configured provider and write it as MP3.

The text is taken from the arguments, from --input, or from stdin.
With --format markdown the text is rendered and stripped of markup first.

Example:
  perevoice speak --lang uk "Добрий ранок" -o morning.mp3
  perevoice speak -i README.md --format markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args, speakInput)
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := rt.service.Speak(context.Background(), gateway.SpeakInput{
			Text:   text,
			Lang:   speakLang,
			Format: speakFormat,
		})
		if err != nil {
			return err
		}

		if err := writeOutput(speakOutput, out.Audio); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes", speakOutput, len(out.Audio))
		if out.Duration > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), ", %.1fs", out.Duration.Seconds())
		}
		if out.Cached {
			fmt.Fprint(cmd.OutOrStdout(), ", cached")
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().StringVarP(&speakInput, "input", "i", "", "Input file to read")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "speech.mp3", "Output MP3 file")
	speakCmd.Flags().StringVarP(&speakLang, "lang", "l", gateway.DefaultSpeechLang, "Speech language code")
	speakCmd.Flags().StringVarP(&speakFormat, "format", "f", gateway.FormatText, "Input format: text or markdown")
	speakCmd.Flags().String("provider", "", "Speech provider (overrides speech.provider)")

	_ = v.BindPFlag("speech.provider", speakCmd.Flags().Lookup("provider"))
}
