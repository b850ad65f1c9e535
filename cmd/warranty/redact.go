package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
)

var redactCmd = &cobra.Command{
	Use:   "redact [file]",
	Short: "Mask personal data in text read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRedact,
}

func init() {
	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	strict, ok := redact.ParseStrict(strictFlag)
	if !ok {
		strict, _ = redact.ParseStrict(os.Getenv("REDACTION_STRICT"))
	}
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), redact.Text(string(raw), strict))
	return err
}
