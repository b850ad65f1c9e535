package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
)

var (
	exportOut  string
	exportFrom string
	exportTo   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the user's products to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "products.xlsx", "Output file")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Purchase date lower bound (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Purchase date upper bound (YYYY-MM-DD)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	user, err := userID()
	if err != nil {
		return err
	}
	from, err := parseDay("from", exportFrom)
	if err != nil {
		return err
	}
	to, err := parseDay("to", exportTo)
	if err != nil {
		return err
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	data, err := a.Export.ProductsXLSX(ctx, user, from, to)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o600); err != nil {
		return err
	}
	logger.Info("cli.export.written", "path", exportOut, "bytes", len(data))
	return nil
}

func parseDay(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "--"+flag+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}
