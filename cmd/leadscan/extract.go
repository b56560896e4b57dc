package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leadscan/internal/api"
	"github.com/jackzampolin/leadscan/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract leads from a PDF or image without a server",
	Long: `Run the extraction pipeline in-process and print the result.

The file type comes from the extension, or from the file contents when the
extension is unknown. Logs go to stderr so the output can be redirected.

Examples:
  leadscan extract card.jpg
  leadscan extract brochure.pdf -o json > leads.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(os.Stderr)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		a, err := e.newApp(e.mgr.Get())
		if err != nil {
			return err
		}

		res, err := a.Run(cmd.Context(), pipeline.Document{
			Name:     filepath.Base(args[0]),
			MIMEType: mime.TypeByExtension(filepath.Ext(args[0])),
			Data:     data,
		})
		if err != nil {
			return err
		}
		return api.Output(res)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
