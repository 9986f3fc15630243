// Package uploadcmder provides the upload command for sending files, such as
// photographed problems for OCR, to the backend.
package uploadcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
)

const uploadLongDesc string = `Upload a file to the backend as multipart form data.

By default the file goes to the OCR endpoint and the recognized text is
printed. Use --endpoint to upload elsewhere, by name or path.

Examples:
  mathai upload problem.png
  mathai upload notes.pdf --endpoint /v1/documents
  mathai upload problem.png --raw`

const uploadShortDesc string = "Upload a file"

func NewUploadCmd() *cobra.Command {
	var (
		baseURL  string
		endpoint string
		raw      bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: uploadShortDesc,
		Long:  uploadLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := endpoint
			if resolved, err := api.Lookup(endpoint); err == nil {
				path = resolved
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.RequireLogin(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			name := filepath.Base(args[0])
			var message string

			cb := stream.Callbacks{
				OnData: func(text string, _ bool) {
					message = text
				},
				OnComplete: func(_ context.Context, body string) error {
					env.Logger.Debug("upload finished", zap.String("file", name), zap.Int("response_bytes", len(body)))
					if raw {
						message = body
					}
					return nil
				},
			}

			fmt.Fprintln(out)
			err = cliui.Step(out, "Uploading "+cliui.NameStyle.Render(name), func() error {
				_, err := env.Client.UploadFile(cmd.Context(), path, request.File{Name: name, Reader: f}, nil, cb)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s\n", message)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	cmd.Flags().StringVar(&endpoint, "endpoint", api.OCR, "Endpoint name or path to upload to")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw JSON response")

	return cmd
}
