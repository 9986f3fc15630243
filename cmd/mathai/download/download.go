// Package downloadcmder provides the download command for fetching knowledge
// base files referenced by answers.
package downloadcmder

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
)

const downloadLongDesc string = `Download a knowledge base file.

The argument is the file path of a reference, or the download URL printed
next to it by chat and ask --followups. The file is saved under its own
name in the current directory unless --output is given; "-" writes it to
stdout.

Examples:
  mathai download kb/linear_algebra.pdf
  mathai download "/api/download?file_path=kb/linear_algebra.pdf" -o la.pdf
  mathai download kb/notes.md -o - | less`

const downloadShortDesc string = "Download a knowledge base file"

type downloadCommander struct {
	baseURL string
	output  string
	force   bool
}

func NewDownloadCmd() *cobra.Command {
	cmder := &downloadCommander{}

	cmd := &cobra.Command{
		Use:   "download <file-path|download-url>",
		Short: downloadShortDesc,
		Long:  downloadLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, err := resolveFilePath(args[0])
			if err != nil {
				return err
			}

			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.RequireLogin(); err != nil {
				return err
			}

			if cmder.output == "-" {
				_, err := env.Client.Download(cmd.Context(), filePath, cmd.OutOrStdout())
				return err
			}
			return cmder.toFile(cmd, env, filePath)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", `Destination file ("-" for stdout)`)
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Overwrite an existing destination file")

	return cmd
}

func (c *downloadCommander) toFile(cmd *cobra.Command, env *cmdutil.Env, filePath string) error {
	dest := c.output
	if dest == "" {
		dest = path.Base(filePath)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !c.force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
		}
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	out := cmd.OutOrStdout()
	var n int64
	fmt.Fprintln(out)
	err = cliui.Step(out, "Downloading "+cliui.NameStyle.Render(filePath), func() error {
		var err error
		n, err = env.Client.Download(cmd.Context(), filePath, f)
		return err
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}

	abs, _ := filepath.Abs(dest)
	fmt.Fprintf(out, "\n  %s Saved %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(abs),
		cliui.DimStyle.Render(fmt.Sprintf("(%d bytes)", n)),
	)
	return nil
}

// resolveFilePath accepts a bare file path or a download URL carrying it in
// the file_path query parameter.
func resolveFilePath(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if u, err := url.Parse(arg); err == nil && strings.HasSuffix(u.Path, api.Download) {
		arg = u.Query().Get("file_path")
	}
	if arg == "" {
		return "", errors.New("no file path given")
	}
	return arg, nil
}
