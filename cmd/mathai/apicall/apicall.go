// Package apicallcmder provides the api command for sending raw requests to
// any backend endpoint.
package apicallcmder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
)

const apiLongDesc string = `Send an authenticated request to a backend endpoint and print the response.

The endpoint is a path ("/v1/related_questions") or a symbolic name
("related_questions", "RELATED_QUESTIONS"). Data is a JSON object; for
GET and DELETE it is sent as query parameters, otherwise as the body.
With --stream the request is sent with "stream": true and the content
deltas are printed as they arrive.

--form sends multipart form data instead of JSON: "name=value" adds a
field and "name=@path" attaches a file.

Examples:
  mathai api related_questions -d '{"question":"What is a ring?"}'
  mathai api reference_files -X GET -d '{"query":"eigenvalues"}'
  mathai api generate --stream -d '{"model":"deepseek-r1","messages":[{"role":"user","content":"1+1"}]}'
  mathai api ocr -F file=@problem.png -F lang=en`

const apiShortDesc string = "Send a raw API request"

func NewAPICmd() *cobra.Command {
	var (
		baseURL   string
		method    string
		data      string
		headers   []string
		form      []string
		streaming bool
		trace     string
	)

	cmd := &cobra.Command{
		Use:   "api <endpoint>",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				var err error
				if path, err = api.Lookup(path); err != nil {
					return err
				}
			}

			if len(form) > 0 && (data != "" || streaming) {
				return errors.New("--form cannot be combined with --data or --stream")
			}

			var payload any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					return fmt.Errorf("parsing --data: %w", err)
				}
			}

			call, err := request.FromSpec(request.Spec{URL: path, Method: strings.ToUpper(method), Data: payload})
			if err != nil {
				return err
			}
			if len(headers) > 0 {
				h, err := parseHeaders(headers)
				if err != nil {
					return err
				}
				call = call.WithHeaders(h)
			}
			if len(form) > 0 {
				f, files, err := parseForm(form)
				defer closeAll(files)
				if err != nil {
					return err
				}
				call.Multipart = f
			}

			opts, traceFile, err := cmdutil.OpenTrace(trace)
			if err != nil {
				return err
			}

			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL}, opts...)
			if err != nil {
				if traceFile != nil {
					_ = traceFile.Close()
				}
				return err
			}
			if traceFile != nil {
				env.AddCloser(traceFile)
			}
			defer env.Close()

			out := cmd.OutOrStdout()

			if streaming {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()

				return env.Client.Stream(ctx, call, stream.Callbacks{
					OnData: func(text string, final bool) {
						switch {
						case !final:
							fmt.Fprint(out, text)
						case text == "":
							fmt.Fprintln(out)
						}
					},
				}, stream.WithDiagnostics(func(d stream.Diagnostic) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", d.Kind, d.Err)
				}))
			}

			raw, err := env.Client.Request(cmd.Context(), call)
			if err != nil {
				return err
			}
			if raw == nil {
				return nil
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return fmt.Errorf("formatting response: %w", err)
			}
			fmt.Fprintln(out, pretty.String())
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request data")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header as \"Name: value\"")
	cmd.Flags().StringArrayVarP(&form, "form", "F", nil, "Multipart field as \"name=value\" or \"name=@path\"")
	cmd.Flags().BoolVar(&streaming, "stream", false, "Stream the response as content deltas")
	cmd.Flags().StringVar(&trace, "trace", "", "Append the raw event stream to this file")

	return cmd
}

func parseHeaders(raw []string) (map[string]string, error) {
	h := make(map[string]string, len(raw))
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", line)
		}
		h[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return h, nil
}

// parseForm turns name=value and name=@path arguments into a multipart form.
// The returned files must be closed by the caller, even on error.
func parseForm(raw []string) (*request.Form, []io.Closer, error) {
	form := &request.Form{Fields: map[string]string{}}
	var files []io.Closer

	for _, arg := range raw {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, files, fmt.Errorf("invalid form field %q: expected \"name=value\" or \"name=@path\"", arg)
		}

		path, isFile := strings.CutPrefix(value, "@")
		if !isFile {
			form.Fields[name] = value
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, files, fmt.Errorf("opening form file: %w", err)
		}
		files = append(files, f)
		form.Files = append(form.Files, request.File{Field: name, Name: filepath.Base(path), Reader: f})
	}
	return form, files, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
