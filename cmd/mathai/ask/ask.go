// Package askcmder provides the ask command for one-shot questions.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/request"
)

type askCommander struct {
	baseURL     string
	model       string
	maxTokens   uint
	temperature float64
	markdown    bool
	followups   bool
	trace       string
	save        bool

	env *cmdutil.Env
	out io.Writer
}

const askLongDesc string = `Ask a single question and stream the answer to stdout.

The question is taken from the arguments, or from stdin when no
arguments are given or the only argument is "-". No chat history is
sent with it.

Examples:
  mathai ask "Integrate x^2 from 0 to 3"
  echo "Is 2^31-1 prime?" | mathai ask
  mathai ask --followups --save "What is a group homomorphism?"`

const askShortDesc string = "Ask a single question"

var askFlags = []string{
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagTemperature,
	config.FlagMarkdown,
	config.FlagFollowups,
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			opts, trace, err := cmdutil.OpenTrace(cmder.trace)
			if err != nil {
				return err
			}

			cmder.env, err = cmdutil.Setup(cmd, askFlags, opts...)
			if err != nil {
				if trace != nil {
					_ = trace.Close()
				}
				return err
			}
			if trace != nil {
				cmder.env.AddCloser(trace)
			}
			defer cmder.env.Close()

			if err := cmder.env.RequireLogin(); err != nil {
				return err
			}

			cmder.out = cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return cmder.run(ctx, question)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagTemperature, &cmder.temperature)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)
	config.AddBoolFlag(cmd, config.Flags, config.FlagFollowups, &cmder.followups)
	cmd.Flags().StringVar(&cmder.trace, "trace", "", "Append the raw event stream to this file")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Record the question on the backend")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	cfg := c.env.Config

	messages := []api.Message{}
	if cfg.Chat.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: api.RoleSystem, Content: cfg.Chat.SystemPrompt})
	}
	messages = append(messages, api.Message{Role: api.RoleUser, Content: question})

	call := request.New(api.Generate, http.MethodPost, api.ChatRequest{
		Model:       cfg.Client.Model,
		Messages:    messages,
		MaxTokens:   int(cfg.Client.MaxTokens),
		Temperature: cfg.Client.Temperature,
	})

	var answer strings.Builder
	for delta, err := range c.env.Client.StreamDeltas(ctx, call) {
		if err != nil {
			return err
		}
		answer.WriteString(delta.Text)
		if !cfg.Chat.Markdown {
			fmt.Fprint(c.out, delta.Text)
		}
	}

	if cfg.Chat.Markdown {
		rendered, err := cliui.RenderMarkdown(answer.String(), 80)
		if err != nil {
			c.env.Logger.Warn("could not render markdown", zap.Error(err))
			rendered = answer.String()
		}
		fmt.Fprint(c.out, rendered)
	}
	fmt.Fprintln(c.out)

	if ctx.Err() != nil {
		return nil
	}

	if c.save {
		id, err := c.env.Client.SaveQuestion(ctx, question, nil)
		if err != nil {
			return fmt.Errorf("saving question: %w", err)
		}
		c.env.Logger.Info("question saved", zap.String("question_id", id))
	}

	if cfg.Chat.Followups {
		followups, err := c.env.Client.Followups(ctx, question)
		if err != nil {
			return fmt.Errorf("fetching follow-ups: %w", err)
		}
		for _, q := range followups.Questions {
			fmt.Fprintf(c.out, "  %s %s\n", cliui.DimStyle.Render("?"), q)
		}
		for _, f := range followups.Files {
			fmt.Fprintf(c.out, "  %s %s %s\n", cliui.DimStyle.Render("§"), cliui.NameStyle.Render(f.FileName), cliui.DimStyle.Render(f.DownloadURL))
		}
	}
	return nil
}

func readQuestion(args []string, in io.Reader) (string, error) {
	var question string
	if len(args) > 0 && (len(args) != 1 || args[0] != "-") {
		question = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		question = string(b)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("no question given")
	}
	return question, nil
}
