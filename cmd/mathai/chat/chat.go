// Package chatcmder provides the chat command for interactive math chat
// against the configured backend.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/stream"
	"github.com/papercomputeco/mathai/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("mathai> ")
)

type chatCommander struct {
	baseURL     string
	model       string
	maxTokens   uint
	temperature float64
	markdown    bool
	followups   bool
	trace       string
	save        bool

	env *cmdutil.Env

	// history holds the user and assistant turns of this run, oldest first.
	history        []api.Message
	conversationID int

	in  io.Reader
	out io.Writer
}

const chatLongDesc string = `Start an interactive math chat session.

Answers are streamed as they are generated. Press Ctrl+C while an answer
is streaming to stop it; the partial answer is kept in the history.

The history lives only as long as the session. With --save each turn is
also appended to a conversation stored on the backend.

Commands inside the session:
  /new     Forget the history and start a new conversation
  /exit    Quit (Ctrl+D works too)

Examples:
  mathai chat
  mathai chat --model qwen2-math --temperature 0.2
  mathai chat --followups --save
  mathai chat --trace stream.log`

const chatShortDesc string = "Interactive math chat"

var chatFlags = []string{
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagTemperature,
	config.FlagMarkdown,
	config.FlagFollowups,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, trace, err := cmdutil.OpenTrace(cmder.trace)
			if err != nil {
				return err
			}

			cmder.env, err = cmdutil.Setup(cmd, chatFlags, opts...)
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

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagTemperature, &cmder.temperature)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)
	config.AddBoolFlag(cmd, config.Flags, config.FlagFollowups, &cmder.followups)
	cmd.Flags().StringVar(&cmder.trace, "trace", "", "Append the raw event stream to this file")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Also store the conversation on the backend")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	cfg := c.env.Config

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s  %s %s",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(cfg.Client.Model),
		cliui.KeyStyle.Render("Backend:"),
		cliui.NameStyle.Render(c.env.Client.BaseURL()),
	)
	if user := c.env.Tokens.Username(); user != "" {
		fmt.Fprintf(c.out, "  %s %s", cliui.KeyStyle.Render("User:"), cliui.NameStyle.Render(user))
	}
	fmt.Fprint(c.out, "\n\n")
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /new to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			c.history, c.conversationID = nil, 0
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		if err := c.ask(ctx, input); err != nil {
			fmt.Fprintf(c.out, "\n  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		if ctx.Err() != nil {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// ask streams one answer. Ctrl+C cancels only this answer.
func (c *chatCommander) ask(parent context.Context, input string) error {
	cfg := c.env.Config

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	n := len(c.history)
	c.history = append(c.history, api.Message{Role: api.RoleUser, Content: input})

	req := api.ChatRequest{
		Model:       cfg.Client.Model,
		Messages:    c.requestMessages(),
		MaxTokens:   int(cfg.Client.MaxTokens),
		Temperature: cfg.Client.Temperature,
	}

	c.env.Logger.Debug("sending chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	fmt.Fprint(c.out, assistantPrompt)
	cb := stream.Callbacks{
		// A failure's final text is dropped here; the returned error is shown.
		OnData: func(text string, final bool) {
			if !final && !cfg.Chat.Markdown {
				fmt.Fprint(c.out, text)
			}
		},
		OnComplete: func(ctx context.Context, full string) error {
			return c.complete(ctx, input, full)
		},
	}

	err := c.env.Client.Complete(ctx, req, cb)
	if err != nil {
		// The question stays out of the history so it can be retried.
		c.history = c.history[:n]
		return err
	}

	if ctx.Err() != nil && parent.Err() == nil {
		fmt.Fprintf(c.out, "\n  %s\n", cliui.DimStyle.Render("(interrupted)"))
	}
	fmt.Fprintln(c.out)

	if cfg.Chat.Followups && parent.Err() == nil {
		c.showFollowups(parent, input)
	}
	return nil
}

// complete records the finished answer in the history and, with --save, on
// the backend. A partial answer from an interrupted stream is kept too.
func (c *chatCommander) complete(ctx context.Context, question, answer string) error {
	if c.env.Config.Chat.Markdown && answer != "" {
		rendered, err := cliui.RenderMarkdown(answer, c.width())
		if err != nil {
			c.env.Logger.Warn("could not render markdown", zap.Error(err))
			rendered = answer
		}
		fmt.Fprint(c.out, "\n"+rendered)
	}

	if c.save {
		if err := c.saveRemote(ctx, question, answer); err != nil {
			c.env.Logger.Warn("could not save conversation", zap.Error(err))
		}
	}

	c.history = append(c.history, api.Message{Role: api.RoleAssistant, Content: answer})
	return nil
}

func (c *chatCommander) saveRemote(ctx context.Context, question, answer string) error {
	if c.conversationID == 0 {
		id, err := c.env.Client.CreateConversation(ctx, utils.Truncate(question, 60))
		if err != nil {
			return err
		}
		c.conversationID = id
	}

	id := c.conversationID
	if err := c.env.Client.AppendMessage(ctx, id, api.RoleUser, question); err != nil {
		return err
	}
	return c.env.Client.AppendMessage(ctx, id, api.RoleAssistant, answer)
}

func (c *chatCommander) showFollowups(ctx context.Context, question string) {
	followups, err := c.env.Client.Followups(ctx, question)
	if err != nil {
		c.env.Logger.Warn("could not fetch follow-ups", zap.Error(err))
		return
	}

	if len(followups.Questions) > 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.HeaderStyle.Render("Related questions"))
		for i, q := range followups.Questions {
			fmt.Fprintf(c.out, "  %s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)), q)
		}
		fmt.Fprintln(c.out)
	}

	if len(followups.Files) > 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.HeaderStyle.Render("References"))
		for _, f := range followups.Files {
			fmt.Fprintf(c.out, "  %s %s\n", cliui.NameStyle.Render(f.FileName), cliui.DimStyle.Render(f.DownloadURL))
		}
		fmt.Fprintln(c.out)
	}
}

// requestMessages is the history with the configured system prompt in front.
func (c *chatCommander) requestMessages() []api.Message {
	msgs := make([]api.Message, 0, len(c.history)+1)
	if prompt := c.env.Config.Chat.SystemPrompt; prompt != "" {
		msgs = append(msgs, api.Message{Role: api.RoleSystem, Content: prompt})
	}
	return append(msgs, c.history...)
}

func (c *chatCommander) width() int {
	if f, ok := c.out.(*os.File); ok {
		return cliui.Width(f, 80)
	}
	return 80
}
