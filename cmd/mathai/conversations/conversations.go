// Package conversationscmder provides the conversations command for managing
// conversations stored on the backend.
package conversationscmder

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/transport"
	"github.com/papercomputeco/mathai/pkg/utils"
)

const conversationsLongDesc string = `List the conversations stored on the backend.

Each line shows the conversation ID, its title and the number of stored
messages. With --show, the messages of one conversation are printed.

Examples:
  mathai conversations
  mathai conversations --show 12
  mathai conversations --create "Linear algebra revision"
  mathai conversations --rename 12 --title "Eigenvalues"
  mathai conversations --delete 12`

const conversationsShortDesc string = "Manage stored conversations"

type conversationsCommander struct {
	baseURL string
	create  string
	show    int
	rename  int
	title   string
	remove  int
}

func NewConversationsCmd() *cobra.Command {
	cmder := &conversationsCommander{}

	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs"},
		Short:   conversationsShortDesc,
		Long:    conversationsLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("rename") && strings.TrimSpace(cmder.title) == "" {
				return errors.New("--rename requires --title")
			}

			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.RequireLogin(); err != nil {
				return err
			}
			return cmder.run(cmd, env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	cmd.Flags().StringVar(&cmder.create, "create", "", "Create a conversation with this title")
	cmd.Flags().IntVar(&cmder.show, "show", 0, "Print the messages of the conversation with this ID")
	cmd.Flags().IntVar(&cmder.rename, "rename", 0, "Rename the conversation with this ID (requires --title)")
	cmd.Flags().StringVar(&cmder.title, "title", "", "New title for --rename")
	cmd.Flags().IntVar(&cmder.remove, "delete", 0, "Delete the conversation with this ID")
	cmd.MarkFlagsMutuallyExclusive("create", "show", "rename", "delete")

	return cmd
}

func (c *conversationsCommander) run(cmd *cobra.Command, env *cmdutil.Env) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	flags := cmd.Flags()

	switch {
	case c.create != "":
		id, err := env.Client.CreateConversation(ctx, c.create)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n  %s Created conversation %s\n\n", cliui.SuccessMark, conversationName(id))
		return nil

	case flags.Changed("show"):
		msgs, err := env.Client.ConversationMessages(ctx, c.show)
		if err != nil {
			return notFound(c.show, err)
		}
		printMessages(out, c.show, msgs)
		return nil

	case flags.Changed("rename"):
		if err := env.Client.RenameConversation(ctx, c.rename, c.title); err != nil {
			return notFound(c.rename, err)
		}
		fmt.Fprintf(out, "\n  %s Renamed conversation %s to %s\n\n",
			cliui.SuccessMark,
			conversationName(c.rename),
			cliui.ValueStyle.Render(c.title),
		)
		return nil

	case flags.Changed("delete"):
		if err := env.Client.DeleteConversation(ctx, c.remove); err != nil {
			return notFound(c.remove, err)
		}
		fmt.Fprintf(out, "\n  %s Deleted conversation %s\n\n", cliui.SuccessMark, conversationName(c.remove))
		return nil
	}

	convs, err := env.Client.Conversations(ctx)
	if err != nil {
		return err
	}
	printList(out, convs)
	return nil
}

// notFound replaces the backend's 404 with a message naming the ID.
func notFound(id int, err error) error {
	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("conversation %d not found", id)
	}
	return err
}

func conversationName(id int) string {
	return cliui.NameStyle.Render(fmt.Sprintf("#%d", id))
}

func printList(out io.Writer, convs []api.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintf(out, "\n  %s No conversations.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Conversations"))
	for _, c := range convs {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("#%-4d", c.ID)),
			utils.Truncate(title, 50),
			cliui.DimStyle.Render(fmt.Sprintf("%d messages", len(c.Messages))),
		)
	}
	fmt.Fprintln(out)
}

func printMessages(out io.Writer, id int, msgs []api.ConversationMessage) {
	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("Conversation #%d", id)))
	if len(msgs) == 0 {
		fmt.Fprintf(out, "  %s No messages.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	for _, m := range msgs {
		fmt.Fprintf(out, "  %s %s", cliui.NameStyle.Render(m.Role+">"), strings.ReplaceAll(m.Content, "\n", "\n  "))
		if m.Timestamp != "" {
			fmt.Fprintf(out, "  %s", cliui.DimStyle.Render(m.Timestamp))
		}
		fmt.Fprint(out, "\n\n")
	}
}
