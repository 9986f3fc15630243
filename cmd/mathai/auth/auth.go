// Package authcmder provides the auth command for logging in to a math AI
// backend and managing the stored session token.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathai/cmd/mathai/cmdutil"
	"github.com/papercomputeco/mathai/pkg/cliui"
	"github.com/papercomputeco/mathai/pkg/config"
	"github.com/papercomputeco/mathai/pkg/credentials"
)

const authLongDesc string = `Log in to a math AI backend.

Session tokens are stored per backend in credentials.toml in the .mathai/
directory and sent as a bearer token on every authenticated request.
The MATHAI_TOKEN environment variable overrides the stored token.

Examples:
  mathai auth login ada                  Prompt for the password of ada
  echo $PASS | mathai auth login ada     Pipe the password from stdin
  mathai auth register ada --email a@b.c Create an account and log in
  mathai auth status                     Show stored sessions
  mathai auth logout                     Forget the session token`

const authShortDesc string = "Log in to a math AI backend"

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newLoginCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			username := strings.TrimSpace(args[0])
			env.Tokens.SetUsername(username)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			err = cliui.Step(out, "Logging in to "+cliui.NameStyle.Render(env.Client.BaseURL()), func() error {
				_, err := env.Client.Login(cmd.Context(), username, password)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n  %s Logged in as %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(username))
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var baseURL, email string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}

			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			username := strings.TrimSpace(args[0])
			env.Tokens.SetUsername(username)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			err = cliui.Step(out, "Registering "+cliui.NameStyle.Render(username), func() error {
				_, err := env.Client.Register(cmd.Context(), username, password, email)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n  %s Registered and logged in as %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(username))
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	cmd.Flags().StringVar(&email, "email", "", "Email address for the new account")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Setup(cmd, []string{config.FlagBaseURL})
			if err != nil {
				return err
			}
			defer env.Close()

			user := env.Tokens.Username()
			if err := env.Client.Logout(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s Logged out of %s", cliui.SuccessMark, cliui.NameStyle.Render(env.Client.BaseURL()))
			if user != "" {
				fmt.Fprintf(out, " %s", cliui.DimStyle.Render("("+user+")"))
			}
			fmt.Fprint(out, "\n\n")
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List backends with a stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runStatus(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	hosts, err := mgr.ListHosts()
	if err != nil {
		return err
	}

	if os.Getenv(credentials.TokenEnvVar) != "" {
		fmt.Fprintf(out, "\n  %s %s is set and overrides stored tokens.\n",
			cliui.WarnStyle.Render("!"),
			credentials.TokenEnvVar,
		)
	}

	if len(hosts) == 0 {
		fmt.Fprintf(out, "\n  %s Not logged in.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'mathai auth login <username>' to log in.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Sessions"))
	for _, host := range hosts {
		session, err := mgr.GetSession(host)
		if err != nil {
			return err
		}

		user := session.Username
		if user == "" {
			user = "unknown user"
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(host),
			cliui.DimStyle.Render("as "+user),
		)
	}
	fmt.Fprintln(out)

	return nil
}

// readPassword reads a password from in. Piped input supplies the first line;
// a terminal is prompted with hidden input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && cliui.IsTerminal(f) {
		fmt.Fprint(prompt, "Password: ")
		password, err := cliui.ReadSecret(f)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return checkPassword(password)
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return checkPassword(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}

func checkPassword(password string) (string, error) {
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}
