package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"ai-chatbot-client/internal/console"
	"ai-chatbot-client/internal/entity"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type globalOptions struct {
	relayURL      string
	identityStore string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:   "chat",
		Short: "Terminal client for the AI chatbot",
		Long:  "chat signs you in by name, lists your conversation threads and exchanges messages with the chatbot through the relay.",
		// no subcommand starts the interactive session
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.relayURL, "relay", "", "relay base URL (default $RELAY_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.identityStore, "store", "", "identity store: file, redis or memory (default $IDENTITY_STORE)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start an interactive session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInteractive(cmd, opts)
			},
		},
		newLoginCmd(&opts),
		newLogoutCmd(&opts),
		newWhoamiCmd(&opts),
		newThreadsCmd(&opts),
		newHistoryCmd(&opts),
		newSendCmd(&opts),
	)

	return rootCmd
}

func runInteractive(cmd *cobra.Command, opts globalOptions) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	c := console.New(a.manager, a.bus, cmd.InOrStdin(), cmd.OutOrStdout())
	c.SetWidth(terminalWidth())
	return c.Run(cmd.Context())
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Sign in by name and remember the identity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.manager.Authenticate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (id %s)\n", user.Name, user.Id)
			return nil
		},
	}
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			user := a.manager.User()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s)\n", user.Name, user.Id)
			return nil
		},
	}
}

func newThreadsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List your threads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			// Bootstrap swallows a failed refresh; one-shot callers want the error
			if err := a.manager.LoadThreads(cmd.Context()); err != nil {
				return err
			}
			console.RenderThreads(cmd.OutOrStdout(), a.manager.Threads(), nil)
			return nil
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <thread id>",
		Short: "Print the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadId, err := parseThreadId(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			if err := a.manager.SelectThread(cmd.Context(), findThread(a.manager.Threads(), threadId)); err != nil {
				return err
			}
			console.RenderMessages(cmd.OutOrStdout(), a.manager.Messages(), terminalWidth())
			return nil
		},
	}
}

func newSendCmd(opts *globalOptions) *cobra.Command {
	var thread int64

	cmd := &cobra.Command{
		Use:   "send [--thread id] <text>",
		Short: "Send one message and print the reply",
		Long:  "send posts a message to an existing thread, or starts a new thread when --thread is not given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			if cmd.Flags().Changed("thread") {
				if thread <= 0 {
					return usageError("--thread must be a positive thread id")
				}
				if err := a.manager.SelectThread(cmd.Context(), findThread(a.manager.Threads(), thread)); err != nil {
					return err
				}
			}

			if err := a.manager.SendMessage(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if selected := a.manager.Selected(); selected != nil && !cmd.Flags().Changed("thread") {
				fmt.Fprintf(out, "Started thread #%d: %s\n", selected.Id, selected.Title)
			}
			messages := a.manager.Messages()
			if n := len(messages); n >= 2 {
				messages = messages[n-2:]
			}
			console.RenderMessages(out, messages, terminalWidth())
			return nil
		},
	}
	cmd.Flags().Int64Var(&thread, "thread", 0, "thread id to reply to")
	return cmd
}

func parseThreadId(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid thread id %q", arg)
	}
	return id, nil
}

// findThread returns the listed thread with id, or a bare one when the list
// does not have it.
func findThread(threads []entity.ChatThread, id int64) entity.ChatThread {
	for _, t := range threads {
		if t.Id == id {
			return t
		}
	}
	return entity.ChatThread{Id: id}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return console.DefaultWidth
}
