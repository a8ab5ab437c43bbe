package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	envFile    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		switch {
		case a.reported():
		case errors.Is(err, handlers.ErrNotLoggedIn):
			fmt.Fprintln(os.Stderr, "You are not logged in. Run `charchat login` first.")
		default:
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "charchat",
		Short:         "Chat with AI characters from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to configuration file")
	flags.StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newLoginCommand(a),
		newSignupCommand(a),
		newAnonymousCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newCharactersCommand(a),
		newChatCommand(a),
		newSessionsCommand(a),
		newProfileCommand(a),
		newSettingsCommand(a),
		newMusicCommand(a),
		newEndpointsCommand(a),
		newHealthCommand(a),
		newDevserverCommand(a),
	)
	return root
}
