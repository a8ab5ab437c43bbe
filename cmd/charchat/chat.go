package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/ai-charchat-go/internal/view"
	"github.com/ai-charchat-go/pkg/markdown"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const chatHelp = "Type a message and press enter. /r N sends quick reply N, /e N sends emote N, /quit leaves."

func newChatCommand(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "chat SESSION_ID",
		Short: "Open a chat session",
		Long:  "Open a chat session and talk to the character. With --message a single message is sent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			responder, err := a.responder()
			if err != nil {
				return err
			}

			c := handlers.NewChatController(a.deps(), responder, nil)
			v, err := c.Open(ctx, models.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Chat with %s\n\n", v.CharacterName)
			printMessages(a, v.CharacterName, v.Messages)

			if message != "" {
				_, err := send(ctx, a, c.Send, len(v.Messages), message)
				return err
			}

			go purgeExpired(ctx, a.store, time.Minute, a.log)
			return chatLoop(ctx, cmd, a, c, v)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	return cmd
}

func chatLoop(ctx context.Context, cmd *cobra.Command, a *app, c *handlers.ChatController, v handlers.ChatView) error {
	fmt.Fprintln(a.out, chatHelp)
	printOffers(a, v)

	shown := len(v.Messages)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		text, ok := resolveInput(a, line, c.View())
		if !ok {
			if line == "/quit" {
				return nil
			}
			continue
		}

		next, err := send(ctx, a, senderFor(c, line), shown, text)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		var formErr *handlers.FormError
		if errors.As(err, &formErr) {
			fmt.Fprintln(a.out, formErr.Message)
		}
		shown = next
		printOffers(a, c.View())
	}
}

// resolveInput turns a typed line into message text. Slash commands pick an
// offered quick reply or emote.
func resolveInput(a *app, line string, v handlers.ChatView) (string, bool) {
	if !strings.HasPrefix(line, "/") {
		return line, true
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		if line != "/quit" {
			fmt.Fprintln(a.out, chatHelp)
		}
		return "", false
	}

	var options []string
	switch fields[0] {
	case "/r":
		options = v.QuickReplies
	case "/e":
		options = v.Emotes
	default:
		fmt.Fprintln(a.out, chatHelp)
		return "", false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(options) {
		fmt.Fprintf(a.out, "Choose a number between 1 and %d.\n", len(options))
		return "", false
	}
	return options[n-1], true
}

type sender func(ctx context.Context, text string) (handlers.ChatView, error)

// senderFor picks the controller action matching how line was typed.
func senderFor(c *handlers.ChatController, line string) sender {
	switch {
	case strings.HasPrefix(line, "/r "):
		return c.SendQuickReply
	case strings.HasPrefix(line, "/e "):
		return c.SendEmote
	}
	return c.Send
}

// send posts text and prints the messages added since shown. It returns the
// new number of shown messages.
func send(ctx context.Context, a *app, post sender, shown int, text string) (int, error) {
	v, err := post(ctx, text)
	if shown < len(v.Messages) {
		printMessages(a, v.CharacterName, v.Messages[shown:])
		shown = len(v.Messages)
	}
	if err == nil && a.player != nil {
		a.player.PlaySound("message")
	}
	return shown, err
}

func printMessages(a *app, character string, msgs []handlers.ChatMessage) {
	for _, m := range msgs {
		who := "You"
		if m.IsCharacter {
			who = character
		}
		suffix := ""
		switch {
		case m.Failed:
			suffix = " (not sent)"
		case m.Pending:
			suffix = " (sending)"
		}
		fmt.Fprintf(a.out, "[%s] %s%s:\n%s\n\n", m.Time, who, suffix, markdown.ToTerminal(m.Content))
	}
}

func printOffers(a *app, v handlers.ChatView) {
	for i, r := range v.QuickReplies {
		fmt.Fprintf(a.out, "  /r %d  %s\n", i+1, r)
	}
	if v.ShowEmotes {
		for i, e := range v.Emotes {
			fmt.Fprintf(a.out, "  /e %d  %s\n", i+1, e)
		}
	}
}

// purgeExpired drops expired store entries while a chat is open.
func purgeExpired(ctx context.Context, store *storage.Manager, every time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired entries")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Debug("Purged expired entries")
			}
		}
	}
}

func newSessionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and delete chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			list, err := handlers.NewChatListController(a.deps()).Load(cmd.Context())
			printSessions(a, list)
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			list, err := handlers.NewChatListController(a.deps()).Delete(cmd.Context(), models.ID(args[0]))
			if err != nil {
				return err
			}
			printSessions(a, list)
			return nil
		},
	})
	return cmd
}

func printSessions(a *app, list handlers.ChatList) {
	switch {
	case list.Error != "":
		fmt.Fprintln(a.out, list.Error)
		return
	case list.Empty:
		fmt.Fprintln(a.out, list.EmptyText)
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tCHARACTER\tLAST MESSAGE\tUPDATED\tUNREAD")
	for _, item := range list.Items {
		unread := ""
		if item.Unread > 0 {
			unread = strconv.Itoa(item.Unread)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.SessionID, item.CharacterName, view.TruncateText(item.LastMessage, 40), item.Updated, unread)
	}
	w.Flush()
}
