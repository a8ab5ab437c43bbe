package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/view"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCharactersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "characters",
		Aliases: []string{"chars"},
		Short:   "Manage characters",
	}
	cmd.AddCommand(
		newCharactersListCommand(a),
		newCharactersPublicCommand(a),
		newCharactersShowCommand(a),
		newCharactersCreateCommand(a),
		newCharactersEditCommand(a),
		newCharactersDeleteCommand(a),
		newCharactersAddCommand(a),
		newCharactersChatCommand(a),
	)
	return cmd
}

func newCharactersListCommand(a *app) *cobra.Command {
	var sortMode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			c := handlers.NewCharacterController(a.deps())
			list, err := c.LoadUserCharacters(ctx)
			if err != nil {
				printCharacters(a, list)
				return err
			}
			if sortMode != view.SortDate {
				if list, err = c.Sort(ctx, sortMode); err != nil {
					return err
				}
			}
			printCharacters(a, list)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortMode, "sort", view.SortDate, "Sort by date, name or popular")
	return cmd
}

func newCharactersPublicCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "public",
		Short: "List public characters, most liked first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			list, err := handlers.NewCharacterController(a.deps()).LoadPublicCharacters(cmd.Context())
			printCharacters(a, list)
			return err
		},
	}
}

func newCharactersShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ch, err := selectCharacter(cmd, a, args[0])
			if err != nil {
				return err
			}
			qv := c.QuickView(cmd.Context(), ch)

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", ch.Name)
			if ch.Tagline != "" {
				fmt.Fprintf(w, "Tagline:\t%s\n", ch.Tagline)
			}
			fmt.Fprintf(w, "Personality:\t%s\n", ch.Personality)
			if ch.Background != "" {
				fmt.Fprintf(w, "Background:\t%s\n", ch.Background)
			}
			fmt.Fprintf(w, "Greeting:\t%s\n", ch.Greeting)
			fmt.Fprintf(w, "Model:\t%s\n", ch.AIModel)
			fmt.Fprintf(w, "Memory:\t%s\n", qv.MemoryLabel)
			fmt.Fprintf(w, "Likes:\t%s\n", qv.LikeCount)
			fmt.Fprintf(w, "Public:\t%t\n", ch.IsPublic)
			if len(ch.QuickReplies) > 0 {
				fmt.Fprintf(w, "Quick replies:\t%s\n", strings.Join(ch.QuickReplies, ", "))
			}
			if len(ch.Emotes) > 0 {
				fmt.Fprintf(w, "Emotes:\t%s\n", strings.Join(ch.Emotes, ", "))
			}
			var actions []string
			if qv.CanEdit {
				actions = append(actions, "edit", "delete")
			}
			if qv.CanAdd {
				actions = append(actions, "add")
			}
			actions = append(actions, "chat")
			fmt.Fprintf(w, "Actions:\t%s\n", strings.Join(actions, ", "))
			return w.Flush()
		},
	}
}

func newCharactersCreateCommand(a *app) *cobra.Command {
	var form handlers.CharacterForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			saved, err := handlers.NewCharacterController(a.deps()).Save(ctx, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Character id: %s\n", saved.ID)
			return nil
		},
	}
	characterFlags(cmd.Flags(), &form, 5)
	return cmd
}

func newCharactersEditCommand(a *app) *cobra.Command {
	var changes handlers.CharacterForm
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit one of your characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ch, err := selectCharacter(cmd, a, args[0])
			if err != nil {
				return err
			}
			form := c.Edit(ch)
			mergeCharacterForm(cmd.Flags(), &form, changes)
			_, err = c.Save(cmd.Context(), form)
			return err
		},
	}
	characterFlags(cmd.Flags(), &changes, 0)
	return cmd
}

func newCharactersDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ch, err := selectCharacter(cmd, a, args[0])
			if err != nil {
				return err
			}
			if qv := c.QuickView(cmd.Context(), ch); !qv.CanDelete {
				return fmt.Errorf("character %s is not yours", ch.ID)
			}
			return c.DeleteCurrent(cmd.Context())
		},
	}
}

func newCharactersAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add ID",
		Short: "Add a copy of a public character to your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ch, err := selectCharacter(cmd, a, args[0])
			if err != nil {
				return err
			}
			c.QuickView(cmd.Context(), ch)
			saved, err := c.AddToMine(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Character id: %s\n", saved.ID)
			return nil
		},
	}
}

func newCharactersChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat ID",
		Short: "Start a new chat with a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ch, err := selectCharacter(cmd, a, args[0])
			if err != nil {
				return err
			}
			c.QuickView(cmd.Context(), ch)
			sess, err := c.StartChat(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Chat session %s started. Continue with `charchat chat %s`.\n", sess.ID, sess.ID)
			return nil
		},
	}
}

// selectCharacter wires the services and fetches the character with id.
func selectCharacter(cmd *cobra.Command, a *app, id string) (*handlers.CharacterController, *models.Character, error) {
	ctx := cmd.Context()
	if err := a.services(ctx); err != nil {
		return nil, nil, err
	}
	ch, err := a.chars.Get(ctx, models.ID(id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load character %s: %w", id, err)
	}
	return handlers.NewCharacterController(a.deps()), ch, nil
}

func characterFlags(flags *pflag.FlagSet, form *handlers.CharacterForm, memory int) {
	flags.StringVar(&form.Name, "name", "", "Character name")
	flags.StringVar(&form.Personality, "personality", "", "Personality description")
	flags.StringVar(&form.Greeting, "greeting", "", "First message of a new chat")
	flags.StringVar(&form.Farewell, "farewell", "", "Farewell message")
	flags.StringVar(&form.Background, "background", "", "Background story")
	flags.StringVar(&form.Tagline, "tagline", "", "Short tagline")
	flags.BoolVar(&form.IsNSFW, "nsfw", false, "Mark as NSFW")
	flags.BoolVar(&form.IsPublic, "public", false, "Share publicly")
	flags.StringVar(&form.AIModel, "model", "", "AI model id")
	flags.IntVar(&form.MemoryStrength, "memory", memory, "Memory strength, 1 to 10")
	flags.StringVar(&form.QuickReplies, "quick-replies", "", "Comma separated quick replies")
	flags.StringVar(&form.Emotes, "emotes", "", "Comma separated emotes")
	flags.StringVar(&form.AvatarURL, "avatar", "", "Avatar URL")
}

// mergeCharacterForm copies the fields whose flags were set onto form.
func mergeCharacterForm(flags *pflag.FlagSet, form *handlers.CharacterForm, changes handlers.CharacterForm) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("name", func() { form.Name = changes.Name })
	set("personality", func() { form.Personality = changes.Personality })
	set("greeting", func() { form.Greeting = changes.Greeting })
	set("farewell", func() { form.Farewell = changes.Farewell })
	set("background", func() { form.Background = changes.Background })
	set("tagline", func() { form.Tagline = changes.Tagline })
	set("nsfw", func() { form.IsNSFW = changes.IsNSFW })
	set("public", func() { form.IsPublic = changes.IsPublic })
	set("model", func() { form.AIModel = changes.AIModel })
	set("memory", func() { form.MemoryStrength = changes.MemoryStrength })
	set("quick-replies", func() { form.QuickReplies = changes.QuickReplies })
	set("emotes", func() { form.Emotes = changes.Emotes })
	set("avatar", func() { form.AvatarURL = changes.AvatarURL })
}

func printCharacters(a *app, list handlers.CharacterList) {
	switch {
	case list.Error != "":
		fmt.Fprintln(a.out, list.Error)
		return
	case list.Empty:
		fmt.Fprintln(a.out, list.EmptyText)
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGLINE\tMEMORY\tCREATED\tMINE")
	for _, card := range list.Cards {
		mine := ""
		if card.Owned {
			mine = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			card.Character.ID, card.Character.Name, card.Tagline, card.MemoryLabel, card.Created, mine)
	}
	w.Flush()
}
