package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ai-charchat-go/internal/handlers"
	"github.com/ai-charchat-go/internal/models"
	"github.com/spf13/cobra"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			v, err := handlers.NewProfileController(a.deps()).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printProfile(a, v)
		},
	}
	cmd.AddCommand(newProfileSetCommand(a), newProfilePrivacyCommand(a))
	return cmd
}

func newProfileSetCommand(a *app) *cobra.Command {
	var changes handlers.ProfileForm
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			c := handlers.NewProfileController(a.deps())
			current, err := c.Load(ctx)
			if err != nil {
				return err
			}

			u := current.User
			form := handlers.ProfileForm{
				Name:               u.Name,
				Pronouns:           u.Pronouns,
				Bio:                u.Bio,
				BirthDate:          u.BirthDate,
				Gender:             u.Gender,
				CommunicationStyle: u.CommunicationStyle,
				MessageLength:      u.MessageLength,
				Interests:          u.Interests,
				Goals:              u.Goals,
				Avoid:              u.Avoid,
				AvatarURL:          u.AvatarURL,
			}
			flags := cmd.Flags()
			set := func(name string, apply func()) {
				if flags.Changed(name) {
					apply()
				}
			}
			set("name", func() { form.Name = changes.Name })
			set("pronouns", func() { form.Pronouns = changes.Pronouns })
			set("bio", func() { form.Bio = changes.Bio })
			set("birth-date", func() { form.BirthDate = changes.BirthDate })
			set("gender", func() { form.Gender = changes.Gender })
			set("style", func() { form.CommunicationStyle = changes.CommunicationStyle })
			set("length", func() { form.MessageLength = changes.MessageLength })
			set("interests", func() { form.Interests = changes.Interests })
			set("goals", func() { form.Goals = changes.Goals })
			set("avoid", func() { form.Avoid = changes.Avoid })
			set("avatar", func() { form.AvatarURL = changes.AvatarURL })

			v, err := c.Save(ctx, form)
			if err != nil {
				return err
			}
			return printProfile(a, v)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&changes.Name, "name", "", "Display name")
	flags.StringVar(&changes.Pronouns, "pronouns", "", "Pronouns")
	flags.StringVar(&changes.Bio, "bio", "", "About you")
	flags.StringVar(&changes.BirthDate, "birth-date", "", "Birth date, YYYY-MM-DD")
	flags.StringVar(&changes.Gender, "gender", "", "Gender")
	flags.StringVar(&changes.CommunicationStyle, "style", "", "Communication style: casual, formal, ...")
	flags.StringVar(&changes.MessageLength, "length", "", "Preferred reply length: short, medium or long")
	flags.StringSliceVar(&changes.Interests, "interests", nil, "Comma separated interests")
	flags.StringVar(&changes.Goals, "goals", "", "What you want from chats")
	flags.StringVar(&changes.Avoid, "avoid", "", "Topics to avoid")
	flags.StringVar(&changes.AvatarURL, "avatar", "", "Avatar URL")
	return cmd
}

func newProfilePrivacyCommand(a *app) *cobra.Command {
	var privacy models.PrivacySettings
	cmd := &cobra.Command{
		Use:   "privacy",
		Short: "Set privacy preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services(cmd.Context()); err != nil {
				return err
			}
			return handlers.NewProfileController(a.deps()).SavePrivacy(cmd.Context(), privacy)
		},
	}
	cmd.Flags().BoolVar(&privacy.ShareUsageData, "share-usage", true, "Share usage data")
	cmd.Flags().BoolVar(&privacy.AllowNotifications, "notifications", false, "Allow notifications")
	cmd.Flags().BoolVar(&privacy.ShowOnlineStatus, "online-status", true, "Show online status")
	return cmd
}

func printProfile(a *app, v handlers.ProfileView) error {
	u := v.User
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", v.DisplayName)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	if u.Pronouns != "" {
		fmt.Fprintf(w, "Pronouns:\t%s\n", u.Pronouns)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "Bio:\t%s\n", u.Bio)
	}
	fmt.Fprintf(w, "Gender:\t%s\n", u.Gender)
	fmt.Fprintf(w, "Style:\t%s\n", u.CommunicationStyle)
	fmt.Fprintf(w, "Reply length:\t%s\n", u.MessageLength)
	fmt.Fprintf(w, "Interests:\t%s\n", strings.Join(u.Interests, ", "))
	if u.PrivacySettings != nil {
		p := u.PrivacySettings
		fmt.Fprintf(w, "Privacy:\tshare usage %t, notifications %t, online status %t\n",
			p.ShareUsageData, p.AllowNotifications, p.ShowOnlineStatus)
	}
	fmt.Fprintf(w, "Stats:\t%d chats, %d characters, %d messages\n", v.Chats, v.Characters, v.Messages)
	return w.Flush()
}
