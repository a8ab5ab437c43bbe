package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ai-charchat-go/internal/devserver"
	"github.com/ai-charchat-go/internal/models"
	"github.com/spf13/cobra"
)

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend and AI service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}

			server, serverErr := a.client.CheckServerHealth(ctx)
			ai, aiErr := a.client.CheckAIStatus(ctx)
			fmt.Fprintf(a.out, "Backend (%s): %s\n", a.cfg.API.BaseURL, describeStatus(server))
			fmt.Fprintf(a.out, "AI service: %s\n", describeStatus(ai))

			if serverErr != nil {
				return serverErr
			}
			if aiErr != nil {
				return aiErr
			}
			if !server.OK() || !ai.OK() {
				return errors.New("backend is not healthy")
			}
			return nil
		},
	}
}

func describeStatus(s *models.Status) string {
	if s == nil {
		return "unknown"
	}
	if s.Message != "" {
		return fmt.Sprintf("%s (%s)", s.Status, s.Message)
	}
	return s.Status
}

func newDevserverCommand(a *app) *cobra.Command {
	var addr, aiStatus string
	var seed bool
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend := devserver.New(a.log, devserver.WithAIStatus(aiStatus))
			if seed {
				seedCharacters(backend)
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      backend.Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", addr).Info("Dev backend listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.log.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop dev backend: %w", err)
			}
			a.log.Info("Dev backend stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address")
	cmd.Flags().StringVar(&aiStatus, "ai-status", "ok", "Status reported by the AI status endpoints")
	cmd.Flags().BoolVar(&seed, "seed", true, "Create a few public characters")
	return cmd
}

func seedCharacters(backend *devserver.Server) {
	likes := func(n int) *int { return &n }
	backend.SeedCharacter(models.Character{
		Name:           "Nova",
		Tagline:        "Stargazer and late-night philosopher",
		Personality:    "Curious, warm and a little dreamy.",
		Greeting:       "Hello, *traveler*! Have you looked at the sky tonight?",
		QuickReplies:   []string{"Tell me about the stars", "What are you reading?"},
		Emotes:         []string{"*waves*", "*smiles*"},
		IsPublic:       true,
		AIModel:        "gpt-3.5-turbo",
		MemoryStrength: 6,
		LikeCount:      likes(42),
	})
	backend.SeedCharacter(models.Character{
		Name:           "Captain Orbit",
		Tagline:        "Retired space pilot with too many stories",
		Personality:    "Boisterous and kind, exaggerates everything.",
		Greeting:       "Ahoy! Pull up a crate and I'll tell you about the Kuiper run.",
		QuickReplies:   []string{"Tell me a story", "Any advice?"},
		Emotes:         []string{"*salutes*", "*laughs*"},
		IsPublic:       true,
		AIModel:        "gpt-3.5-turbo",
		MemoryStrength: 4,
		LikeCount:      likes(17),
	})
}
