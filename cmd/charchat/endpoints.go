package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ai-charchat-go/internal/config"
	"github.com/spf13/cobra"
)

func newEndpointsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the AI models reachable by the endpoint responder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			options, err := a.registry.Models(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENDPOINT\tMODEL\tNAME\tMAX TOKENS")
			for _, m := range options {
				marker := ""
				if m.ID == a.cfg.Models.Default {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s\t%s%s\t%s\t%d\n", m.EndpointName, m.ID, marker, m.Name, m.MaxTokens)
			}
			return w.Flush()
		},
	}

	var endpoint config.ModelEndpoint
	var modelIDs []string
	add := &cobra.Command{
		Use:   "add NAME BASE_URL",
		Short: "Add an OpenAI-compatible endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			endpoint.Name, endpoint.BaseURL = args[0], args[1]
			for _, id := range modelIDs {
				endpoint.Models = append(endpoint.Models, config.ModelInfo{ID: id})
			}
			if err := a.registry.AddEndpoint(ctx, endpoint); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Endpoint %s added\n", endpoint.Name)
			return nil
		},
	}
	add.Flags().StringVar(&endpoint.DisplayName, "display-name", "", "Name shown in listings")
	add.Flags().StringVar(&endpoint.APIKey, "api-key", "", "API key sent to this endpoint")
	add.Flags().StringSliceVar(&modelIDs, "models", nil, "Comma separated model ids")

	var model config.ModelInfo
	addModel := &cobra.Command{
		Use:   "add-model ENDPOINT MODEL_ID",
		Short: "Add a model to an endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			model.ID = args[1]
			if err := a.registry.AddModel(ctx, args[0], model); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Model %s added to %s\n", model.ID, args[0])
			return nil
		},
	}
	addModel.Flags().StringVar(&model.Name, "name", "", "Display name of the model")
	addModel.Flags().IntVar(&model.MaxTokens, "max-tokens", 0, "Reply token limit")

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove an added endpoint or a stored override of a configured one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.services(ctx); err != nil {
				return err
			}
			if err := a.registry.RemoveEndpoint(ctx, args[0]); err != nil {
				return err
			}
			if _, ok := a.cfg.EndpointByName(args[0]); ok {
				fmt.Fprintf(a.out, "Endpoint %s reset to its configured settings\n", args[0])
				return nil
			}
			fmt.Fprintf(a.out, "Endpoint %s removed\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, addModel, remove)
	return cmd
}
