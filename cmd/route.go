package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svala-ai/svala/core/routing"
)

var (
	routeJSON        bool
	routeAttachments bool
)

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Classify a query without dispatching it",
	Long: `Classify a query through the rule and fallback tiers and print the
action and knowledge routes it would take.

Examples:
  svala route "vad blir vädret imorgon"
  svala route --json "spela lite musik"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "print the result as JSON")
	routeCmd.Flags().BoolVar(&routeAttachments, "attachments", false, "classify as if attachments were present")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	query := strings.Join(args, " ")
	flags := routing.Flags{HasAttachments: routeAttachments}

	action := a.actions.Classify(cmd.Context(), query, flags)
	knowledge := a.knowledge.Classify(cmd.Context(), query, flags)

	if routeJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"query":     query,
			"action":    string(action),
			"knowledge": string(knowledge),
		})
	}

	fmt.Printf("query:     %s\naction:    %s\nknowledge: %s\n", query, action, knowledge)
	return nil
}
