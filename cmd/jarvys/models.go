package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yannabadie/appia-dev/internal/router"
)

var modelsTaskType string

var modelsCmd = &cobra.Command{
	Use:   "models [prompt]",
	Short: "Show how the router would score models for a prompt",
	Long: `Analyze a prompt and print every catalogued model with its routing
score, highest first. Without a prompt the raw capability catalogue is
printed instead.

Examples:
  jarvys models "implement a rate limiter in Go"
  jarvys models --task-type creative "name this feature"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&modelsTaskType, "task-type", string(router.TaskAuto), "task type hint (auto, coding, reasoning, creative, fast, multimodal, mathematical)")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fail(err)
	}

	catalogue, err := router.NewCatalogue(cfg.Router.CataloguePath)
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 0 {
		fmt.Fprintln(w, "MODEL\tPROVIDER\tREASONING\tCREATIVITY\tSPEED\tCONTEXT\tCOST/1K")
		for _, p := range catalogue.Profiles() {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%d\t$%.4f\n",
				p.Identifier, p.Provider, p.ReasoningScore, p.CreativityScore, p.SpeedScore, p.MaxContextTokens, p.CostPerKiloTokens)
		}
		return nil
	}

	analysis := router.Analyze(args[0], router.TaskType(modelsTaskType))
	fmt.Printf("task_type=%s complexity=%.2f estimated_tokens=%d multimodal=%v\n\n",
		analysis.TaskType, analysis.Complexity, analysis.EstimatedTokens, analysis.MultimodalNeeded)

	scorer := router.NewScorer(router.NewHistory(1))
	type scored struct {
		profile router.ModelProfile
		score   float64
	}
	var rows []scored
	for _, p := range catalogue.Profiles() {
		rows = append(rows, scored{p, scorer.Score(p, analysis)})
	}
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if rows[j].score > rows[i].score {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}

	fmt.Fprintln(w, "MODEL\tPROVIDER\tSCORE")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%.4f\n", row.profile.Identifier, row.profile.Provider, row.score)
	}
	return nil
}
