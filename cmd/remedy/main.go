package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nogap/remedy/pkg/config"
	"github.com/nogap/remedy/pkg/document"
	"github.com/nogap/remedy/pkg/goal"
	"github.com/nogap/remedy/pkg/input"
	"github.com/nogap/remedy/pkg/planfile"
	"github.com/nogap/remedy/pkg/planner"
	"github.com/nogap/remedy/pkg/provider"
	"github.com/nogap/remedy/pkg/provider/claude"
	"github.com/nogap/remedy/pkg/provider/openai"
	"github.com/nogap/remedy/pkg/store"
	"github.com/nogap/remedy/pkg/ux"
)

var (
	snapshotPath string
	workspace    string
	outputPath   string

	goalKind        string
	goalDescription string
	threshold       float64
	severities      string
	categories      string
	maxRisk         float64

	providerName string
	model        string
	useAI        bool
	maxSteps     int

	removeReason   string
	acknowledgeMod bool
	historyLimit   int

	outcomeSuccess  bool
	outcomeError    string
	outcomeDuration int64
)

func main() {
	cfg := config.LoadOrDefault()

	rootCmd := &cobra.Command{
		Use:   "remedy",
		Short: "Remediation planning for compliance audit findings",
		Long: `remedy turns audit findings into an ordered remediation plan.

Plans are advisory: every plan requires explicit human approval, and remedy
itself never changes system state.`,
	}

	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", cfg.Paths.Snapshot, "Path to the planner input snapshot (file or directory)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", cfg.Paths.Workspace, "Workspace directory holding the local store")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a remediation plan from the latest audit snapshot",
		RunE:  func(cmd *cobra.Command, args []string) error { return runGenerate(cfg) },
	}
	generateCmd.Flags().StringVar(&goalKind, "goal", string(goal.KindRiskMinimization),
		fmt.Sprintf("Planning goal: %s", strings.Join(goal.ValidKinds(), ", ")))
	generateCmd.Flags().StringVar(&goalDescription, "description", "", "Custom goal description")
	generateCmd.Flags().Float64Var(&threshold, "threshold", 0.9, "Target compliance rate for compliance_threshold goals")
	generateCmd.Flags().StringVar(&severities, "severities", "", "Comma-separated severities to focus on")
	generateCmd.Flags().StringVar(&categories, "categories", "", "Comma-separated categories to focus on")
	generateCmd.Flags().Float64Var(&maxRisk, "max-risk", 1.0, "Risk ceiling for risk_minimization goals")
	generateCmd.Flags().StringVar(&providerName, "provider", cfg.Provider.Name, "AI provider: claude, openai")
	generateCmd.Flags().StringVar(&model, "model", cfg.Provider.Model, "AI model to use (provider-specific)")
	generateCmd.Flags().BoolVar(&useAI, "ai", cfg.Provider.Enabled, "Enable AI-assisted step ordering")
	generateCmd.Flags().IntVar(&maxSteps, "max-steps", cfg.Planning.MaxSteps, "Maximum steps per plan")
	generateCmd.Flags().StringVar(&outputPath, "output", cfg.Paths.Output, "Directory the plan is written to")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current plan",
		RunE:  func(cmd *cobra.Command, args []string) error { return runShow() },
	}

	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the current plan",
		RunE:  func(cmd *cobra.Command, args []string) error { return runApprove(cfg) },
	}
	approveCmd.Flags().BoolVar(&acknowledgeMod, "acknowledge-modifications", false,
		"Acknowledge user modifications when approving a modified plan")

	removeCmd := &cobra.Command{
		Use:   "remove <policy-id>",
		Short: "Remove a step from the current plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cfg, func(m *document.Manager) (*planfile.Plan, error) {
				return m.Remove(args[0], removeReason)
			})
		},
	}
	removeCmd.Flags().StringVar(&removeReason, "reason", "", "Reason for removing the step")

	restoreCmd := &cobra.Command{
		Use:   "restore <policy-id>",
		Short: "Restore a previously removed step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cfg, func(m *document.Manager) (*planfile.Plan, error) {
				return m.Restore(args[0])
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <policy-id>",
		Short: "Add a failing policy to the current plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cfg, func(m *document.Manager) (*planfile.Plan, error) {
				return m.Add(args[0])
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the current plan",
		RunE:  func(cmd *cobra.Command, args []string) error { return runClear() },
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated plans",
		RunE:  func(cmd *cobra.Command, args []string) error { return runHistory() },
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum plans to list")

	recordCmd := &cobra.Command{
		Use:   "record <policy-id>",
		Short: "Record the outcome of a remediation attempt performed elsewhere",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runRecord(args[0]) },
	}
	recordCmd.Flags().BoolVar(&outcomeSuccess, "success", false, "Whether the attempt succeeded")
	recordCmd.Flags().StringVar(&outcomeError, "error", "", "Error message for a failed attempt")
	recordCmd.Flags().Int64Var(&outcomeDuration, "duration-ms", 0, "Attempt duration in milliseconds")

	rootCmd.AddCommand(generateCmd, showCmd, approveCmd, removeCmd, restoreCmd, addCmd, clearCmd, historyCmd, recordCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cfg *config.Config) error {
	in, err := input.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	ux.PrintSuccess("Loaded snapshot: %d policies, %d candidates, compliance %.0f%%",
		len(in.Policies), len(in.Recommendations.Candidates), in.ComplianceRate()*100)

	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	// Execution history recorded locally supplements whatever the snapshot
	// already carries
	history, err := db.History(context.Background())
	if err != nil {
		return err
	}
	in.ExecutionHistory = append(in.ExecutionHistory, history...)

	g, err := buildGoal()
	if err != nil {
		return err
	}

	plannerCfg := planner.Config{
		UseAIOrdering:      useAI,
		AITimeout:          time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
		MaxSteps:           maxSteps,
		MinConfidenceFloor: cfg.Planning.MinConfidenceFloor,
		FailureThreshold:   cfg.Planning.FailureThreshold,
		OutputPath:         outputPath,
	}
	if useAI {
		prov, err := createProvider(cfg)
		if err != nil {
			return fmt.Errorf("failed to create provider: %w", err)
		}
		plannerCfg.Provider = prov
		ux.PrintInfo("AI ordering enabled via %s (%s)", prov.Name(), prov.Model())
	}

	var spinner *ux.Spinner
	if useAI && ux.IsTerminal() {
		spinner = ux.NewSpinner("Generating plan...")
		spinner.Start()
	} else if ux.IsTerminal() {
		plannerCfg.Progress = ux.ProgressFunc("Evaluating candidates")
	}

	result, err := planner.New(plannerCfg).Generate(context.Background(), in, g)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if err := db.SavePlan(context.Background(), result.Plan); err != nil {
		return err
	}

	ux.PrintSuccess("Plan generated: %d steps, %d deferred", result.TotalSteps, result.TotalDeferred)
	if result.PlanPath != "" {
		ux.PrintInfo("Saved to %s", result.PlanPath)
	}
	if result.TokensUsed > 0 {
		ux.PrintInfo("Tokens: %s  Cost: %s", ux.FormatTokens(result.TokensUsed), ux.FormatCost(result.AICost))
	}
	fmt.Println()
	ux.RenderPlan(os.Stdout, result.Plan)
	return nil
}

func runShow() error {
	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	plan, err := db.LatestPlan(context.Background())
	if err == store.ErrNotFound {
		ux.PrintInfo("No plan generated yet. Run 'remedy generate' first.")
		return nil
	}
	if err != nil {
		return err
	}

	ux.RenderPlan(os.Stdout, plan)
	return nil
}

func runApprove(cfg *config.Config) error {
	return withManager(cfg, func(m *document.Manager, plan *planfile.Plan) (*planfile.Plan, error) {
		return m.Approve(plan.PlanID, acknowledgeMod)
	})
}

func runMutation(cfg *config.Config, mutate func(*document.Manager) (*planfile.Plan, error)) error {
	return withManager(cfg, func(m *document.Manager, _ *planfile.Plan) (*planfile.Plan, error) {
		return mutate(m)
	})
}

// withManager loads the latest plan and snapshot into a document manager,
// applies one mutation, and persists the result.
func withManager(cfg *config.Config, op func(*document.Manager, *planfile.Plan) (*planfile.Plan, error)) error {
	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	plan, err := db.LatestPlan(context.Background())
	if err == store.ErrNotFound {
		return fmt.Errorf("no plan to modify; run 'remedy generate' first")
	}
	if err != nil {
		return err
	}

	in, err := input.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}

	manager := document.NewManager(cfg.Planning.FailureThreshold)
	if err := manager.SetPlan(plan, in); err != nil {
		return err
	}

	updated, err := op(manager, plan)
	if err != nil {
		ux.PrintError("%v", err)
		return err
	}

	if err := db.SavePlan(context.Background(), updated); err != nil {
		return err
	}

	ux.RenderPlan(os.Stdout, updated)
	return nil
}

func runClear() error {
	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	plan, err := db.LatestPlan(context.Background())
	if err == store.ErrNotFound {
		ux.PrintInfo("No plan to clear.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := db.DeletePlan(context.Background(), plan.PlanID); err != nil {
		return err
	}

	ux.PrintSuccess("Plan %s cleared", plan.PlanID)
	return nil
}

func runHistory() error {
	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	summaries, err := db.PlanHistory(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		ux.PrintInfo("No plans recorded yet.")
		return nil
	}

	ux.RenderPlanHistory(os.Stdout, summaries)
	return nil
}

func runRecord(policyID string) error {
	db, err := store.Open(workspace)
	if err != nil {
		return err
	}
	defer db.Close()

	outcome := input.ExecutionOutcome{
		PolicyID:     policyID,
		Timestamp:    time.Now(),
		Success:      outcomeSuccess,
		ErrorMessage: outcomeError,
		DurationMS:   outcomeDuration,
	}
	if err := db.RecordOutcome(context.Background(), outcome); err != nil {
		return err
	}

	if outcomeSuccess {
		ux.PrintSuccess("Recorded successful attempt for %s", policyID)
	} else {
		ux.PrintWarning("Recorded failed attempt for %s", policyID)
	}
	return nil
}

func buildGoal() (goal.Goal, error) {
	var sevFilter []string
	if severities != "" {
		sevFilter = strings.Split(severities, ",")
	}
	var catFilter []string
	if categories != "" {
		catFilter = strings.Split(categories, ",")
	}

	switch goal.Kind(goalKind) {
	case goal.KindComplianceThreshold:
		return goal.ComplianceThreshold(threshold, sevFilter), nil
	case goal.KindSeverityFocus:
		if len(sevFilter) == 0 {
			return goal.Goal{}, fmt.Errorf("severity_focus goal requires --severities")
		}
		return goal.SeverityFocus(sevFilter), nil
	case goal.KindCategoryFocus:
		if len(catFilter) == 0 {
			return goal.Goal{}, fmt.Errorf("category_focus goal requires --categories")
		}
		return goal.CategoryFocus(catFilter), nil
	case goal.KindRiskMinimization:
		return goal.MinimizeRisk(maxRisk), nil
	case goal.KindCustom:
		if goalDescription == "" {
			return goal.Goal{}, fmt.Errorf("custom goal requires --description")
		}
		return goal.Custom(goalDescription, nil), nil
	default:
		return goal.Goal{}, fmt.Errorf("unknown goal kind %q (valid: %s)", goalKind, strings.Join(goal.ValidKinds(), ", "))
	}
}

func createProvider(cfg *config.Config) (provider.Provider, error) {
	providerCfg := provider.Config{
		Name:        providerName,
		Model:       model,
		Temperature: cfg.Provider.Temperature,
		BaseURL:     cfg.Provider.BaseURL,
	}

	switch providerName {
	case "claude":
		return claude.New(providerCfg)
	case "openai":
		return openai.New(providerCfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
