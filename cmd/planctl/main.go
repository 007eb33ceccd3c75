// Command planctl exercises the planner from a terminal: parse directions,
// check a goal, or generate a full plan from two screenshots.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go-attack-planner/internal/config"
	"go-attack-planner/internal/container"
	"go-attack-planner/internal/direction"
	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/goal"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/marker"
	"go-attack-planner/internal/planner"
	"go-attack-planner/internal/service"
	"go-attack-planner/pkg/models"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "planctl",
		Short:        "Clash of Clans attack planner tools",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.AddCommand(newDirectionsCmd(), newValidateCmd(), newPlanCmd())
	return root
}

func newDirectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directions <text>",
		Short: "Show the attack directions and markers found in a phase description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := direction.Extract(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if dirs.Len() == 0 {
				fmt.Fprintln(out, "no directions found")
				return nil
			}
			for _, m := range marker.Place(dirs) {
				fmt.Fprintf(out, "%-12s top=%g%% left=%g%% rotate=%gdeg\n",
					m.Direction, m.TopPercent, m.LeftPercent, m.RotationDeg)
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <goal>",
		Short: "Run the goal filters without generating a plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			err := goal.Validate(text)
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			if appErr, ok := apperrors.As(err); ok && appErr.Reason == goal.ReasonOffTopic {
				if s, ok := goal.Suggest(text); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "did you mean %q?\n", s)
				}
			}
			return err
		},
	}
}

type planOptions struct {
	army string
	base string
	goal string
}

func newPlanCmd() *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate an attack plan from an army and an enemy base screenshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			c, err := container.NewContainer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			return runPlan(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), c.Plans(), c.Resolver(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.army, "army", "", "army screenshot: file path or image reference")
	cmd.Flags().StringVar(&opts.base, "base", "", "enemy base screenshot: file path or image reference")
	cmd.Flags().StringVar(&opts.goal, "goal", goal.DefaultGoal(), "attack goal")
	_ = cmd.MarkFlagRequired("army")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func runPlan(ctx context.Context, out, progress io.Writer, plans service.PlanService, resolver *service.ImageResolver, opts planOptions) error {
	army, err := loadImage(ctx, resolver, "army", opts.army)
	if err != nil {
		return err
	}
	base, err := loadImage(ctx, resolver, "base", opts.base)
	if err != nil {
		return err
	}

	view, err := plans.Plan(ctx, "cli", models.PlanRequest{
		ArmyImage: army,
		BaseImage: base,
		Goal:      opts.goal,
	}, func(s planner.Stage) {
		fmt.Fprintf(progress, "[%d/%d] %s\n", int(s)+1, planner.StageCount, s.Label())
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// loadImage treats anything with a scheme as a reference and the rest as a path.
func loadImage(ctx context.Context, resolver *service.ImageResolver, name, src string) (imaging.Image, error) {
	if strings.Contains(src, "://") {
		return resolver.Resolve(ctx, name, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return imaging.Image{}, apperrors.NewInputError(fmt.Sprintf("cannot open %s image", name), err)
	}
	defer f.Close()
	return resolver.Decoder().FromReader(name, f)
}
