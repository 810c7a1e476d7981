package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain/cascade"
	"github.com/kailas-cloud/jewelmatch/internal/logger"
	matchuc "github.com/kailas-cloud/jewelmatch/internal/usecase/match"
)

var (
	matchImageURL string
	matchCaption  string
	matchTimeout  time.Duration
	matchVerbose  bool
	matchRefresh  bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run the pipeline once and print the matches",
	Example: `  jewelmatch match --image-url https://example.com/pendant.jpg
  jewelmatch match --caption "A silver heart-shaped pendant with a central diamond"`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchImageURL, "image-url", "i", "", "image to caption and match")
	matchCmd.Flags().StringVarP(&matchCaption, "caption", "c", "", "skip captioning and match this caption")
	matchCmd.Flags().DurationVar(&matchTimeout, "timeout", 3*time.Minute, "overall pipeline timeout")
	matchCmd.Flags().BoolVarP(&matchVerbose, "verbose", "v", false, "print every cascade pass")
	matchCmd.Flags().BoolVar(&matchRefresh, "refresh-caption", false, "drop the cached caption before running")
	matchCmd.MarkFlagsOneRequired("image-url", "caption")
	matchCmd.MarkFlagsMutuallyExclusive("image-url", "caption")
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), matchTimeout)
	defer cancel()

	a, err := newApp(ctx, envName)
	if err != nil {
		return err
	}
	defer a.Close()

	runID := uuid.NewString()
	ctx = logger.ContextWithLogger(ctx, a.logger.With(zap.String("run_id", runID)))

	if matchRefresh && a.cache != nil && matchImageURL != "" {
		if err := a.cache.Forget(ctx, matchImageURL); err != nil {
			a.logger.Warn("Failed to drop cached caption", zap.Error(err))
		}
	}

	var out matchuc.Outcome
	if matchCaption != "" {
		out, err = a.match.FindForCaption(ctx, matchCaption)
	} else {
		out, err = a.match.Find(ctx, matchImageURL)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	printOutcome(cmd.OutOrStdout(), runID, out, matchVerbose)
	return nil
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
)

func printOutcome(w io.Writer, runID string, out matchuc.Outcome, verbose bool) {
	headerColor.Fprintf(w, "Run %s\n", runID)
	labelColor.Fprint(w, "Caption: ")
	fmt.Fprintln(w, out.Caption)
	labelColor.Fprint(w, "Query:   ")
	fmt.Fprintln(w, out.Query.String())

	if verbose {
		for _, p := range out.Passes {
			printPass(w, p)
		}
	}

	res := out.Result
	labelColor.Fprint(w, "Source:  ")
	if res.SourcePass == cascade.LabelNone {
		warnColor.Fprintln(w, res.SourcePass)
	} else {
		okColor.Fprintf(w, "%s (%d found by primary source)\n", res.SourcePass, res.TotalFoundByPrimarySource)
	}

	if res.TotalFound == 0 {
		warnColor.Fprintln(w, "No matches.")
		return
	}
	headerColor.Fprintf(w, "%d matches\n", res.TotalFound)
	for i, item := range res.Data {
		fmt.Fprintf(w, "%3d. %s ", i+1, item.Title())
		labelColor.Fprintf(w, "[%s]\n", item.ID())
	}
}

func printPass(w io.Writer, p cascade.Pass) {
	c := okColor
	if p.Outcome != cascade.Adopted {
		c = warnColor
	}
	labelColor.Fprintf(w, "  %-13s ", p.Stage)
	c.Fprintf(w, "%-8s", p.Outcome)
	if p.Term != "" {
		fmt.Fprintf(w, " %q via %s", p.Term, p.Source)
	}
	fmt.Fprintf(w, " -> %d items\n", len(p.Items))
}
