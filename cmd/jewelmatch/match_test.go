package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/jewelmatch/internal/domain/cascade"
	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
	matchuc "github.com/kailas-cloud/jewelmatch/internal/usecase/match"
)

func init() {
	color.NoColor = true
}

func TestPrintOutcome(t *testing.T) {
	q, err := jewelry.NewQuery("Pendants", "", "heart", []string{"heart"}, "Sterling Silver")
	require.NoError(t, err)

	items := []catalog.Item{
		catalog.NewItem("2", "Silver Heart Diamond Pendant", ""),
		catalog.NewItem("4", "Silver Heart Pendant", ""),
	}
	out := matchuc.Outcome{
		Caption: "A silver heart pendant",
		Query:   q,
		Passes: []cascade.Pass{
			{Stage: cascade.Pass1Broad, Outcome: cascade.Adopted, Items: items},
			{Stage: cascade.Pass2Tighten, Term: "heart", Source: "design", Outcome: cascade.Adopted, Items: items},
		},
		Result: cascade.Result{
			Data:                      items,
			TotalFound:                2,
			SourcePass:                cascade.LabelSecond,
			TotalFoundByPrimarySource: 2,
		},
	}

	var buf bytes.Buffer
	printOutcome(&buf, "run-1", out, true)
	got := buf.String()

	assert.Contains(t, got, "Run run-1")
	assert.Contains(t, got, "Caption: A silver heart pendant")
	assert.Contains(t, got, `"heart" via design`)
	assert.Contains(t, got, "Second Pass (2 found by primary source)")
	assert.Contains(t, got, "  1. Silver Heart Diamond Pendant [2]")
	assert.Contains(t, got, "  2. Silver Heart Pendant [4]")
}

func TestPrintOutcome_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, "run-2", matchuc.Outcome{
		Caption: "A ring",
		Result:  cascade.Result{SourcePass: cascade.LabelNone},
	}, false)

	assert.Contains(t, buf.String(), "Source:  None")
	assert.Contains(t, buf.String(), "No matches.")
	assert.NotContains(t, buf.String(), "via")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "jewelmatch dev")
}

func TestMatchCommand_RequiresInput(t *testing.T) {
	rootCmd.SetArgs([]string{"match"})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetErr(nil) })

	assert.Error(t, rootCmd.Execute())
}
