package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	svc := NewPipelineService(testTables(t), scriptedPneumoniaCouncil(), testPipelineConfig(), nil, testLogger())
	note, err := svc.ProcessEncounter(context.Background(), fullEncounter())
	require.NoError(t, err)

	md := RenderMarkdown(note)

	for _, want := range []string{
		"# Enhanced SOAP Note",
		"Encounter: enc-100",
		"## Alerts",
		"## Subjective",
		"## Objective",
		"## Assessment",
		"## Plan",
		"## Finding Correlation",
		"## Suggested ICD-10 Codes",
		"## Diagnostic Council",
		"## Compliance Flags",
		"Consensus: **Pneumonia**",
	} {
		assert.Contains(t, md, want)
	}
	assert.True(t, strings.HasSuffix(md, "*Decision support only. All content requires physician review and approval.*\n"))
}

func TestRenderMarkdownNoConsensus(t *testing.T) {
	svc := NewPipelineService(testTables(t), &scriptedGenerator{}, testPipelineConfig(), nil, testLogger())
	note, err := svc.ProcessEncounter(context.Background(), fullEncounter())
	require.NoError(t, err)

	md := RenderMarkdown(note)
	assert.Contains(t, md, "Consensus unavailable for this encounter.")
	assert.NotContains(t, md, "Consensus: **")
}
