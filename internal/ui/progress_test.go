package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paramgen/internal/buildpipeline"
)

func TestApplyEventTracksFileStatus(t *testing.T) {
	m := NewProgressModel("build", []string{"a.c", "b.h"}, nil).(*progressModel)

	m.applyEvent(buildpipeline.Event{File: "a.c", Stage: buildpipeline.StageExpand, Status: buildpipeline.StatusWorking})
	require.Equal(t, "expanding", m.items[0].status)
	assert.InDelta(t, 0.2, m.percent(), 1e-9)

	m.applyEvent(buildpipeline.Event{File: "a.c", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone})
	m.applyEvent(buildpipeline.Event{File: "b.h", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusSkipped})
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, "kept", m.items[1].status)
	assert.InDelta(t, 1.0, m.percent(), 1e-9)
}

func TestApplyEventIgnoresUnknownFiles(t *testing.T) {
	m := NewProgressModel("build", []string{"a.c"}, nil).(*progressModel)
	cmd := m.applyEvent(buildpipeline.Event{File: "zzz.c", Stage: buildpipeline.StageEmit, Status: buildpipeline.StatusWorking})
	assert.Nil(t, cmd)
	assert.Equal(t, "queued", m.items[0].status)
}

func TestApplyEventProjectStage(t *testing.T) {
	m := NewProgressModel("build", []string{"a.c"}, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StagePrepare, Status: buildpipeline.StatusWorking})
	assert.Equal(t, "preparing", m.stageLabel)
	assert.Contains(t, m.View(), "build (preparing)")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.c", 20, "short.c"},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.width), "truncate(%q, %d)", tt.in, tt.width)
	}

	long := truncate("subsystem/source/params.c", 12)
	assert.True(t, strings.HasSuffix(long, "..."), long)
	assert.LessOrEqual(t, runewidth.StringWidth(long), 12)
}
