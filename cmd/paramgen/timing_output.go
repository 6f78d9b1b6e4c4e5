package main

import (
	"fmt"
	"io"
	"time"

	"paramgen/internal/buildpipeline"
)

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	if timings.Has(buildpipeline.StagePrepare) {
		fmt.Fprintf(out, "prepared %.1f ms\n", toMillis(timings.Duration(buildpipeline.StagePrepare)))
	}
	if timings.Has(buildpipeline.StageGenerate) {
		fmt.Fprintf(out, "generated %.1f ms\n", toMillis(timings.Duration(buildpipeline.StageGenerate)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
