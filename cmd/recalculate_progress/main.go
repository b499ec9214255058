package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/app"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/services"
)

func main() {
	var dryRun bool
	var concurrency int
	var limit int
	var course string
	flag.BoolVar(&dryRun, "dry-run", false, "report changes without writing them")
	flag.IntVar(&concurrency, "concurrency", 4, "number of enrollments recomputed in parallel")
	flag.IntVar(&limit, "limit", 0, "limit number of enrollments processed")
	flag.StringVar(&course, "course", "", "only recompute enrollments of this course_id")
	flag.Parse()

	opts := services.RecalculateOptions{
		DryRun:      dryRun,
		Concurrency: concurrency,
		Limit:       limit,
		OnStart: func(total int) {
			fmt.Printf("Recalculating progress for %d enrollments...\n", total)
		},
		OnResult: func(index, total int, res domainagg.RecalculateResult) {
			if res.Skipped || !res.Changed() {
				return
			}
			fmt.Printf("[%d/%d] enrollment %s (student %s, course %s): %s%% -> %s%%\n",
				index, total, res.EnrollmentID, res.StudentID, res.CourseID,
				learning.FormatPercent(res.OldPercent), learning.FormatPercent(res.NewPercent))
		},
	}
	if raw := strings.TrimSpace(course); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			fmt.Printf("invalid -course %q\n", raw)
			os.Exit(2)
		}
		opts.CourseID = &id
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	summary, err := application.Services.Progress.RecalculateAll(context.Background(), opts)
	if err != nil {
		fmt.Printf("recalculate: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	suffix := ""
	if dryRun {
		suffix = " (dry run, nothing written)"
	}
	fmt.Printf("Done! Processed %d enrollments: %d changed, %d skipped, %d failed%s.\n",
		summary.Total, summary.Changed, summary.Skipped, summary.Failed, suffix)
	if summary.Failed > 0 {
		application.Close()
		os.Exit(1)
	}
}
