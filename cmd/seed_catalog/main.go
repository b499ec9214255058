package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lumenlms/lms-backend/internal/app"
	"github.com/lumenlms/lms-backend/internal/data/catalog"
)

func main() {
	var file string
	var validateOnly bool
	flag.StringVar(&file, "file", "seeds/catalog.yaml", "path to the catalog seed file")
	flag.BoolVar(&validateOnly, "validate", false, "parse and validate the file without touching the database")
	flag.Parse()

	seed, err := catalog.LoadSeedFile(file)
	if err != nil {
		fmt.Printf("load seed %s: %v\n", file, err)
		os.Exit(1)
	}
	if validateOnly {
		fmt.Printf("%s: %d categories, %d courses OK\n", file, len(seed.Categories), len(seed.Courses))
		return
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	stats, err := catalog.NewSeeder(application.DB, application.Log).Apply(context.Background(), seed)
	if err != nil {
		fmt.Printf("seed catalog: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	fmt.Printf("Seeded catalog: %d categories, courses %d new / %d updated, modules %d new / %d updated / %d retired, lessons %d new / %d updated / %d retired\n",
		stats.Categories,
		stats.CoursesCreated, stats.CoursesUpdated,
		stats.ModulesCreated, stats.ModulesUpdated, stats.ModulesRetired,
		stats.LessonsCreated, stats.LessonsUpdated, stats.LessonsRetired,
	)
}
