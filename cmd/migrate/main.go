package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"

	"pololo/config"
	"pololo/internal/pkg/database"
)

func main() {
	cfg := config.LoadConfig()

	var (
		migrationsDir string
		verbose       bool
	)
	flag.StringVar(&migrationsDir, "dir", "./sql", "directory with migration files")
	flag.BoolVar(&verbose, "v", false, "log each applied migration")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("goose: failed to connect to DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: failed to close DB: %v\n", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: %v", err)
	}
	if !verbose {
		goose.SetLogger(goose.NopLogger())
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	var args []string
	if len(arguments) > 1 {
		args = arguments[1:]
	}

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
