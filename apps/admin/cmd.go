package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mazoezi/core/exercise"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db          *sqlx.DB
	exerciseSvc *exercise.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - apply DB migrations (goose command set)")
	fmt.Println("  invalidate -exercise ID - drop an exercise's cached content")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	invalidateCmd := flag.NewFlagSet("invalidate", flag.ExitOnError)
	invalidateExerciseID := invalidateCmd.Int("exercise", 0, "The exercise whose cached content must be dropped, in every language.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "invalidate":
		if err := invalidateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *invalidateExerciseID <= 0 {
			invalidateCmd.Usage()
			return errHelp
		}
		return cli.invalidatePage(*invalidateExerciseID)
	default:
		cli.printUsage()
		return errHelp
	}
}
