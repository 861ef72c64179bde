package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
	emailsvc "github.com/trezcool/mazoezi/services/email"
	inmemcache "github.com/trezcool/mazoezi/storage/cache/inmem"
	inmemdb "github.com/trezcool/mazoezi/storage/database/inmem"
	"github.com/trezcool/mazoezi/tests"
)

func setup(t *testing.T) (*commandLine, *inmemdb.DB) {
	conf := core.NewTestConfig()
	db := testutil.OpenDB()

	// set up services
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db))
	exerciseSvc := exercise.NewService(
		conf,
		core.NewNopLogger(),
		courseSvc,
		inmemdb.NewExerciseRepository(db),
		inmemdb.NewSubmissionRepository(db),
		inmemdb.NewDeviationRepository(db),
		&exercise.PageLoaderMock{},
		&exercise.RequestSignerMock{},
		inmemcache.NewStore(),
		emailsvc.NewConsoleServiceMock(conf),
	)

	// start CLI
	return &commandLine{
		db:          &sqlx.DB{},
		exerciseSvc: exerciseSvc,
	}, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "exercise", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_invalidatePage(t *testing.T) {
	cli, db := setup(t)

	now := time.Now()
	ci := testutil.CreateInstance(t, db, "test-course", "test-instance", now.Add(-time.Hour), now.Add(time.Hour))
	mod := testutil.NewModule(&ci, "module1", now.Add(-time.Hour), now.Add(time.Hour))
	ex := testutil.CreateExercise(t, db, mod, exercise.KindService, "ex1")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"invalidate"}, wantErr: errHelp},
		{name: "exercise not found", args: []string{"invalidate", "-exercise", "404"}, wantErr: exercise.ErrExerciseNotFound},
		{name: "drops cached content", args: []string{"invalidate", "-exercise", strconv.Itoa(ex.ID)}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
