package main

import (
	"log"
	"os"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/cache"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
	emailsvc "github.com/trezcool/mazoezi/services/email"
	gradersvc "github.com/trezcool/mazoezi/services/grader"
	logsvc "github.com/trezcool/mazoezi/services/logger"
	ltisvc "github.com/trezcool/mazoezi/services/lti"
	inmemcache "github.com/trezcool/mazoezi/storage/cache/inmem"
	"github.com/trezcool/mazoezi/storage/cache/memcached"
	"github.com/trezcool/mazoezi/storage/database"
	sqlxrepos "github.com/trezcool/mazoezi/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.OpenX(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	var store cache.Store
	if conf.Cache.Backend == "memcached" {
		store = memcached.NewStore(conf)
	} else {
		store = inmemcache.NewStore()
	}

	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	exerciseSvc := exercise.NewService(
		conf,
		appLogger,
		courseSvc,
		sqlxrepos.NewExerciseRepository(db),
		sqlxrepos.NewSubmissionRepository(db),
		sqlxrepos.NewDeviationRepository(db),
		gradersvc.NewClient(conf, appLogger),
		ltisvc.NewSigner(conf),
		store,
		emailsvc.NewConsoleService(conf),
	)

	// start CLI
	cli := commandLine{
		db:          db,
		exerciseSvc: exerciseSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
