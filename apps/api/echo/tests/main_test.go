package tests

import (
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/mazoezi/apps/api/echo"
	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
	emailsvc "github.com/trezcool/mazoezi/services/email"
	inmemcache "github.com/trezcool/mazoezi/storage/cache/inmem"
	inmemdb "github.com/trezcool/mazoezi/storage/database/inmem"
	"github.com/trezcool/mazoezi/tests"
)

var (
	conf        *core.Config
	db          *inmemdb.DB
	app         Server
	loader      *exercise.PageLoaderMock
	pageCache   *inmemcache.Store
	exerciseSvc *exercise.Service
)

func TestMain(m *testing.M) {
	conf = core.NewTestConfig()

	// set up DB & repos
	db = testutil.OpenDB()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	loader = &exercise.PageLoaderMock{}
	pageCache = inmemcache.NewStore()
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db))
	exerciseSvc = exercise.NewService(
		conf,
		core.NewNopLogger(),
		courseSvc,
		inmemdb.NewExerciseRepository(db),
		inmemdb.NewSubmissionRepository(db),
		inmemdb.NewDeviationRepository(db),
		loader,
		&exercise.RequestSignerMock{},
		pageCache,
		mailSvc,
	)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	app = NewServer(
		ServerDeps{
			Conf:        conf,
			Logger:      core.NewNopLogger(),
			CourseSvc:   courseSvc,
			ExerciseSvc: exerciseSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
