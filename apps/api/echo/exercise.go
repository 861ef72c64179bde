package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

var errExNotFoundInCtx = errors.New("exercise object not found in echo.Context")

type exerciseApi struct {
	conf      *core.Config
	svc       *exercise.Service
	courseSvc *course.Service
	validate  *validator.Validate
}

func registerExerciseAPI(g *echo.Group, deps ServerDeps) {
	api := exerciseApi{
		conf:      deps.Conf,
		svc:       deps.ExerciseSvc,
		courseSvc: deps.CourseSvc,
		validate:  deps.Validate,
	}

	eg := g.Group("/exercises")
	eg.POST("", api.create)

	// detail endpoints
	dg := eg.Group("/:id", ctxExerciseMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/timing", api.timing)
	dg.GET("/page", api.page)
	dg.POST("/page/invalidate", api.invalidatePage)
	dg.POST("/submittable", api.submittable)
	dg.POST("/grade", api.gradeCallback)

	sg := g.Group("/submissions/:id")
	sg.GET("", api.retrieveSubmission)
	sg.POST("/grade", api.feedbackCallback)
}

// Handlers

func (api *exerciseApi) create(ctx echo.Context) error {
	var data exercise.Exercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Exercise")
	}
	data.ID = 0

	if err := api.svc.SaveExercise(ctx.Request().Context(), &data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, data)
}

func (api *exerciseApi) retrieve(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *exerciseApi) update(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}

	data := *ex
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Exercise")
	}
	data.ID = ex.ID

	if err = api.svc.SaveExercise(ctx.Request().Context(), &data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *exerciseApi) destroy(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteExercise(ctx.Request().Context(), ex); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *exerciseApi) timing(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}

	var students []course.Student
	if sid := ctx.QueryParam("student_id"); sid != "" {
		students = append(students, course.Student{ID: sid})
	}

	timing, err := api.svc.GetTiming(ctx.Request().Context(), ex, students, time.Now())
	if err != nil {
		return errors.Wrap(err, "resolving timing")
	}
	return ctx.JSON(http.StatusOK, TimingResponse{State: timing.State.String(), Deadline: timing.Deadline})
}

func (api *exerciseApi) page(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	req := exercise.PageRequest{Language: ctx.QueryParam("lang")}
	if req.Language == "" && len(api.conf.Languages) > 0 {
		req.Language = api.conf.Languages[0]
	}
	if sid := ctx.QueryParam("student_id"); sid != "" {
		req.User = course.Student{ID: sid}
		// enrich identity from the enrollment when there is one
		enr, eErr := api.courseSvc.GetEnrollmentFor(reqCtx, *ex.CourseInstance(), req.User)
		if eErr == nil {
			req.User = enr.Student
		} else if errors.Cause(eErr) != course.ErrEnrollmentNotFound {
			return eErr
		}
		req.Students = []course.Student{req.User}
	}

	page, err := api.svc.LoadPage(reqCtx, ex, req)
	if err != nil {
		return errors.Wrap(err, "loading exercise page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *exerciseApi) invalidatePage(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}
	api.svc.InvalidatePage(ctx.Request().Context(), ex)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *exerciseApi) submittable(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}

	var data SubmittableRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmittableRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	requester := course.Student{ID: data.StudentID, Name: data.Name, Email: data.Email, External: data.External}
	verdict, err := api.svc.IsSubmissionAllowed(ctx.Request().Context(), ex, requester, data.GroupID)
	if err != nil {
		return errors.Wrap(err, "checking submission eligibility")
	}
	return ctx.JSON(http.StatusOK, verdict)
}

// gradeCallback authenticates an exercise service reporting results for an
// exercise; the grading pipeline polls accepted reports from here.
func (api *exerciseApi) gradeCallback(ctx echo.Context) error {
	ex, err := ctxExercise(ctx)
	if err != nil {
		return err
	}

	claims, err := api.svc.ParseGraderToken(ctx.QueryParam("token"))
	if err != nil {
		return err
	}
	if claims.ExerciseID != ex.ID {
		return exercise.ErrTokenInvalid
	}
	return ctx.JSON(http.StatusAccepted, GradeCallbackResponse{ExerciseID: claims.ExerciseID, StudentID: claims.StudentID})
}

func (api *exerciseApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

// feedbackCallback authenticates an exercise service reporting graded
// feedback for a single submission.
func (api *exerciseApi) feedbackCallback(ctx echo.Context) error {
	claims, err := api.svc.ParseGraderToken(ctx.QueryParam("token"))
	if err != nil {
		return err
	}
	if claims.SubmissionID != ctx.Param("id") {
		return exercise.ErrTokenInvalid
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), claims.SubmissionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, GradeCallbackResponse{ExerciseID: sub.ExerciseID, SubmissionID: sub.ID})
}

// ctxExerciseMiddleware loads the exercise addressed by the id param into
// echo.Context for the detail handlers.
func ctxExerciseMiddleware(svc *exercise.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if id, err := strconv.Atoi(ctx.Param("id")); err == nil {
				ex, err := svc.GetExercise(ctx.Request().Context(), id)
				if err == nil {
					ctx.Set("object", &ex)
					return next(ctx)
				} else if errors.Cause(err) != exercise.ErrExerciseNotFound {
					return err
				}
			}
			return errHttpNotFound
		}
	}
}

func ctxExercise(ctx echo.Context) (*exercise.Exercise, error) {
	ex, ok := ctx.Get("object").(*exercise.Exercise)
	if !ok {
		return nil, errExNotFoundInCtx
	}
	return ex, nil
}

type (
	SubmittableRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		Name      string `json:"name"`
		Email     string `json:"email" validate:"omitempty,email"`
		External  bool   `json:"external"`
		// GroupID carries the posted group selection: nil defers to the
		// group selected at enrollment, zero or negative forces a solo
		// attempt.
		GroupID *int `json:"group_id"`
	}

	TimingResponse struct {
		State    string    `json:"state"`
		Deadline time.Time `json:"deadline"`
	}

	GradeCallbackResponse struct {
		ExerciseID   int    `json:"exercise_id"`
		StudentID    string `json:"student_id,omitempty"`
		SubmissionID string `json:"submission_id,omitempty"`
	}
)

func (sr *SubmittableRequest) Validate(validate *validator.Validate) error {
	sr.StudentID = core.CleanString(sr.StudentID)
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}
