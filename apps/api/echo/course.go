package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

type courseApi struct {
	svc         *course.Service
	exerciseSvc *exercise.Service
}

func registerCourseAPI(g *echo.Group, deps ServerDeps) {
	api := courseApi{
		svc:         deps.CourseSvc,
		exerciseSvc: deps.ExerciseSvc,
	}

	cg := g.Group("/courses/:course/:instance")
	cg.GET("", api.retrieve)
	cg.GET("/exercises/*", api.retrieveExercise)
}

// Handlers

func (api *courseApi) retrieve(ctx echo.Context) error {
	ci, err := api.svc.GetInstanceByURL(ctx.Request().Context(), ctx.Param("course"), ctx.Param("instance"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ci)
}

// retrieveExercise resolves an exercise by its hierarchical URL path within
// the course instance, e.g. /exercises/chapter1/questionnaire2.
func (api *courseApi) retrieveExercise(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	ci, err := api.svc.GetInstanceByURL(reqCtx, ctx.Param("course"), ctx.Param("instance"))
	if err != nil {
		return err
	}
	ex, err := api.exerciseSvc.GetExerciseByPath(reqCtx, ci.ID, ctx.Param("*"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ex)
}
