package main

import (
	"context"
)

// invalidatePage drops the exercise's cached content so the next page view
// refetches it from the exercise service.
func (cli *commandLine) invalidatePage(exerciseID int) error {
	ctx := context.Background()
	ex, err := cli.exerciseSvc.GetExercise(ctx, exerciseID)
	if err != nil {
		return err
	}
	cli.exerciseSvc.InvalidatePage(ctx, &ex)
	return nil
}
