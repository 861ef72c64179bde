package exercise

import (
	"fmt"
	"time"
)

// TimingState is the submission-window phase of an exercise at a given
// instant.
type TimingState int

const (
	// TimingClosedBefore - submissions are not yet accepted
	TimingClosedBefore TimingState = iota
	// TimingOpen - normal submissions are accepted
	TimingOpen
	// TimingLate - late submissions are accepted
	TimingLate
	// TimingUnofficial - only unofficial submissions are accepted
	TimingUnofficial
	// TimingClosedAfter - submissions are not anymore accepted
	TimingClosedAfter
	// TimingArchived - course is archived and so are exercises
	TimingArchived
)

var timingNames = map[TimingState]string{
	TimingClosedBefore: "closed_before",
	TimingOpen:         "open",
	TimingLate:         "late",
	TimingUnofficial:   "unofficial",
	TimingClosedAfter:  "closed_after",
	TimingArchived:     "archived",
}

func (s TimingState) String() string {
	if name, ok := timingNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TimingState(%d)", int(s))
}

// Timing pairs the submission-window state with the deadline that applies
// in that state.
type Timing struct {
	State    TimingState `json:"state"`
	Deadline time.Time   `json:"deadline"`
}

const deadlineTimeFormat = "Jan 2, 2006 15:04"

// Timing evaluates the submission window at the given instant. dev is the
// resolved deadline deviation for the submitter set, nil when none applies.
// Pure: touches nothing but its inputs.
func (ex *Exercise) Timing(dev *DeadlineDeviation, when time.Time) Timing {
	module := ex.CourseModule
	if !module.IsAfterOpen(when) {
		return Timing{State: TimingClosedBefore, Deadline: module.OpeningTime}
	}

	if module.IsOpen(when) || (ex.Category != nil && ex.Category.ConfirmTheLevel) {
		dl := module.ClosingTime
		if dev != nil && dev.WithoutLatePenalty {
			if ndl := dev.NewDeadline(module); ndl.After(when) && ndl.After(dl) {
				dl = ndl
			}
		}
		return Timing{State: TimingOpen, Deadline: dl}
	}

	instance := module.CourseInstance
	if instance.ArchiveTime.Valid && instance.IsArchived(when) {
		return Timing{State: TimingArchived, Deadline: instance.ArchiveTime.Time}
	}

	if dev != nil {
		if dl := dev.NewDeadline(module); !when.After(dl) {
			if dev.WithoutLatePenalty {
				return Timing{State: TimingOpen, Deadline: dl}
			}
			return Timing{State: TimingLate, Deadline: dl}
		}
	}

	if module.IsLateSubmissionOpen(when) {
		return Timing{State: TimingLate, Deadline: module.LateSubmissionDeadline}
	}

	var dl time.Time
	switch {
	case dev != nil:
		dl = dev.NewDeadline(module)
	case module.LateSubmissionsAllowed:
		dl = module.LateSubmissionDeadline
	default:
		dl = module.ClosingTime
	}
	if ex.Category != nil && ex.Category.AcceptUnofficialSubmits {
		return Timing{State: TimingUnofficial, Deadline: dl}
	}
	return Timing{State: TimingClosedAfter, Deadline: dl}
}

// Access translates the timing state into a submit/no-submit decision plus
// warnings for the submitters. Late and unofficial windows allow submitting
// but always warn.
func (ex *Exercise) Access(dev *DeadlineDeviation, when time.Time) (bool, []string) {
	t := ex.Timing(dev, when)
	date := t.Deadline.Format(deadlineTimeFormat)
	switch t.State {
	case TimingOpen:
		return true, nil
	case TimingLate:
		return true, []string{fmt.Sprintf(
			"Deadline for the exercise has passed. Late submissions are allowed until %s but points are only worth %d%% of normal.",
			date, ex.CourseModule.LateSubmissionPointWorth())}
	case TimingUnofficial:
		return true, []string{fmt.Sprintf(
			"Deadline for the exercise has passed (%s). You may still submit unofficially to receive feedback.", date)}
	case TimingClosedBefore:
		return false, []string{fmt.Sprintf("The exercise opens %s for submissions.", date)}
	case TimingClosedAfter:
		return false, []string{fmt.Sprintf("Deadline for the exercise has passed (%s).", date)}
	case TimingArchived:
		return false, []string{fmt.Sprintf("This course has been archived (%s).", date)}
	}
	return false, []string{"ERROR"}
}
