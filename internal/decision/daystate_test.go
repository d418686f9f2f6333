package decision

import (
	"testing"

	"github.com/mkhasanov/engagement-system/internal/model"
)

func TestResolveDayState_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		dayStatus model.ServiceDayStatus
		canStart  bool
		noDay     bool
		task      model.TaskStatus
		wantKind  DayStateKind
		wantLabel string
	}{
		{
			name:      "day in progress wins over disagreeing parent",
			dayStatus: model.DayInProgress,
			task:      model.TaskNotStarted,
			wantKind:  DayInProgress,
			wantLabel: "Task In Progress",
		},
		{
			name:      "legacy STARTED parent status",
			dayStatus: model.DayScheduled,
			task:      model.TaskStatus("started"),
			wantKind:  DayInProgress,
			wantLabel: "Task In Progress",
		},
		{
			name:      "parent in progress wins over completed day record",
			dayStatus: model.DayCompleted,
			task:      model.TaskInProgress,
			wantKind:  DayInProgress,
			wantLabel: "Task In Progress",
		},
		{
			name:      "completed parent without day record",
			noDay:     true,
			task:      model.TaskCompleted,
			wantKind:  DayCompleted,
			wantLabel: "Task Completed",
		},
		{
			name:      "scheduled with start allowed",
			dayStatus: model.DayScheduled,
			canStart:  true,
			task:      model.TaskNotStarted,
			wantKind:  DayScheduled,
			wantLabel: "Not Started",
		},
		{
			name:      "scheduled parent only, start not allowed",
			noDay:     true,
			task:      model.TaskNotStarted,
			wantKind:  DayScheduled,
			wantLabel: "Not Started",
		},
		{
			name:      "nothing due",
			noDay:     true,
			task:      model.TaskCancelled,
			wantKind:  DayNotDue,
			wantLabel: "Upcoming",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := model.Engagement{TaskStatus: tt.task}
			if !tt.noDay {
				e.TodayService = &model.ServiceDay{Status: tt.dayStatus, CanStart: tt.canStart}
			}

			got := ResolveDayState(e)

			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Label != tt.wantLabel {
				t.Fatalf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
		})
	}
}

func TestResolveDayState_StartOnlyWhenCapable(t *testing.T) {
	e := model.Engagement{
		TaskStatus:   model.TaskNotStarted,
		TodayService: &model.ServiceDay{Status: model.DayScheduled, CanStart: false},
	}

	if got := ResolveDayState(e); got.CanStart {
		t.Fatalf("CanStart = true, want false without capability flag")
	}

	e.TodayService.CanStart = true
	if got := ResolveDayState(e); !got.CanStart {
		t.Fatalf("CanStart = false, want true")
	}
}
