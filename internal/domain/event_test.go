package domain

import (
	"testing"
	"time"
)

func TestTimelineEventValidation(t *testing.T) {
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		event   TimelineEvent
		wantErr bool
	}{
		{
			"valid chemo event",
			TimelineEvent{ID: "ev-1", Type: CHEMO_ADMINISTRATION, Date: &date, DrugName: "temozolomide"},
			false,
		},
		{
			"valid undated event",
			TimelineEvent{ID: "ev-2", Type: VISIT, DateText: "spring 2023"},
			false,
		},
		{
			"missing ID",
			TimelineEvent{Type: SURGERY, Date: &date},
			true,
		},
		{
			"invalid type",
			TimelineEvent{ID: "ev-3", Type: EventType("transfusion"), Date: &date},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatientTimelineValidation(t *testing.T) {
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	valid := PatientTimeline{
		PatientID: "patient-1",
		Events: []TimelineEvent{
			{ID: "ev-1", Type: SURGERY, Date: &date},
			{ID: "ev-2", Type: VISIT, Date: &date},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid timeline, got %v", err)
	}

	empty := PatientTimeline{PatientID: "patient-2"}
	if err := empty.Validate(); err != nil {
		t.Errorf("Expected empty event list to be valid, got %v", err)
	}

	duplicated := PatientTimeline{
		PatientID: "patient-3",
		Events: []TimelineEvent{
			{ID: "ev-1", Type: SURGERY, Date: &date},
			{ID: "ev-1", Type: VISIT, Date: &date},
		},
	}
	if err := duplicated.Validate(); err == nil {
		t.Error("Expected duplicate event IDs to be rejected")
	}
}
