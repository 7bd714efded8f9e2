package event

import (
	"testing"
	"time"
)

func TestValidateCreate(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	tests := []struct {
		name    string
		input   CreateEventInput
		wantErr error
	}{
		{
			name:    "valid input",
			input:   CreateEventInput{Type: "tournament", Game: "cs2", DateStart: start, DateEnd: end},
			wantErr: nil,
		},
		{
			name:    "same-day event",
			input:   CreateEventInput{Type: "scrim", DateStart: start, DateEnd: start},
			wantErr: nil,
		},
		{
			name:    "empty type",
			input:   CreateEventInput{Type: "", DateStart: start, DateEnd: end},
			wantErr: ErrTypeRequired,
		},
		{
			name:    "whitespace-only type",
			input:   CreateEventInput{Type: "   ", DateStart: start, DateEnd: end},
			wantErr: ErrTypeRequired,
		},
		{
			name:    "missing start date",
			input:   CreateEventInput{Type: "tournament", DateEnd: end},
			wantErr: ErrDatesRequired,
		},
		{
			name:    "missing end date",
			input:   CreateEventInput{Type: "tournament", DateStart: start},
			wantErr: ErrDatesRequired,
		},
		{
			name:    "end before start",
			input:   CreateEventInput{Type: "tournament", DateStart: end, DateEnd: start},
			wantErr: ErrDatesOutOfOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
