package service

import "testing"

func TestConvertToBandScore(t *testing.T) {
	svc := NewScoreConverterService()

	tests := []struct {
		name            string
		rawScore        float64
		scoredQuestions int
		want            float64
		wantErr         bool
	}{
		{name: "perfect single question", rawScore: 9, scoredQuestions: 1, want: 9.0},
		{name: "rounds up to half band", rawScore: 12.5, scoredQuestions: 2, want: 6.5},
		{name: "rounds down to whole band", rawScore: 12.2, scoredQuestions: 2, want: 6.0},
		{name: "zero raw score", rawScore: 0, scoredQuestions: 4, want: 0},
		{name: "average above nine is capped", rawScore: 300, scoredQuestions: 30, want: 9.0},
		{name: "negative raw score rejected", rawScore: -1, scoredQuestions: 2, wantErr: true},
		{name: "raw score above ceiling rejected", rawScore: 361, scoredQuestions: 40, wantErr: true},
		{name: "zero scored questions rejected", rawScore: 10, scoredQuestions: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ConvertToBandScore(tt.rawScore, tt.scoredQuestions)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ConvertToBandScore(%v, %d) expected error, got %v", tt.rawScore, tt.scoredQuestions, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConvertToBandScore(%v, %d) unexpected error: %v", tt.rawScore, tt.scoredQuestions, err)
			}
			if got != tt.want {
				t.Errorf("ConvertToBandScore(%v, %d) = %v, want %v", tt.rawScore, tt.scoredQuestions, got, tt.want)
			}
		})
	}
}
