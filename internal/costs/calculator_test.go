package costs

import (
	"testing"
)

func TestCalculateLLMCost(t *testing.T) {
	tests := []struct {
		name  string
		usage Usage
		want  Breakdown
	}{
		{
			name:  "typical sentiment call",
			usage: Usage{InputTokens: 1000, OutputTokens: 400},
			// Input: (1000/1000)*0.025 = 0.025
			// Output: (400/1000)*0.125 = 0.05
			want: Breakdown{InputCents: 0.025, OutputCents: 0.05, TotalCents: 0.075},
		},
		{
			name:  "long report",
			usage: Usage{InputTokens: 2000, OutputTokens: 1000},
			// Input: 2*0.025 = 0.05
			// Output: 1*0.125 = 0.125
			want: Breakdown{InputCents: 0.05, OutputCents: 0.125, TotalCents: 0.175},
		},
		{
			name:  "no usage reported (failed call)",
			usage: Usage{},
			want:  Breakdown{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLLMCost(tt.usage)
			if got != tt.want {
				t.Errorf("CalculateLLMCost(%+v) = %+v, want %+v", tt.usage, got, tt.want)
			}
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		input  float64
		places int
		want   float64
	}{
		{0.12344, 4, 0.1234},
		{0.12345, 2, 0.12},
		{1.5, 0, 2},
		{0, 4, 0},
	}

	for _, tt := range tests {
		got := roundTo(tt.input, tt.places)
		if got != tt.want {
			t.Errorf("roundTo(%f, %d) = %f, want %f", tt.input, tt.places, got, tt.want)
		}
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("COST_TEST_FLOAT", "0.5")
	if got := getEnvFloat("COST_TEST_FLOAT", 1.0); got != 0.5 {
		t.Errorf("getEnvFloat() = %f, want 0.5", got)
	}

	t.Setenv("COST_TEST_FLOAT_BAD", "not-a-number")
	if got := getEnvFloat("COST_TEST_FLOAT_BAD", 1.0); got != 1.0 {
		t.Errorf("getEnvFloat() with invalid value = %f, want default 1.0", got)
	}

	if got := getEnvFloat("COST_TEST_FLOAT_UNSET", 2.0); got != 2.0 {
		t.Errorf("getEnvFloat() unset = %f, want default 2.0", got)
	}
}
