package main

import "testing"

func TestBenchConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		queries int
		wantErr bool
	}{
		{"positive", 1000, false},
		{"zero", 0, true},
		{"negative", -5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := benchConfig{numQueries: tt.queries, threads: 1}
			if err := cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMeasureCountsMisses(t *testing.T) {
	queries := []uint64{1, 2, 3, 4}
	if _, err := measure(t.Context(), 2, queries, func(k uint64) bool { return k != 3 }); err == nil {
		t.Error("expected an error for a missed lookup")
	}
	if ns, err := measure(t.Context(), 2, queries, func(uint64) bool { return true }); err != nil || ns < 0 {
		t.Errorf("measure = %v, %v", ns, err)
	}
}
