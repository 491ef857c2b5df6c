package main

import (
	"encoding/json"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		wantID     string
		wantAction string
		wantErr    bool
	}{
		{"envelope", `{"id":"job-1","input":{"action":"get_news","province":"Alberta"}}`, "job-1", "get_news", false},
		{"bare request", `{"action":"get_provinces"}`, "", "get_provinces", false},
		{"empty object", `{}`, "", "", false},
		{"not json", `[1,2`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := parseEvent(json.RawMessage(tt.event))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if job.ID != tt.wantID || job.Input.Action != tt.wantAction {
				t.Errorf("got id=%q action=%q", job.ID, job.Input.Action)
			}
		})
	}
}
