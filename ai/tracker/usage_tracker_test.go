package tracker

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	qt "github.com/prompteng/ape/internal/testing"
)

func float64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int             { return &i }
func strPtr(s string) *string       { return &s }

func TestNewUsageTracker(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 1)

	if tracker == nil {
		t.Fatal("NewUsageTracker returned nil")
	}

	if tracker.db != db {
		t.Error("UsageTracker database not set correctly")
	}

	if tracker.verbosity != 1 {
		t.Errorf("Expected verbosity 1, got %d", tracker.verbosity)
	}
}

func TestTrackUsage(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 1)

	now := time.Now()
	responseTime := now.Add(2 * time.Second)
	tokens := 150
	promptTokens := 100
	completionTokens := 50
	cost := 0.05

	usage := &ModelUsage{
		OperationType:     "describe",
		RunID:             "run_3f8a2k1x9ZbQ",
		ModelName:         "openai/gpt-4o-mini",
		ModelProvider:     "openrouter",
		ModelConfig:       NewModelConfig(float64Ptr(1.0), intPtr(2000)),
		RequestTimestamp:  now,
		ResponseTimestamp: &responseTime,
		TokensUsed:        &tokens,
		PromptTokens:      &promptTokens,
		CompletionTokens:  &completionTokens,
		Cost:              &cost,
		Success:           true,
		ErrorMessage:      nil,
	}

	err := tracker.TrackUsage(usage)
	if err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM model_usage").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count records: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}

	var storedUsage ModelUsage
	row := db.QueryRow(`
		SELECT operation_type, run_id, model_name, model_provider,
		       tokens_used, cost, success
		FROM model_usage WHERE id = 1`)

	err = row.Scan(&storedUsage.OperationType, &storedUsage.RunID,
		&storedUsage.ModelName, &storedUsage.ModelProvider, &storedUsage.TokensUsed,
		&storedUsage.Cost, &storedUsage.Success)
	if err != nil {
		t.Fatalf("Failed to retrieve stored usage: %v", err)
	}

	if storedUsage.OperationType != "describe" {
		t.Errorf("Expected operation_type 'describe', got '%s'", storedUsage.OperationType)
	}
	if storedUsage.RunID != "run_3f8a2k1x9ZbQ" {
		t.Errorf("Expected run_id 'run_3f8a2k1x9ZbQ', got '%s'", storedUsage.RunID)
	}
	if storedUsage.ModelName != "openai/gpt-4o-mini" {
		t.Errorf("Expected model_name 'openai/gpt-4o-mini', got '%s'", storedUsage.ModelName)
	}
	if *storedUsage.TokensUsed != 150 {
		t.Errorf("Expected tokens_used 150, got %d", *storedUsage.TokensUsed)
	}
	if !storedUsage.Success {
		t.Error("Expected success true")
	}
}

func TestTrackUsage_FailedRequest(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 0)

	usage := &ModelUsage{
		OperationType:    "summarize",
		RunID:            "run_9q2Pv5mTc1Wd",
		ModelName:        "openai/gpt-4o-mini",
		ModelProvider:    "openrouter",
		RequestTimestamp: time.Now(),
		Success:          false,
		ErrorMessage:     strPtr("API request failed with status 500"),
	}

	if err := tracker.TrackUsage(usage); err != nil {
		t.Fatalf("TrackUsage failed: %v", err)
	}

	var errMsg string
	err := db.QueryRow("SELECT error_message FROM model_usage WHERE id = 1").Scan(&errMsg)
	if err != nil {
		t.Fatalf("Failed to retrieve error message: %v", err)
	}
	if errMsg != "API request failed with status 500" {
		t.Errorf("Unexpected error_message: %q", errMsg)
	}
}

func TestGetUsageStats(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 0)
	base := time.Now().Add(-time.Hour)

	// Two successful calls and one failure
	for i, ok := range []bool{true, true, false} {
		tokens := 100 * (i + 1)
		cost := 0.01 * float64(i+1)
		usage := &ModelUsage{
			OperationType:    "describe",
			RunID:            "run_stats",
			ModelName:        "openai/gpt-4o-mini",
			ModelProvider:    "openrouter",
			RequestTimestamp: base.Add(time.Duration(i) * time.Minute),
			Success:          ok,
		}
		if ok {
			usage.TokensUsed = &tokens
			usage.Cost = &cost
		}
		if err := tracker.TrackUsage(usage); err != nil {
			t.Fatalf("TrackUsage failed: %v", err)
		}
	}

	stats, err := tracker.GetUsageStats(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetUsageStats failed: %v", err)
	}

	if stats.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 2 {
		t.Errorf("Expected 2 successful requests, got %d", stats.SuccessfulRequests)
	}
	if stats.TotalTokens != 300 {
		t.Errorf("Expected 300 total tokens, got %d", stats.TotalTokens)
	}
	if stats.UniqueModels != 1 {
		t.Errorf("Expected 1 unique model, got %d", stats.UniqueModels)
	}
	if stats.SuccessRate < 0.66 || stats.SuccessRate > 0.67 {
		t.Errorf("Expected success rate ~0.667, got %f", stats.SuccessRate)
	}
}

func TestGetRunUsage(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 0)
	now := time.Now()

	for _, runID := range []string{"run_a", "run_a", "run_b"} {
		tokens := 50
		usage := &ModelUsage{
			OperationType:    "describe",
			RunID:            runID,
			ModelName:        "openai/gpt-4o-mini",
			ModelProvider:    "openrouter",
			RequestTimestamp: now,
			TokensUsed:       &tokens,
			Success:          true,
		}
		if err := tracker.TrackUsage(usage); err != nil {
			t.Fatalf("TrackUsage failed: %v", err)
		}
	}

	stats, err := tracker.GetRunUsage("run_a")
	if err != nil {
		t.Fatalf("GetRunUsage failed: %v", err)
	}
	if stats.TotalRequests != 2 {
		t.Errorf("Expected 2 requests for run_a, got %d", stats.TotalRequests)
	}
	if stats.TotalTokens != 100 {
		t.Errorf("Expected 100 tokens for run_a, got %d", stats.TotalTokens)
	}
}

func TestGetModelBreakdown(t *testing.T) {
	db := qt.CreateMigratedTestDB(t)

	tracker := NewUsageTracker(db, 0)
	now := time.Now()

	models := []struct {
		name string
		cost float64
	}{
		{"openai/gpt-4o-mini", 0.01},
		{"openai/gpt-4o-mini", 0.02},
		{"anthropic/claude-3.5-sonnet", 0.30},
	}

	for _, m := range models {
		tokens := 100
		cost := m.cost
		responseTime := now.Add(time.Second)
		usage := &ModelUsage{
			OperationType:     "describe",
			RunID:             "run_breakdown",
			ModelName:         m.name,
			ModelProvider:     "openrouter",
			RequestTimestamp:  now,
			ResponseTimestamp: &responseTime,
			TokensUsed:        &tokens,
			Cost:              &cost,
			Success:           true,
		}
		if err := tracker.TrackUsage(usage); err != nil {
			t.Fatalf("TrackUsage failed: %v", err)
		}
	}

	breakdown, err := tracker.GetModelBreakdown(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetModelBreakdown failed: %v", err)
	}

	if len(breakdown) != 2 {
		t.Fatalf("Expected 2 models in breakdown, got %d", len(breakdown))
	}

	// Ordered by total cost descending
	if breakdown[0].ModelName != "anthropic/claude-3.5-sonnet" {
		t.Errorf("Expected claude first by cost, got %s", breakdown[0].ModelName)
	}
	if breakdown[1].RequestCount != 2 {
		t.Errorf("Expected 2 requests for gpt-4o-mini, got %d", breakdown[1].RequestCount)
	}
}

func TestTrackUsage_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO model_usage").WillReturnError(sqlmock.ErrCancelled)

	tracker := NewUsageTracker(db, 0)
	usage := &ModelUsage{
		OperationType:    "describe",
		RunID:            "run_err",
		ModelName:        "openai/gpt-4o-mini",
		ModelProvider:    "openrouter",
		RequestTimestamp: time.Now(),
		Success:          true,
	}

	if err := tracker.TrackUsage(usage); err == nil {
		t.Error("Expected error from failed insert, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet sqlmock expectations: %v", err)
	}
}

func TestNewModelConfig(t *testing.T) {
	if cfg := NewModelConfig(nil, nil); cfg != nil {
		t.Errorf("Expected nil config for nil params, got %v", *cfg)
	}

	cfg := NewModelConfig(float64Ptr(1.0), intPtr(2000))
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
	if *cfg != `{"temperature":1,"max_tokens":2000}` {
		t.Errorf("Unexpected config JSON: %s", *cfg)
	}
}
