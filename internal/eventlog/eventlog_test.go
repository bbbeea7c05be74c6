package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"vigil/internal/events"
	"vigil/internal/logging"
	"vigil/internal/testsupport"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("parse audit line %q: %v", scanner.Text(), err)
		}
		records = append(records, record)
	}
	return records
}

func completedEvent(id string) *events.Event {
	exit := time.Date(2026, 8, 26, 10, 5, 0, 0, time.UTC)
	return &events.Event{
		EventID:            id,
		CameraID:           "cam1",
		EntryTime:          time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		ExitTime:           &exit,
		RemoteURL:          "https://bucket.s3.amazonaws.com/" + id + ".mp4",
		Status:             events.StatusCompleted,
		NotificationStatus: events.NotifyDelivered,
	}
}

func TestRecordAppendsTerminalOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.Local)
	log := newWithClock(cfg, logging.NewNop(), func() time.Time { return now })
	defer log.Close()

	if err := log.Record(completedEvent("evt-1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	failed := completedEvent("evt-2")
	failed.Status = events.StatusFailed
	failed.ErrorMessage = "upload retries exhausted"
	failed.NotificationStatus = events.NotifyFailed
	if err := log.Record(failed); err != nil {
		t.Fatalf("Record failed event: %v", err)
	}

	records := readRecords(t, log.Path(now))
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].EventID != "evt-1" || records[0].Status != "completed" || !records[0].Notified {
		t.Fatalf("first record = %+v", records[0])
	}
	if records[1].Error != "upload retries exhausted" || records[1].Notified {
		t.Fatalf("second record = %+v", records[1])
	}
}

func TestRecordRejectsInProgressEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	log := New(cfg, logging.NewNop())
	defer log.Close()

	for _, status := range []events.Status{
		events.StatusRecording,
		events.StatusCompressing,
		events.StatusUploading,
	} {
		event := completedEvent("evt-progress")
		event.Status = status
		if err := log.Record(event); !errors.Is(err, events.ErrConfiguration) {
			t.Fatalf("status %s: err = %v, want configuration error", status, err)
		}
	}
}

func TestRecordWritesEachEventOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.Local)
	log := newWithClock(cfg, logging.NewNop(), func() time.Time { return now })
	defer log.Close()

	event := completedEvent("evt-dup")
	for i := 0; i < 3; i++ {
		if err := log.Record(event); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	if records := readRecords(t, log.Path(now)); len(records) != 1 {
		t.Fatalf("records = %d, want exactly 1", len(records))
	}
}

func TestRotationAtDayBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 8, 26, 23, 59, 0, 0, time.Local)
	log := newWithClock(cfg, logging.NewNop(), func() time.Time { return now })
	defer log.Close()

	if err := log.Record(completedEvent("evt-day1")); err != nil {
		t.Fatalf("Record day 1: %v", err)
	}
	firstPath := log.Path(now)

	now = now.Add(2 * time.Minute) // crosses midnight
	if err := log.Record(completedEvent("evt-day2")); err != nil {
		t.Fatalf("Record day 2: %v", err)
	}
	secondPath := log.Path(now)

	if firstPath == secondPath {
		t.Fatal("day boundary did not change the file name")
	}
	if records := readRecords(t, firstPath); len(records) != 1 || records[0].EventID != "evt-day1" {
		t.Fatalf("day 1 records = %+v", records)
	}
	if records := readRecords(t, secondPath); len(records) != 1 || records[0].EventID != "evt-day2" {
		t.Fatalf("day 2 records = %+v", records)
	}
}
