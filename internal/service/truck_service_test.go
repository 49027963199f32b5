package service

import (
	"errors"
	"testing"
	"time"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/repository"
)

func setupTruckServiceTest(t *testing.T) (*TruckService, *recordingNotifier) {
	t.Helper()
	db := openServiceTestDB(t)
	rec := &recordingNotifier{}
	svc := NewTruckService(repository.NewTruckRepository(db), rec)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC) }
	return svc, rec
}

func strPtr(value string) *string {
	return &value
}

func TestTruckServiceCreateValidates(t *testing.T) {
	svc, rec := setupTruckServiceTest(t)

	if _, err := svc.Create(CreateTruckInput{Terminal: "A", ShippingNo: "S1", DockCode: " "}); !errors.Is(err, ErrTruckRequiredFields) {
		t.Fatalf("want ErrTruckRequiredFields got %v", err)
	}
	base := CreateTruckInput{Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R1"}

	bad := base
	bad.StatusLoading = "Paused"
	if _, err := svc.Create(bad); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus got %v", err)
	}
	bad = base
	bad.PreparationStart = strPtr("99:00")
	if _, err := svc.Create(bad); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("want ErrInvalidTime got %v", err)
	}
	bad = base
	bad.Date = "2024-02-30"
	if _, err := svc.Create(bad); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("want ErrInvalidDate got %v", err)
	}

	good := base
	good.PreparationStart = strPtr("8:5")
	good.Date = "2024-03-01"
	truck, err := svc.Create(good)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if truck.ID == "" || truck.StatusPreparation != "On Process" || *truck.PreparationStart != "08:05" {
		t.Fatalf("unexpected truck: %+v", truck)
	}
	if !truck.CreatedAt.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("want business date 2024-03-01 got %v", truck.CreatedAt)
	}
	if rec.count(constants.EventTruckCreated) != 1 {
		t.Fatalf("want 1 truck_created event")
	}
}

func TestTruckServiceUpdateAndStatus(t *testing.T) {
	svc, rec := setupTruckServiceTest(t)
	truck, err := svc.Create(CreateTruckInput{Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R1", LoadingStart: strPtr("10:00")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(truck.ID, UpdateTruckInput{DockCode: strPtr("D2"), LoadingStart: strPtr("")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.DockCode != "D2" || updated.LoadingStart != nil || updated.TruckRoute != "R1" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected partial update: %+v", updated)
	}
	if _, err := svc.Update(truck.ID, UpdateTruckInput{StatusLoading: strPtr("done")}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus got %v", err)
	}

	if _, err := svc.UpdateStatus(truck.ID, "unloading", "Delay"); !errors.Is(err, ErrInvalidStatusType) {
		t.Fatalf("want ErrInvalidStatusType got %v", err)
	}
	if _, err := svc.UpdateStatus(truck.ID, "loading", "delay"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus got %v", err)
	}
	changed, err := svc.UpdateStatus(truck.ID, "loading", "Delay")
	if err != nil || changed.StatusLoading != "Delay" || changed.StatusPreparation != "On Process" {
		t.Fatalf("unexpected status update: %+v err=%v", changed, err)
	}
	if _, err := svc.UpdateStatus("missing", "loading", "Delay"); !errors.Is(err, ErrTruckNotFound) {
		t.Fatalf("want ErrTruckNotFound got %v", err)
	}
	if rec.count(constants.EventTruckUpdated) != 1 || rec.count(constants.EventStatusUpdated) != 1 {
		t.Fatalf("unexpected events: %+v", rec.events)
	}

	if err := svc.Delete(truck.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(truck.ID); !errors.Is(err, ErrTruckNotFound) {
		t.Fatalf("want ErrTruckNotFound after delete got %v", err)
	}
	last := rec.events[len(rec.events)-1]
	if last.Type != constants.EventTruckDeleted || last.Data.(map[string]string)["id"] != truck.ID {
		t.Fatalf("unexpected delete event: %+v", last)
	}
}

func TestTruckServiceListDateFilters(t *testing.T) {
	svc, _ := setupTruckServiceTest(t)
	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		if _, err := svc.Create(CreateTruckInput{Terminal: "A", ShippingNo: "S-" + date, DockCode: "D", TruckRoute: "R", Date: date}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	trucks, total, err := svc.List(TruckQuery{Page: 1, PageSize: 10, DateFrom: "2024-03-02", DateTo: "2024-03-03"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(trucks) != 2 || trucks[0].ShippingNo != "S-2024-03-03" {
		t.Fatalf("want 2 trucks newest first got total=%d %+v", total, trucks)
	}

	_, _, err = svc.List(TruckQuery{DateFrom: "03/02/2024"})
	var dateErr *DateFieldError
	if !errors.As(err, &dateErr) || dateErr.Field != "date_from" || !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("want date_from DateFieldError got %v", err)
	}
	if _, _, err := svc.List(TruckQuery{DateTo: "tomorrow"}); !errors.As(err, &dateErr) || dateErr.Field != "date_to" {
		t.Fatalf("want date_to DateFieldError got %v", err)
	}
}

func TestTruckServiceStats(t *testing.T) {
	svc, _ := setupTruckServiceTest(t)
	inputs := []CreateTruckInput{
		{Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R", StatusPreparation: "Delay"},
		{Terminal: "A", ShippingNo: "S2", DockCode: "D1", TruckRoute: "R", StatusLoading: "Finished"},
		{Terminal: "B", ShippingNo: "S1", DockCode: "D2", TruckRoute: "R"},
	}
	for _, input := range inputs {
		if _, err := svc.Create(input); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	stats, err := svc.Stats(TruckQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalTrucks != 3 {
		t.Fatalf("want 3 trucks got %d", stats.TotalTrucks)
	}
	if stats.PreparationStats["Delay"] != 1 || stats.PreparationStats["On Process"] != 2 || stats.PreparationStats["Finished"] != 0 {
		t.Fatalf("unexpected preparation stats: %v", stats.PreparationStats)
	}
	if stats.LoadingStats["Finished"] != 1 || stats.LoadingStats["On Process"] != 2 {
		t.Fatalf("unexpected loading stats: %v", stats.LoadingStats)
	}
	if stats.TerminalStats["A"] != 2 || stats.TerminalStats["B"] != 1 {
		t.Fatalf("unexpected terminal stats: %v", stats.TerminalStats)
	}

	filtered, err := svc.Stats(TruckQuery{Terminal: "B"})
	if err != nil || filtered.TotalTrucks != 1 || len(filtered.TerminalStats) != 1 {
		t.Fatalf("unexpected filtered stats: %+v err=%v", filtered, err)
	}

	dups, err := svc.DuplicateStats()
	if err != nil {
		t.Fatalf("duplicate stats failed: %v", err)
	}
	if dups.TotalRecords != 3 || len(dups.DuplicateDockCodes) != 1 || dups.DuplicateDockCodes[0].DockCode != "D1" {
		t.Fatalf("unexpected dock duplicates: %+v", dups)
	}
	if len(dups.DuplicateShippingNos) != 1 || dups.DuplicateShippingNos[0].ShippingNo != "S1" || dups.DuplicateShippingNos[0].Count != 2 {
		t.Fatalf("unexpected shipping duplicates: %+v", dups.DuplicateShippingNos)
	}
}

func TestTruckServiceCheckDuplicate(t *testing.T) {
	svc, _ := setupTruckServiceTest(t)
	truck, err := svc.Create(CreateTruckInput{Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R", Date: "2024-01-15"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	hit, err := svc.CheckDuplicate(DuplicateCheckInput{Date: "2024-01-15", Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !hit.Exists || hit.Action != DuplicateActionUpdate || hit.Record == nil || hit.Record.ID != truck.ID {
		t.Fatalf("want update action got %+v", hit)
	}
	if hit.Record.CreatedAt != "2024-01-15T00:00:00Z" {
		t.Fatalf("want RFC 3339 created_at got %q", hit.Record.CreatedAt)
	}

	miss, err := svc.CheckDuplicate(DuplicateCheckInput{Date: "2024-01-15", Terminal: "A", ShippingNo: "S1", DockCode: "D2", TruckRoute: "R"})
	if err != nil || miss.Exists || miss.Action != DuplicateActionCreateNew || miss.Record != nil {
		t.Fatalf("want create_new got %+v err=%v", miss, err)
	}
	if _, err := svc.CheckDuplicate(DuplicateCheckInput{Date: "15-01-2024"}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("want ErrInvalidDate got %v", err)
	}
}
