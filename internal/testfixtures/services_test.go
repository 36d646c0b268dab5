package testfixtures

import (
	"context"
	"testing"
)

func TestServiceFactoryBuild(t *testing.T) {
	for _, newHarness := range AllHarnesses() {
		h := newHarness(t)
		t.Run(h.Name, func(t *testing.T) {
			services := NewServiceFactory().Build(h.Store)
			ctx := context.Background()

			room, err := services.Rooms.CreateRoom(ctx, NewRoomFixture(WithRoomDescription("Proyector")).Input())
			if err != nil {
				t.Fatalf("CreateRoom failed: %v", err)
			}
			employee, err := services.Employees.CreateEmployee(ctx, NewEmployeeFixture().Input())
			if err != nil {
				t.Fatalf("CreateEmployee failed: %v", err)
			}

			reservation, err := services.Reservations.RequestReservation(ctx, NewReservationFixture(room.ID, employee.ID, WithTitle("Sprint")).Input())
			if err != nil {
				t.Fatalf("RequestReservation failed: %v", err)
			}
			if reservation.ID == 0 || reservation.Date.String() != ReferenceDate || reservation.Slot.String() != "09:00:00-10:00:00" {
				t.Fatalf("unexpected reservation %#v", reservation)
			}
			if got := h.CountReservations(t, room.ID, ReferenceDate); got != 1 {
				t.Fatalf("expected 1 stored reservation, got %d", got)
			}
		})
	}
}

func TestMemoryHarnessUsesClock(t *testing.T) {
	clock := NewClock(ReferenceTime())
	h := NewMemoryHarness(t, clock)

	room := h.SeedRoom(t)
	if !room.CreatedAt.Equal(ReferenceTime()) {
		t.Fatalf("expected created_at %v, got %v", ReferenceTime(), room.CreatedAt)
	}

	employee := h.SeedEmployee(t, WithEmployeeEmail("fixture@example.com"))
	stored := h.SeedReservation(t, NewReservationFixture(room.ID, employee.ID, WithSlot("14:00", "15:30")))
	if stored.StartTime != "14:00:00" || stored.EndTime != "15:30:00" {
		t.Fatalf("expected canonical times, got %#v", stored)
	}
}
