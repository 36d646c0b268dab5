package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomService orchestrates validation and persistence for rooms.
type RoomService struct {
	rooms        RoomRepository
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, storeTimeout time.Duration) *RoomService {
	return NewRoomServiceWithLogger(rooms, storeTimeout, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, storeTimeout time.Duration, logger *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, storeTimeout: storeTimeout, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "name", strings.TrimSpace(input.Name))
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create room", err)
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	input.Name = strings.TrimSpace(input.Name)
	input.Description = trimOptional(input.Description)

	vErr := validateStruct(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	room, err = s.rooms.CreateRoom(storeCtx, Room{
		Name:        input.Name,
		Capacity:    input.Capacity,
		Description: input.Description,
	})
	if err != nil {
		room = Room{}
		err = mapRoomRepoError(storeCtx, err)
		return
	}
	return
}

// GetRoom returns a single room by identifier.
func (s *RoomService) GetRoom(ctx context.Context, id int64) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if id <= 0 || s.rooms == nil {
		return Room{}, ErrNotFound
	}

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	room, err := s.rooms.GetRoom(storeCtx, id)
	if err != nil {
		return Room{}, mapRoomRepoError(storeCtx, err)
	}
	return room, nil
}

// DeleteRoom removes an existing room together with its reservations.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID int64) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}
	if roomID <= 0 {
		return ErrNotFound
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "room_id", roomID)

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if err := s.rooms.DeleteRoom(storeCtx, roomID); err != nil {
		err = mapRoomRepoError(storeCtx, err)
		logOutcome(ctx, logger, "failed to delete room", err)
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// ListRooms returns the catalog of rooms ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list rooms", err)
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	storeCtx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	var raw []Room
	raw, err = s.rooms.ListRooms(storeCtx)
	if err != nil {
		err = mapRoomRepoError(storeCtx, err)
		return
	}

	rooms = make([]Room, len(raw))
	copy(rooms, raw)

	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})

	return
}

func mapRoomRepoError(ctx context.Context, err error) error {
	return storeFailure(ctx, "rooms", err)
}
