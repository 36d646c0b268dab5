package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-reservations/internal/adapter"
	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

// Services groups the application services wired against one store.
type Services struct {
	Employees    *application.EmployeeService
	Rooms        *application.RoomService
	Reservations *application.ReservationService
}

// ServiceFactory builds application services on top of a store the same way
// the binary does.
type ServiceFactory struct {
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with a 5s store timeout.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{StoreTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithStoreTimeout overrides the per-call store deadline.
func WithStoreTimeout(timeout time.Duration) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.StoreTimeout = timeout
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Build wires every service against store through the persistence adapters.
func (f *ServiceFactory) Build(store persistence.Store) Services {
	return Services{
		Employees:    application.NewEmployeeServiceWithLogger(adapter.NewEmployeeRepository(store), f.StoreTimeout, f.Logger),
		Rooms:        application.NewRoomServiceWithLogger(adapter.NewRoomRepository(store), f.StoreTimeout, f.Logger),
		Reservations: application.NewReservationServiceWithLogger(adapter.NewReservationRepository(store), f.StoreTimeout, f.Logger),
	}
}
