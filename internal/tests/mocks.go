package tests

import (
	"context"
	"sort"
	"sync"
	"time"

	"driverpro/internal/domain"
	"driverpro/internal/repository"
	"driverpro/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is an in-memory implementation of TripRepository.
type MockTripRepository struct {
	mu    *sync.Mutex
	trips map[string]*domain.Trip

	// Error injection
	UpdateError error
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTripRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID == driverID {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTripRepository) ListByState(ctx context.Context, state domain.TripState) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.State == state {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockTripRepository) ListScheduledDue(ctx context.Context, deadline time.Time) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.State == domain.TripStateDraft && t.IsScheduled && !t.ScheduledReminderSent && !t.ScheduledAt.After(deadline) {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAUSE REPOSITORY
// ──────────────────────────────────────────────

// MockPauseRepository is an in-memory implementation of PauseRepository.
type MockPauseRepository struct {
	mu     *sync.Mutex
	pauses map[string]*domain.Pause
}

func (m *MockPauseRepository) Create(ctx context.Context, pause *domain.Pause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *pause
	m.pauses[pause.ID] = &copy
	return nil
}

func (m *MockPauseRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Pause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Pause
	for _, p := range m.pauses {
		if p.TripID == tripID {
			copy := *p
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func (m *MockPauseRepository) GetActiveByTrip(ctx context.Context, tripID string) (*domain.Pause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pauses {
		if p.TripID == tripID && p.IsActive {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPauseRepository) Update(ctx context.Context, pause *domain.Pause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pauses[pause.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *pause
	m.pauses[pause.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK CARD REPOSITORY
// ──────────────────────────────────────────────

// MockCardRepository is an in-memory implementation of CardRepository.
type MockCardRepository struct {
	mu    *sync.Mutex
	cards map[string]*domain.Card
}

func (m *MockCardRepository) Create(ctx context.Context, card *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *card
	m.cards[card.ID] = &copy
	return nil
}

func (m *MockCardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *card
	return &copy, nil
}

func (m *MockCardRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Card, error) {
	return m.GetByID(ctx, id)
}

func (m *MockCardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Card, 0, len(m.cards))
	for _, c := range m.cards {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockCardRepository) Update(ctx context.Context, card *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *card
	m.cards[card.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK MOVEMENT REPOSITORY
// ──────────────────────────────────────────────

// MockMovementRepository is an in-memory implementation of MovementRepository.
type MockMovementRepository struct {
	mu        *sync.Mutex
	movements []*domain.CreditMovement
}

func (m *MockMovementRepository) Create(ctx context.Context, movement *domain.CreditMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *movement
	m.movements = append(m.movements, &copy)
	return nil
}

func (m *MockMovementRepository) ListByCard(ctx context.Context, cardID string) ([]*domain.CreditMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.CreditMovement
	for _, mv := range m.movements {
		if mv.CardID == cardID {
			copy := *mv
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	return result, nil
}

func (m *MockMovementRepository) Balance(ctx context.Context, cardID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var balance float64
	for _, mv := range m.movements {
		if mv.CardID != cardID {
			continue
		}
		if mv.Type == domain.MovementIn {
			balance += mv.Amount
		} else {
			balance -= mv.Amount
		}
	}
	return balance, nil
}

func (m *MockMovementRepository) DeleteByRecharge(ctx context.Context, rechargeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.movements[:0]
	for _, mv := range m.movements {
		if mv.RechargeID != rechargeID {
			kept = append(kept, mv)
		}
	}
	m.movements = kept
	return nil
}

// ──────────────────────────────────────────────
// MOCK RECHARGE REPOSITORY
// ──────────────────────────────────────────────

// MockRechargeRepository is an in-memory implementation of RechargeRepository.
type MockRechargeRepository struct {
	mu        *sync.Mutex
	recharges map[string]*domain.Recharge
}

func (m *MockRechargeRepository) Create(ctx context.Context, recharge *domain.Recharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *recharge
	m.recharges[recharge.ID] = &copy
	return nil
}

func (m *MockRechargeRepository) GetByID(ctx context.Context, id string) (*domain.Recharge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recharge, ok := m.recharges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *recharge
	return &copy, nil
}

func (m *MockRechargeRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Recharge, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRechargeRepository) CountByCard(ctx context.Context, cardID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.recharges {
		if r.CardID == cardID {
			count++
		}
	}
	return count, nil
}

func (m *MockRechargeRepository) Update(ctx context.Context, recharge *domain.Recharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recharges[recharge.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *recharge
	m.recharges[recharge.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK ASSIGNMENT REPOSITORY
// ──────────────────────────────────────────────

// MockAssignmentRepository is an in-memory implementation of AssignmentRepository.
type MockAssignmentRepository struct {
	mu          *sync.Mutex
	assignments map[string]*domain.CardAssignment
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *domain.CardAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *assignment
	m.assignments[assignment.ID] = &copy
	return nil
}

func (m *MockAssignmentRepository) GetActiveByCard(ctx context.Context, cardID string) (*domain.CardAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.CardID == cardID && a.Active {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockAssignmentRepository) Update(ctx context.Context, assignment *domain.CardAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[assignment.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *assignment
	m.assignments[assignment.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory implementation of repository.Store. Transactions
// are simulated with a single mutex; rollback is not simulated, so error
// injection tests should assert on observable state rather than atomicity.
type MockStore struct {
	mu          sync.Mutex
	Trips       *MockTripRepository
	Pauses      *MockPauseRepository
	Cards       *MockCardRepository
	Movements   *MockMovementRepository
	Recharges   *MockRechargeRepository
	Assignments *MockAssignmentRepository
}

// NewMockStore creates a MockStore with empty repositories.
func NewMockStore() *MockStore {
	s := &MockStore{}
	s.Trips = &MockTripRepository{mu: &s.mu, trips: make(map[string]*domain.Trip)}
	s.Pauses = &MockPauseRepository{mu: &s.mu, pauses: make(map[string]*domain.Pause)}
	s.Cards = &MockCardRepository{mu: &s.mu, cards: make(map[string]*domain.Card)}
	s.Movements = &MockMovementRepository{mu: &s.mu}
	s.Recharges = &MockRechargeRepository{mu: &s.mu, recharges: make(map[string]*domain.Recharge)}
	s.Assignments = &MockAssignmentRepository{mu: &s.mu, assignments: make(map[string]*domain.CardAssignment)}
	return s
}

func (s *MockStore) repos() repository.Repos {
	return repository.Repos{
		Trips:       s.Trips,
		Pauses:      s.Pauses,
		Cards:       s.Cards,
		Movements:   s.Movements,
		Recharges:   s.Recharges,
		Assignments: s.Assignments,
	}
}

// Repos returns the in-memory repositories.
func (s *MockStore) Repos() repository.Repos {
	return s.repos()
}

// InTransaction runs fn against the in-memory repositories.
func (s *MockStore) InTransaction(ctx context.Context, fn func(repository.Repos) error) error {
	return fn(s.repos())
}

// AddTrip seeds a trip.
func (s *MockStore) AddTrip(trip *domain.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *trip
	s.Trips.trips[trip.ID] = &copy
}

// AddCard seeds a card.
func (s *MockStore) AddCard(card *domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *card
	s.Cards.cards[card.ID] = &copy
}

// AddRecharge seeds a recharge.
func (s *MockStore) AddRecharge(recharge *domain.Recharge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *recharge
	s.Recharges.recharges[recharge.ID] = &copy
}

// AddMovement seeds a ledger entry.
func (s *MockStore) AddMovement(movement *domain.CreditMovement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *movement
	s.Movements.movements = append(s.Movements.movements, &copy)
}

// ──────────────────────────────────────────────
// MOCK DIRECTORIES
// ──────────────────────────────────────────────

// MockFleetDirectory is a map-backed FleetDirectory.
type MockFleetDirectory struct {
	// Partners maps driver user id -> partner id.
	Partners map[string]string
	// Vehicles maps partner id -> vehicle id.
	Vehicles map[string]string
	// Holders maps vehicle id -> partner id.
	Holders map[string]string
}

// NewMockFleetDirectory creates an empty MockFleetDirectory.
func NewMockFleetDirectory() *MockFleetDirectory {
	return &MockFleetDirectory{
		Partners: make(map[string]string),
		Vehicles: make(map[string]string),
		Holders:  make(map[string]string),
	}
}

// Assign links driver -> partner -> vehicle in both directions.
func (m *MockFleetDirectory) Assign(driverID, partnerID, vehicleID string) {
	m.Partners[driverID] = partnerID
	m.Vehicles[partnerID] = vehicleID
	m.Holders[vehicleID] = partnerID
}

func (m *MockFleetDirectory) ResolveDriverPartner(ctx context.Context, userID string) (string, error) {
	return m.Partners[userID], nil
}

func (m *MockFleetDirectory) FindAssignedVehicle(ctx context.Context, partnerID string) (string, error) {
	return m.Vehicles[partnerID], nil
}

func (m *MockFleetDirectory) VehicleDriver(ctx context.Context, vehicleID string) (string, error) {
	return m.Holders[vehicleID], nil
}

// MockCardDirectory is a map-backed CardDirectory that records cache
// invalidations.
type MockCardDirectory struct {
	// Cards maps vehicle id -> card id.
	Cards map[string]string

	// Invalidated records vehicle ids passed to InvalidateVehicleCard.
	Invalidated []string

	// Error injection
	InvalidateError error
}

// NewMockCardDirectory creates an empty MockCardDirectory.
func NewMockCardDirectory() *MockCardDirectory {
	return &MockCardDirectory{Cards: make(map[string]string)}
}

func (m *MockCardDirectory) FindActiveCardForVehicle(ctx context.Context, vehicleID string) (string, error) {
	return m.Cards[vehicleID], nil
}

func (m *MockCardDirectory) InvalidateVehicleCard(ctx context.Context, vehicleID string) error {
	if m.InvalidateError != nil {
		return m.InvalidateError
	}
	m.Invalidated = append(m.Invalidated, vehicleID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT SINK AND LOCKER
// ──────────────────────────────────────────────

// MockEventSink records published events for assertions.
type MockEventSink struct {
	mu     sync.Mutex
	Events []service.Event

	// Error injection
	PublishError error
}

// NewMockEventSink creates an empty MockEventSink.
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

func (m *MockEventSink) Publish(ctx context.Context, event service.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// EventTypes returns the recorded event types in publish order.
func (m *MockEventSink) EventTypes() []service.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]service.EventType, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}

// CountType returns how many events of the given type were published.
func (m *MockEventSink) CountType(t service.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.Events {
		if e.Type == t {
			count++
		}
	}
	return count
}

// MockTripLocker is an always-acquirable TripLocker that counts calls.
type MockTripLocker struct {
	mu       sync.Mutex
	Acquired []string
	Released []string

	// Deny makes every acquisition fail.
	Deny bool
}

// NewMockTripLocker creates a MockTripLocker.
func NewMockTripLocker() *MockTripLocker {
	return &MockTripLocker{}
}

func (m *MockTripLocker) AcquireTripLock(ctx context.Context, tripID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Deny {
		return false, nil
	}
	m.Acquired = append(m.Acquired, tripID)
	return true, nil
}

func (m *MockTripLocker) ReleaseTripLock(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, tripID)
	return nil
}

// Interface checks.
var (
	_ repository.Store              = (*MockStore)(nil)
	_ service.FleetDirectory       = (*MockFleetDirectory)(nil)
	_ service.CardDirectory        = (*MockCardDirectory)(nil)
	_ service.CardCacheInvalidator = (*MockCardDirectory)(nil)
	_ service.EventSink            = (*MockEventSink)(nil)
	_ service.TripLocker           = (*MockTripLocker)(nil)
)
