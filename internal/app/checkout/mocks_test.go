package checkout

import (
	"context"
	"sync"
	"time"

	"coursepay/internal/domain"
	"coursepay/internal/gateway"
	"coursepay/internal/repository/payment_repo"
)

// store is the shared in-memory state behind the mock repositories.
type store struct {
	mu          sync.Mutex
	courses     map[int64]*domain.Course
	orders      map[int64]*domain.Order
	payments    map[int64]*domain.Payment
	enrollments map[[2]int64]*domain.Enrollment
	cart        map[[2]int64]bool
	outbox      []*domain.OutboxMessage
	nextID      int64

	CreateOrderErr      error
	SetExternalErr      error
	CreatePaymentErr    error
	GetOrCreateErr      error
	DeletedOrders       []int64
	StatusUpdateCalls   int
	EnrollmentCreations int
}

func newStore() *store {
	return &store{
		courses:     map[int64]*domain.Course{},
		orders:      map[int64]*domain.Order{},
		payments:    map[int64]*domain.Payment{},
		enrollments: map[[2]int64]*domain.Enrollment{},
		cart:        map[[2]int64]bool{},
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) order(id int64) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *store) messages(messageType string) []*domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OutboxMessage
	for _, m := range s.outbox {
		if m.MessageType == messageType {
			out = append(out, m)
		}
	}
	return out
}

type snapshot struct {
	orders      map[int64]domain.Order
	payments    map[int64]domain.Payment
	enrollments map[[2]int64]domain.Enrollment
	cart        map[[2]int64]bool
	outbox      []*domain.OutboxMessage
	nextID      int64
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		orders:      make(map[int64]domain.Order, len(s.orders)),
		payments:    make(map[int64]domain.Payment, len(s.payments)),
		enrollments: make(map[[2]int64]domain.Enrollment, len(s.enrollments)),
		cart:        make(map[[2]int64]bool, len(s.cart)),
		outbox:      append([]*domain.OutboxMessage(nil), s.outbox...),
		nextID:      s.nextID,
	}
	for k, v := range s.orders {
		snap.orders[k] = *v
	}
	for k, v := range s.payments {
		snap.payments[k] = *v
	}
	for k, v := range s.enrollments {
		snap.enrollments[k] = *v
	}
	for k, v := range s.cart {
		snap.cart[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[int64]*domain.Order, len(snap.orders))
	for k, v := range snap.orders {
		s.orders[k] = &v
	}
	s.payments = make(map[int64]*domain.Payment, len(snap.payments))
	for k, v := range snap.payments {
		s.payments[k] = &v
	}
	s.enrollments = make(map[[2]int64]*domain.Enrollment, len(snap.enrollments))
	for k, v := range snap.enrollments {
		s.enrollments[k] = &v
	}
	s.cart = snap.cart
	s.outbox = snap.outbox
	s.nextID = snap.nextID
}

// MockTxManager serialises transactions, which is what the row lock gives
// the real implementation, and rolls the store back when fn fails.
type MockTxManager struct {
	mu         sync.Mutex
	s          *store
	Err        error
	RolledBack int
}

func (m *MockTxManager) WithinTx(_ context.Context, fn func(q domain.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.s == nil {
		return fn(nil)
	}
	snap := m.s.snapshot()
	if err := fn(nil); err != nil {
		m.s.restore(snap)
		m.RolledBack++
		return err
	}
	return nil
}

type MockCourseRepository struct{ s *store }

func (m *MockCourseRepository) GetApprovedCourseTx(_ context.Context, _ domain.Querier, id int64) (*domain.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.courses[id]
	if !ok || !c.IsApproved {
		return nil, domain.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

type MockEnrollmentRepository struct{ s *store }

func (m *MockEnrollmentRepository) ExistsTx(_ context.Context, _ domain.Querier, studentID, courseID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	_, ok := m.s.enrollments[[2]int64{studentID, courseID}]
	return ok, nil
}

func (m *MockEnrollmentRepository) GetTx(_ context.Context, _ domain.Querier, studentID, courseID int64) (*domain.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.enrollments[[2]int64{studentID, courseID}]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return e, nil
}

func (m *MockEnrollmentRepository) GetOrCreateTx(_ context.Context, _ domain.Querier, studentID, courseID int64) (*domain.Enrollment, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.GetOrCreateErr != nil {
		return nil, false, m.s.GetOrCreateErr
	}
	key := [2]int64{studentID, courseID}
	if e, ok := m.s.enrollments[key]; ok {
		return e, false, nil
	}
	e := &domain.Enrollment{ID: m.s.id(), StudentID: studentID, CourseID: courseID, EnrolledAt: time.Now()}
	m.s.enrollments[key] = e
	m.s.EnrollmentCreations++
	return e, true, nil
}

type MockOrderRepository struct{ s *store }

func (m *MockOrderRepository) CreateTx(_ context.Context, _ domain.Querier, order *domain.Order) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.CreateOrderErr != nil {
		return m.s.CreateOrderErr
	}
	order.ID = m.s.id()
	cp := *order
	m.s.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderRepository) GetByIDForUserTx(_ context.Context, _ domain.Querier, id, userID int64) (*domain.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok || o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetByIDForUpdateTx(_ context.Context, _ domain.Querier, id int64) (*domain.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) SetExternalOrderIDTx(_ context.Context, _ domain.Querier, id int64, externalOrderID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.SetExternalErr != nil {
		return m.s.SetExternalErr
	}
	m.s.orders[id].ExternalOrderID = externalOrderID
	return nil
}

func (m *MockOrderRepository) UpdateStatusTx(_ context.Context, _ domain.Querier, id int64, from, to domain.OrderStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.StatusUpdateCalls++
	o, ok := m.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *MockOrderRepository) DeleteTx(_ context.Context, _ domain.Querier, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.payments, id)
	delete(m.s.orders, id)
	m.s.DeletedOrders = append(m.s.DeletedOrders, id)
	return nil
}

func (m *MockOrderRepository) ListByUserTx(_ context.Context, _ domain.Querier, userID int64) ([]domain.OrderView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	views := []domain.OrderView{}
	for _, o := range m.s.orders {
		if o.UserID == userID {
			views = append(views, domain.OrderView{Order: *o})
		}
	}
	return views, nil
}

func (m *MockOrderRepository) ListPaidByInstructorTx(_ context.Context, _ domain.Querier, instructorID int64) ([]domain.OrderView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	views := []domain.OrderView{}
	for _, o := range m.s.orders {
		c := m.s.courses[o.CourseID]
		if o.Status == domain.OrderStatusPaid && c != nil && c.InstructorID == instructorID {
			views = append(views, domain.OrderView{Order: *o, InstructorID: instructorID, CourseTitle: c.Title})
		}
	}
	return views, nil
}

type MockPaymentRepository struct{ s *store }

func (m *MockPaymentRepository) CreateTx(ctx context.Context, _ domain.Querier, payment *domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.CreatePaymentErr != nil {
		return m.s.CreatePaymentErr
	}
	if _, ok := m.s.payments[payment.OrderID]; ok {
		return domain.ErrPaymentAlreadyExists
	}
	payment.ID = m.s.id()
	cp := *payment
	m.s.payments[payment.OrderID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByOrderIDTx(_ context.Context, _ domain.Querier, orderID int64) (*domain.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.payments[orderID]
	if !ok {
		return nil, payment_repo.ErrPaymentNotFound
	}
	return p, nil
}

type MockOutboxRepository struct{ s *store }

func (m *MockOutboxRepository) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.OutboxMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.outbox = append(m.s.outbox, msg)
	return nil
}

func (m *MockOutboxRepository) GetPendingMessagesTx(context.Context, domain.Querier, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (m *MockOutboxRepository) UpdateMessageStatusTx(context.Context, domain.Querier, string, domain.OutboxMessageStatus) error {
	return nil
}

type MockCartRepository struct{ s *store }

func (m *MockCartRepository) AddIfAbsentTx(_ context.Context, _ domain.Querier, userID, courseID int64) (*domain.CartItem, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := [2]int64{userID, courseID}
	created := !m.s.cart[key]
	m.s.cart[key] = true
	return &domain.CartItem{UserID: userID, CourseID: courseID}, created, nil
}

func (m *MockCartRepository) ListByUserTx(context.Context, domain.Querier, int64) ([]domain.CartItem, error) {
	return []domain.CartItem{}, nil
}

func (m *MockCartRepository) DeleteTx(_ context.Context, _ domain.Querier, userID, courseID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := [2]int64{userID, courseID}
	existed := m.s.cart[key]
	delete(m.s.cart, key)
	return existed, nil
}

// MockGateway returns a fixed remote order or an error.
type MockGateway struct {
	RemoteID string
	Err      error
	Requests []gateway.CreateOrderRequest
}

func (m *MockGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.RemoteOrder, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &gateway.RemoteOrder{ID: m.RemoteID, Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

// MockCartCache records evictions.
type MockCartCache struct {
	mu      sync.Mutex
	Evicted []int64
}

func (m *MockCartCache) Get(context.Context, int64) ([]domain.CartItem, error) {
	return nil, nil
}

func (m *MockCartCache) Version(context.Context, int64) (int64, error) { return 0, nil }

func (m *MockCartCache) Set(context.Context, int64, int64, []domain.CartItem) error { return nil }

func (m *MockCartCache) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evicted = append(m.Evicted, userID)
	return nil
}
