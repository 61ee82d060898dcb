// Package memory keeps the catalog and orders in process. It backs local runs
// without MySQL and the service tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

type User struct {
	ID        int64
	FirstName string
	LastName  string
}

type Store struct {
	mu          sync.Mutex
	books       map[int64]models.Book
	orders      map[int64]models.Order
	users       map[int64]User
	nextBookID  int64
	nextOrderID int64
}

func NewStore() *Store {
	return &Store{
		books:  make(map[int64]models.Book),
		orders: make(map[int64]models.Order),
		users:  make(map[int64]User),
	}
}

// txKey is per store so a transaction on one Store never unlocks another.
type txKey struct{ store *Store }

func (s *Store) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{store: s}).(bool)
	return ok
}

// lock serialises access unless ctx already holds the store through RunInTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTx holds the store exclusively while fn runs and restores the previous
// state when fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books := maps.Clone(s.books)
	orders := make(map[int64]models.Order, len(s.orders))
	for id, order := range s.orders {
		orders[id] = order.Clone()
	}
	nextOrderID := s.nextOrderID

	if err := fn(context.WithValue(ctx, txKey{store: s}, true)); err != nil {
		s.books = books
		s.orders = orders
		s.nextOrderID = nextOrderID
		return err
	}
	return nil
}

// AddBook stores book, assigning an id when it has none.
func (s *Store) AddBook(book models.Book) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == 0 {
		s.nextBookID++
		book.ID = s.nextBookID
	} else if book.ID > s.nextBookID {
		s.nextBookID = book.ID
	}
	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = now
	s.books[book.ID] = book
	return book
}

func (s *Store) AddUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// Book returns the current catalog record for id.
func (s *Store) Book(id int64) (models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[id]
	return book, ok
}

// OrderCount reports how many orders have been stored.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// SeedDemoCatalog loads a handful of books for local runs.
func SeedDemoCatalog(s *Store) {
	s.AddBook(models.Book{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", ISBN: "9780135957059", Price: decimal.RequireFromString("39.99"), StockQuantity: 25})
	s.AddBook(models.Book{Title: "The Go Programming Language", Author: "Alan Donovan", ISBN: "9780134190440", Price: decimal.RequireFromString("34.50"), StockQuantity: 10})
	s.AddBook(models.Book{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", ISBN: "9781449373320", Price: decimal.RequireFromString("45.00"), StockQuantity: 5})
}

type BookRepository struct{ store *Store }

func NewBookRepository(store *Store) *BookRepository { return &BookRepository{store: store} }

func (r *BookRepository) FindByID(ctx context.Context, id int64) (models.Book, error) {
	defer r.store.lock(ctx)()
	book, ok := r.store.books[id]
	if !ok {
		return models.Book{}, repositories.ErrNotFound
	}
	return book, nil
}

func (r *BookRepository) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	defer r.store.lock(ctx)()
	book, ok := r.store.books[id]
	if !ok || book.StockQuantity < quantity {
		return false, nil
	}
	book.StockQuantity -= quantity
	book.UpdatedAt = time.Now().UTC()
	r.store.books[id] = book
	return true, nil
}

type OrderRepository struct{ store *Store }

func NewOrderRepository(store *Store) *OrderRepository { return &OrderRepository{store: store} }

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	defer r.store.lock(ctx)()
	r.store.nextOrderID++
	order.ID = r.store.nextOrderID
	r.store.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	defer r.store.lock(ctx)()
	if _, ok := r.store.orders[order.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.store.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64, ownerID int64) (models.Order, error) {
	defer r.store.lock(ctx)()
	order, ok := r.store.orders[id]
	if !ok || (ownerID != repositories.AnyOwner && order.UserID != ownerID) {
		return models.Order{}, repositories.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	defer r.store.lock(ctx)()
	orders := []models.Order{}
	for _, order := range r.store.orders {
		if order.UserID == userID {
			orders = append(orders, order.Clone())
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	defer r.store.lock(ctx)()
	orders := make([]models.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		orders = append(orders, order.Clone())
	}
	sortNewestFirst(orders)
	return orders, nil
}

func sortNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

type StatsRepository struct{ store *Store }

func NewStatsRepository(store *Store) *StatsRepository { return &StatsRepository{store: store} }

func (r *StatsRepository) DashboardStats(ctx context.Context, recentLimit int) (models.DashboardStats, error) {
	defer r.store.lock(ctx)()

	stats := models.DashboardStats{
		TotalSales:  decimal.Zero,
		TotalOrders: len(r.store.orders),
		TotalUsers:  len(r.store.users),
		TotalBooks:  len(r.store.books),
	}

	orders := make([]models.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		if order.IsPaid {
			stats.TotalSales = stats.TotalSales.Add(order.TotalPrice)
		}
		orders = append(orders, order)
	}
	sortNewestFirst(orders)
	if recentLimit >= 0 && len(orders) > recentLimit {
		orders = orders[:recentLimit]
	}

	stats.RecentOrders = make([]models.RecentOrder, 0, len(orders))
	for _, order := range orders {
		recent := models.RecentOrder{
			ID:          order.ID,
			TotalPrice:  order.TotalPrice,
			OrderStatus: order.OrderStatus,
			CreatedAt:   order.CreatedAt,
		}
		if user, ok := r.store.users[order.UserID]; ok {
			recent.CustomerName = user.FirstName + " " + user.LastName
		}
		stats.RecentOrders = append(stats.RecentOrders, recent)
	}
	return stats, nil
}
