package storage

import (
	"sort"
	"sync"

	"github.com/clockface-studio/photoclock/internal/models"
)

type OrderStore struct {
	orders map[string]*models.Order
	mu     sync.RWMutex
}

func New() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*models.Order),
	}
}

func (s *OrderStore) Get(orderID string) (*models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, exists := s.orders[orderID]
	return order, exists
}

func (s *OrderStore) Set(orderID string, order *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[orderID] = order
}

func (s *OrderStore) GetAll() map[string]*models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*models.Order, len(s.orders))
	for k, v := range s.orders {
		result[k] = v
	}
	return result
}

// List returns every order, oldest first.
func (s *OrderStore) List() []*models.Order {
	all := s.GetAll()
	list := make([]*models.Order, 0, len(all))
	for _, o := range all {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (s *OrderStore) Delete(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
}
