// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	tenants      map[string]finance.Tenant
	order        []string // tenant ids in insertion order
	installments map[string][]finance.Installment
	index        map[string]key
}

// key locates an installment inside its tenant's schedule.
type key struct {
	TenantID string
	Pos      int
}

var _ finance.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		tenants:      make(map[string]finance.Tenant),
		installments: make(map[string][]finance.Installment),
		index:        make(map[string]key),
	}
}

// =============================================================================
// TENANTS
// =============================================================================

func (m *Memory) SaveTenant(_ context.Context, t finance.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, id string) (*finance.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, finance.ErrTenantNotFound
	}
	return &t, nil
}

func (m *Memory) ListTenants(_ context.Context) ([]finance.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]finance.Tenant, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.tenants[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) UpdateTenantStatus(_ context.Context, id string, status finance.TenantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return finance.ErrTenantNotFound
	}
	t.Status = status
	m.tenants[id] = t
	return nil
}

func (m *Memory) DeleteTenant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return finance.ErrTenantNotFound
	}
	delete(m.tenants, id)
	for i, tid := range m.order {
		if tid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, item := range m.installments[id] {
		delete(m.index, item.ID)
	}
	delete(m.installments, id)
	return nil
}

func (m *Memory) FindDuplicateTenant(_ context.Context, name, phone string) (*finance.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		t := m.tenants[id]
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) &&
			strings.TrimSpace(t.Phone) == strings.TrimSpace(phone) {
			return &t, nil
		}
	}
	return nil, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

// SaveInstallments adds a schedule atomically.
func (m *Memory) SaveInstallments(_ context.Context, items []finance.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveInstallments(items)
}

func (m *Memory) SaveTenantWithInstallments(_ context.Context, t finance.Tenant, items []finance.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if item.TenantID != t.ID {
			return finance.ErrTenantNotFound
		}
	}
	if _, exists := m.tenants[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.tenants[t.ID] = t
	return m.saveInstallments(items)
}

func (m *Memory) saveInstallments(items []finance.Installment) error {
	// Check all tenants first (atomic check)
	for _, item := range items {
		if _, ok := m.tenants[item.TenantID]; !ok {
			return finance.ErrTenantNotFound
		}
	}

	for _, item := range items {
		if k, exists := m.index[item.ID]; exists {
			m.installments[k.TenantID][k.Pos] = item
			continue
		}
		list := m.installments[item.TenantID]
		m.index[item.ID] = key{TenantID: item.TenantID, Pos: len(list)}
		m.installments[item.TenantID] = append(list, item)
	}
	return nil
}

func (m *Memory) ListInstallments(_ context.Context, tenantID string) ([]finance.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]finance.Installment, len(m.installments[tenantID]))
	copy(result, m.installments[tenantID])
	sort.SliceStable(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

func (m *Memory) ListAllInstallments(_ context.Context) ([]finance.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []finance.Installment
	for _, id := range m.order {
		items := append([]finance.Installment{}, m.installments[id]...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })
		result = append(result, items...)
	}
	return result, nil
}

func (m *Memory) GetInstallment(_ context.Context, id string) (*finance.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.index[id]
	if !ok {
		return nil, finance.ErrInstallmentNotFound
	}
	item := m.installments[k.TenantID][k.Pos]
	return &item, nil
}

func (m *Memory) RecordPayment(_ context.Context, p finance.PaymentRecording) (*finance.Installment, error) {
	if !p.Amount.IsPositive() {
		return nil, finance.ErrInvalidPayment
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.index[p.InstallmentID]
	if !ok {
		return nil, finance.ErrInstallmentNotFound
	}
	item := &m.installments[k.TenantID][k.Pos]
	if item.Paid {
		return nil, finance.ErrAlreadyPaid
	}

	at := p.At
	item.Paid = true
	item.PaidAmount = p.Amount
	item.RecordedBy = p.RecordedBy
	item.RecordedAt = &at
	item.ServiceCenter = p.ServiceCenter

	result := *item
	return &result, nil
}

func (m *Memory) EditPayment(_ context.Context, p finance.PaymentRecording) (*finance.Installment, error) {
	if !p.Amount.IsPositive() {
		return nil, finance.ErrInvalidPayment
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.index[p.InstallmentID]
	if !ok {
		return nil, finance.ErrInstallmentNotFound
	}
	item := &m.installments[k.TenantID][k.Pos]
	if !item.Paid {
		return nil, finance.ErrNotPaid
	}

	at := p.At
	item.PaidAmount = p.Amount
	if p.RecordedBy != "" {
		item.RecordedBy = p.RecordedBy
	}
	item.RecordedAt = &at

	result := *item
	return &result, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tenants = make(map[string]finance.Tenant)
	m.order = nil
	m.installments = make(map[string][]finance.Installment)
	m.index = make(map[string]key)
	return nil
}
