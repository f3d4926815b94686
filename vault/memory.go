package vault

import (
	"math/big"
	"sync"

	"github.com/rustyeddy/custodian/oracle"
)

type key struct {
	user, asset string
}

// Memory is an in-process Store for demos and tests. Same contract as the
// SQL store, nothing survives a restart.
type Memory struct {
	mu     sync.Mutex
	vaults map[key]Vault
	total  *big.Int
	descs  map[string]oracle.DescriptorRecord
}

func NewMemory() *Memory {
	return &Memory{
		vaults: make(map[key]Vault),
		total:  new(big.Int),
		descs:  make(map[string]oracle.DescriptorRecord),
	}
}

func (m *Memory) Get(user, asset string) (Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(user, asset).Clone(), nil
}

func (m *Memory) getLocked(user, asset string) Vault {
	if v, ok := m.vaults[key{user, asset}]; ok {
		return v
	}
	return Zero(user, asset)
}

func (m *Memory) Credit(user, asset string, amount *big.Int) (Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.getLocked(user, asset).Clone()
	v.Balance.Add(v.Balance, amount)
	v.DepositCount++
	m.vaults[key{user, asset}] = v
	return v.Clone(), nil
}

func (m *Memory) Debit(user, asset string, amount *big.Int) (Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.getLocked(user, asset).Clone()
	v.Balance.Sub(v.Balance, amount)
	v.WithdrawalCount++
	m.vaults[key{user, asset}] = v
	return v.Clone(), nil
}

func (m *Memory) Write(v Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaults[key{v.User, v.Asset}] = v.Clone()
	return nil
}

func (m *Memory) Total() (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.total), nil
}

func (m *Memory) SetTotal(total *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total.Set(total)
	return nil
}

func (m *Memory) Descriptors() ([]oracle.DescriptorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]oracle.DescriptorRecord, 0, len(m.descs))
	for _, rec := range m.descs {
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) SaveDescriptor(rec oracle.DescriptorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descs[rec.Asset] = rec
	return nil
}

func (m *Memory) Close() error { return nil }
