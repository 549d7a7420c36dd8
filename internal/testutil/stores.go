// Package testutil holds in-memory store implementations for tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
)

type calls struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *calls) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]int{}
	}
	c.n[name]++
}

// Calls returns how many times the named method was invoked.
func (c *calls) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[name]
}

// TotalCalls returns the number of invocations across all methods.
func (c *calls) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, v := range c.n {
		total += v
	}
	return total
}

// AccountStore is an in-memory account store enforcing username and phone
// uniqueness.
type AccountStore struct {
	calls
	mu   sync.Mutex
	rows map[int64]entity.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{rows: map[int64]entity.Account{}}
}

// Put seeds a row without counting a call.
func (s *AccountStore) Put(a *entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[a.ID] = *a
}

func (s *AccountStore) conflict(a *entity.Account) error {
	for id, r := range s.rows {
		if id == a.ID {
			continue
		}
		if r.Username == a.Username {
			return entity.ErrUsernameTaken
		}
		if r.Phone == a.Phone {
			return entity.ErrPhoneTaken
		}
	}
	return nil
}

func (s *AccountStore) Create(_ context.Context, a *entity.Account) error {
	s.hit("Create")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[a.ID]; ok {
		return entity.ErrAccountExists
	}
	if err := s.conflict(a); err != nil {
		return err
	}
	s.rows[a.ID] = *a
	return nil
}

func (s *AccountStore) find(match func(entity.Account) bool) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if match(r) {
			cp := r
			return &cp, nil
		}
	}
	return nil, entity.ErrAccountNotFound
}

func (s *AccountStore) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	s.hit("GetByID")
	return s.find(func(a entity.Account) bool { return a.ID == id })
}

func (s *AccountStore) GetByUsername(_ context.Context, username string) (*entity.Account, error) {
	s.hit("GetByUsername")
	return s.find(func(a entity.Account) bool { return a.Username == username })
}

func (s *AccountStore) GetByPhone(_ context.Context, phone string) (*entity.Account, error) {
	s.hit("GetByPhone")
	return s.find(func(a entity.Account) bool { return a.Phone == phone })
}

func (s *AccountStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.hit("ExistsByUsername")
	_, err := s.find(func(a entity.Account) bool { return a.Username == username })
	return err == nil, nil
}

func (s *AccountStore) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	s.hit("ExistsByPhone")
	_, err := s.find(func(a entity.Account) bool { return a.Phone == phone })
	return err == nil, nil
}

func (s *AccountStore) Save(_ context.Context, a *entity.Account) error {
	s.hit("Save")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[a.ID]; !ok {
		return entity.ErrAccountNotFound
	}
	if err := s.conflict(a); err != nil {
		return err
	}
	s.rows[a.ID] = *a
	return nil
}

func (s *AccountStore) Delete(_ context.Context, id int64) error {
	s.hit("Delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return entity.ErrAccountNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *AccountStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	s.hit("DeleteByIDs")
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *AccountStore) list(match func(entity.Account) bool) []*entity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Account
	for _, r := range s.rows {
		if match(r) {
			cp := r
			out = append(out, &cp)
		}
	}
	return out
}

func (s *AccountStore) ListByStatusCreatedBefore(_ context.Context, status entity.Status, before time.Time) ([]*entity.Account, error) {
	s.hit("ListByStatusCreatedBefore")
	return s.list(func(a entity.Account) bool { return a.Status == status && a.CreatedAt.Before(before) }), nil
}

func (s *AccountStore) ListByStatusUpdatedBefore(_ context.Context, status entity.Status, before time.Time) ([]*entity.Account, error) {
	s.hit("ListByStatusUpdatedBefore")
	return s.list(func(a entity.Account) bool { return a.Status == status && a.UpdatedAt.Before(before) }), nil
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// RefreshTokenStore is an in-memory refresh token store keeping one token
// per account.
type RefreshTokenStore struct {
	calls
	mu     sync.Mutex
	byTok  map[string]credential.RefreshToken
	byAcct map[int64]string
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{byTok: map[string]credential.RefreshToken{}, byAcct: map[int64]string{}}
}

// Put seeds a token without counting a call.
func (s *RefreshTokenStore) Put(t *credential.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(t)
}

func (s *RefreshTokenStore) replace(t *credential.RefreshToken) {
	if old, ok := s.byAcct[t.AccountID]; ok {
		delete(s.byTok, old)
	}
	s.byTok[t.Token] = *t
	s.byAcct[t.AccountID] = t.Token
}

func (s *RefreshTokenStore) Save(_ context.Context, t *credential.RefreshToken) error {
	s.hit("Save")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(t)
	return nil
}

func (s *RefreshTokenStore) FindByToken(_ context.Context, token string) (*credential.RefreshToken, error) {
	s.hit("FindByToken")
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byTok[token]
	if !ok {
		return nil, credential.ErrRefreshTokenNotFound
	}
	return &t, nil
}

func (s *RefreshTokenStore) Delete(_ context.Context, token string) error {
	s.hit("Delete")
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byTok[token]; ok {
		delete(s.byTok, token)
		delete(s.byAcct, t.AccountID)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteByAccount(_ context.Context, accountID int64) error {
	s.hit("DeleteByAccount")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropAccount(accountID)
	return nil
}

func (s *RefreshTokenStore) DeleteByAccounts(_ context.Context, accountIDs []int64) (int64, error) {
	s.hit("DeleteByAccounts")
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range accountIDs {
		if s.dropAccount(id) {
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	s.hit("DeleteExpired")
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for _, t := range s.byTok {
		if t.Expired(now) && s.dropAccount(t.AccountID) {
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) dropAccount(id int64) bool {
	tok, ok := s.byAcct[id]
	if !ok {
		return false
	}
	delete(s.byAcct, id)
	delete(s.byTok, tok)
	return true
}

// ForAccount returns the live tokens held by an account.
func (s *RefreshTokenStore) ForAccount(id int64) []credential.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []credential.RefreshToken
	for _, t := range s.byTok {
		if t.AccountID == id {
			out = append(out, t)
		}
	}
	return out
}
