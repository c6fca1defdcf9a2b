package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/dbx"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/comments"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/products"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the three tables, with the
// products→comments cascade the schema declares.
type fakeStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	comments map[int64]*models.Comment
	accounts map[string]*models.Account
	nextID   int64

	err      error // returned by every call when set
	seqReset int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[int64]*models.Product{},
		comments: map[int64]*models.Comment{},
		accounts: map[string]*models.Account{},
		nextID:   100,
	}
}

type fakeProducts struct {
	products.Repository
	s *fakeStore
}

func (f fakeProducts) List(context.Context) ([]*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	var out []*models.Product
	for _, p := range f.s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	p, ok := f.s.products[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	f.s.nextID++
	p.ID = f.s.nextID
	cp := *p
	f.s.products[p.ID] = &cp
	return p, nil
}

func (f fakeProducts) InsertWithID(_ context.Context, p *models.Product) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	if _, ok := f.s.products[p.ID]; !ok {
		cp := *p
		f.s.products[p.ID] = &cp
	}
	return nil
}

func (f fakeProducts) ResetIDSequence(context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.seqReset++
	return f.s.err
}

func (f fakeProducts) UpdatePrice(_ context.Context, id int64, price decimal.Decimal, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	p, ok := f.s.products[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Price, p.UpdatedAt = price, at
	return nil
}

func (f fakeProducts) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	if _, ok := f.s.products[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.products, id)
	for cid, c := range f.s.comments {
		if c.ProductID == id {
			delete(f.s.comments, cid)
		}
	}
	return nil
}

func (f fakeProducts) Count(context.Context) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return int64(len(f.s.products)), f.s.err
}

type fakeComments struct {
	comments.Repository
	s *fakeStore
}

func (f fakeComments) sorted(keep func(*models.Comment) bool) []*models.Comment {
	var out []*models.Comment
	for _, c := range f.s.comments {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeComments) ListByProduct(_ context.Context, productID int64) ([]*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.sorted(func(c *models.Comment) bool { return c.ProductID == productID }), f.s.err
}

func (f fakeComments) ListAll(context.Context) ([]*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.sorted(func(*models.Comment) bool { return true }), f.s.err
}

func (f fakeComments) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	c, ok := f.s.comments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	f.s.nextID++
	c.ID = f.s.nextID
	cp := *c
	f.s.comments[c.ID] = &cp
	return c, nil
}

func (f fakeComments) InsertWithID(_ context.Context, c *models.Comment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.comments[c.ID]; !ok {
		cp := *c
		f.s.comments[c.ID] = &cp
	}
	return f.s.err
}

func (f fakeComments) ResetIDSequence(context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.seqReset++
	return f.s.err
}

func (f fakeComments) UpdateText(_ context.Context, id int64, text string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	c, ok := f.s.comments[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.Text = text
	return nil
}

func (f fakeComments) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	if _, ok := f.s.comments[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.comments, id)
	return nil
}

type fakeAccounts struct {
	accounts.Repository
	s *fakeStore

	// skipPrecheck makes GetByUsername miss, as if a concurrent
	// registration landed between the pre-check and the insert.
	skipPrecheck bool
}

func (f fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	if _, ok := f.s.accounts[a.Username]; ok {
		return nil, common.ErrUsernameTaken
	}
	f.s.nextID++
	a.ID = f.s.nextID
	cp := *a
	f.s.accounts[a.Username] = &cp
	return a, nil
}

func (f fakeAccounts) CreateIfAbsent(ctx context.Context, a *models.Account) (bool, error) {
	_, err := f.Create(ctx, a)
	if err == common.ErrUsernameTaken {
		return false, nil
	}
	return err == nil, err
}

func (f fakeAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	a, ok := f.s.accounts[username]
	if !ok || f.skipPrecheck {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeRepoManager struct {
	s            *fakeStore
	skipPrecheck bool
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository {
	return fakeAccounts{s: m.s, skipPrecheck: m.skipPrecheck}
}
func (m *fakeRepoManager) Products(dbx.DBTX) products.Repository { return fakeProducts{s: m.s} }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository { return fakeComments{s: m.s} }
