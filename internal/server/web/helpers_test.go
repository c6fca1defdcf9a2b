package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/cryptox"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/auth"
	"github.com/dmitrijs2005/typicaltools/internal/server/filestore"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/dmitrijs2005/typicaltools/internal/server/services"
	"github.com/dmitrijs2005/typicaltools/internal/server/session"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("web-test-secret")
	testStart  = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
)

// ---- fakes ----

type fakeUsers struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	ttl      time.Duration
	err      error
}

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[username]
	if !ok || a.PasswordHash != password {
		return nil, common.ErrorUnauthorized
	}
	return a, nil
}

func (f *fakeUsers) Register(_ context.Context, username, password string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username == "" {
		return nil, common.ErrValidation
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password is longer than %d bytes", common.ErrValidation, auth.MaxPasswordBytes)
	}
	if _, ok := f.accounts[username]; ok {
		return nil, common.ErrUsernameTaken
	}
	a := &models.Account{Username: username, PasswordHash: password, Role: models.RoleGuest}
	f.accounts[username] = a
	return a, nil
}

func (f *fakeUsers) IssueSession(a *models.Account) (string, error) {
	return auth.GenerateToken(a.Username, a.Role, testSecret, f.ttl)
}

func (f *fakeUsers) VerifySession(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, testSecret)
}

func (f *fakeUsers) RenewSession(c *auth.Claims) (string, error) {
	return auth.GenerateToken(c.Username, c.Role, testSecret, f.ttl)
}

func (f *fakeUsers) SessionTTL() time.Duration { return f.ttl }

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	nextID   int64
	policy   *policy.Policy
	clock    clock.Clock
}

func (f *fakeCatalog) List(context.Context) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Product
	for _, p := range f.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) Create(_ context.Context, actor policy.Actor, in services.ProductInput) (*models.Product, error) {
	if err := f.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.ErrValidation
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &models.Product{ID: f.nextID, Name: in.Name, Price: in.Price, Description: in.Description, UpdatedAt: f.clock.Now()}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalog) UpdatePrice(_ context.Context, actor policy.Actor, id int64, price decimal.Decimal) (*models.Product, error) {
	if err := f.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.Price, p.UpdatedAt = price, f.clock.Now()
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) Delete(_ context.Context, actor policy.Actor, id int64) error {
	if err := f.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeComments struct {
	mu        sync.Mutex
	comments  map[int64]*models.Comment
	nextID    int64
	catalog   *fakeCatalog
	policy    *policy.Policy
	clock     clock.Clock
	sanitizer *bluemonday.Policy
}

func (f *fakeComments) ListByProduct(ctx context.Context, productID int64) ([]*models.Comment, error) {
	if _, err := f.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}
	all, _ := f.ListAll(ctx)
	var out []*models.Comment
	for _, c := range all {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeComments) ListAll(context.Context) ([]*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Comment
	for _, c := range f.comments {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeComments) get(id int64) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) clean(text string) (string, error) {
	clean := strings.TrimSpace(f.sanitizer.Sanitize(text))
	if clean == "" {
		return "", common.ErrValidation
	}
	return clean, nil
}

func (f *fakeComments) Create(ctx context.Context, actor policy.Actor, productID int64, text string) (*models.Comment, error) {
	clean, err := f.clean(text)
	if err != nil {
		return nil, err
	}
	if _, err := f.catalog.Get(ctx, productID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &models.Comment{ID: f.nextID, ProductID: productID, Text: clean, CreatedAt: f.clock.Now(), SessionID: actor.SessionID}
	f.comments[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeComments) CheckModifiable(_ context.Context, actor policy.Actor, id int64, action policy.Action) (*models.Comment, error) {
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	return c, f.policy.Authorize(actor, action, c)
}

func (f *fakeComments) Edit(ctx context.Context, actor policy.Actor, id int64, text string) (*models.Comment, error) {
	c, err := f.CheckModifiable(ctx, actor, id, policy.EditComment)
	if err != nil {
		return c, err
	}
	clean, err := f.clean(text)
	if err != nil {
		return c, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[id].Text = clean
	c.Text = clean
	return c, nil
}

func (f *fakeComments) Delete(ctx context.Context, actor policy.Actor, id int64) (*models.Comment, error) {
	c, err := f.CheckModifiable(ctx, actor, id, policy.DeleteComment)
	if err != nil {
		return c, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.comments, id)
	return c, nil
}

func (f *fakeComments) CanModify(actor policy.Actor, c *models.Comment) bool {
	return f.policy.Allowed(actor, policy.EditComment, c)
}

func (f *fakeComments) Deadline(c *models.Comment) string {
	return f.policy.Deadline(c).Format("15:04:05")
}

// ---- harness ----

type testEnv struct {
	server   *Server
	users    *fakeUsers
	catalog  *fakeCatalog
	comments *fakeComments
	files    *filestore.Store
	uploads  string
	clock    *clock.MockClock
	sessions *session.MemoryStore
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewMockClock(testStart)
	pol := policy.New(10*time.Minute, clk)

	users := &fakeUsers{
		accounts: map[string]*models.Account{
			"admin": {ID: 1, Username: "admin", PasswordHash: "Password_1", Role: models.RoleAdmin},
			"guest": {ID: 2, Username: "guest", PasswordHash: "guestpw", Role: models.RoleGuest},
		},
		ttl: 10 * time.Minute,
	}
	catalog := &fakeCatalog{
		products: map[int64]*models.Product{
			12345: {ID: 12345, Name: "Generic Headphones", Price: decimal.RequireFromString("84.99"), Description: "bluetooth headphones", UpdatedAt: testStart},
		},
		nextID: 12345,
		policy: pol,
		clock:  clk,
	}
	comments := &fakeComments{
		comments:  map[int64]*models.Comment{},
		catalog:   catalog,
		policy:    pol,
		clock:     clk,
		sanitizer: bluemonday.StrictPolicy(),
	}

	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	backend, err := filestore.NewDiskBackend(uploads)
	require.NoError(t, err)
	env, err := cryptox.NewEnvelope([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	form := filepath.Join(dir, "warranty_claim_form.docx")
	require.NoError(t, os.WriteFile(form, []byte("blank form"), 0o600))
	files := filestore.NewStore(backend, env, form, logging.Nop{})

	sessions := session.NewMemoryStore(time.Hour, clk)

	srv, err := NewServer("127.0.0.1:0", time.Second, Deps{
		Users:    users,
		Catalog:  catalog,
		Comments: comments,
		Files:    files,
		Sessions: sessions,
		Policy:   pol,
		Logger:   logging.Nop{},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		server: srv, users: users, catalog: catalog, comments: comments,
		files: files, uploads: uploads, clock: clk, sessions: sessions, http: ts,
	}
}

type testClient struct {
	t    *testing.T
	base string
	c    *http.Client
}

func (e *testEnv) client(t *testing.T) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:    t,
		base: e.http.URL,
		c: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (tc *testClient) cookie(name string) string {
	u, _ := url.Parse(tc.base)
	for _, c := range tc.c.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (tc *testClient) do(req *http.Request) (*http.Response, string) {
	tc.t.Helper()
	resp, err := tc.c.Do(req)
	require.NoError(tc.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(tc.t, err)
	return resp, string(b)
}

func (tc *testClient) get(path string) (*http.Response, string) {
	tc.t.Helper()
	req, err := http.NewRequest(http.MethodGet, tc.base+path, nil)
	require.NoError(tc.t, err)
	return tc.do(req)
}

// post fetches a page first when needed so the CSRF cookie exists.
func (tc *testClient) post(path string, form url.Values) (*http.Response, string) {
	tc.t.Helper()
	if tc.cookie(common.CSRFCookieName) == "" {
		tc.get("/products")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set(common.CSRFFieldName, tc.cookie(common.CSRFCookieName))

	req, err := http.NewRequest(http.MethodPost, tc.base+path, strings.NewReader(form.Encode()))
	require.NoError(tc.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req)
}

func (tc *testClient) login(username, password string) {
	tc.t.Helper()
	resp, _ := tc.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(tc.t, http.StatusSeeOther, resp.StatusCode)
	require.NotEmpty(tc.t, tc.cookie(common.AuthCookieName))
}
