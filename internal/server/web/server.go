// Package web is the server-rendered HTML front end: routing, middleware,
// templates and the mapping from service errors to pages and redirects.
package web

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/auth"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/dmitrijs2005/typicaltools/internal/server/services"
	"github.com/dmitrijs2005/typicaltools/internal/server/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Users is the account side of services.UserService.
type Users interface {
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
	Register(ctx context.Context, username, password string) (*models.Account, error)
	IssueSession(account *models.Account) (string, error)
	VerifySession(token string) (*auth.Claims, error)
	RenewSession(claims *auth.Claims) (string, error)
	SessionTTL() time.Duration
}

type Catalog interface {
	List(ctx context.Context) ([]*models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, actor policy.Actor, in services.ProductInput) (*models.Product, error)
	UpdatePrice(ctx context.Context, actor policy.Actor, id int64, price decimal.Decimal) (*models.Product, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
}

type Comments interface {
	ListByProduct(ctx context.Context, productID int64) ([]*models.Comment, error)
	ListAll(ctx context.Context) ([]*models.Comment, error)
	Create(ctx context.Context, actor policy.Actor, productID int64, text string) (*models.Comment, error)
	CheckModifiable(ctx context.Context, actor policy.Actor, id int64, action policy.Action) (*models.Comment, error)
	Edit(ctx context.Context, actor policy.Actor, id int64, text string) (*models.Comment, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) (*models.Comment, error)
	CanModify(actor policy.Actor, c *models.Comment) bool
	Deadline(c *models.Comment) string
}

// Files is the warranty document store.
type Files interface {
	Save(ctx context.Context, requested string, content []byte) (string, error)
	List(ctx context.Context) ([]models.StoredFile, error)
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	BlankForm() ([]byte, string, error)
}

// Deps are the collaborators a Server needs. Health and Registry are optional.
type Deps struct {
	Users    Users
	Catalog  Catalog
	Comments Comments
	Files    Files
	Sessions session.Store
	Policy   *policy.Policy
	Logger   logging.Logger

	// Health is called by GET /health, typically a database ping.
	Health func(ctx context.Context) error
	// Registry receives the HTTP metrics; a private one is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	address         string
	shutdownTimeout time.Duration

	users    Users
	catalog  Catalog
	comments Comments
	files    Files
	sessions session.Store
	policy   *policy.Policy
	health   func(ctx context.Context) error
	logger   logging.Logger

	registry  *prometheus.Registry
	metrics   *Metrics
	templates map[string]*template.Template
	handler   http.Handler
}

func NewServer(address string, shutdownTimeout time.Duration, d Deps) (*Server, error) {
	if d.Users == nil || d.Catalog == nil || d.Comments == nil || d.Files == nil || d.Sessions == nil || d.Policy == nil {
		return nil, errors.New("web: missing dependency")
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		users:           d.Users,
		catalog:         d.Catalog,
		comments:        d.Comments,
		files:           d.Files,
		sessions:        d.Sessions,
		policy:          d.Policy,
		health:          d.Health,
		logger:          d.Logger.With("module", "web"),
		registry:        reg,
		metrics:         NewMetrics(reg),
		templates:       tmpl,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler is the full middleware-wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	app := http.NewServeMux()

	app.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, defaultRedirect, http.StatusFound)
	})

	app.HandleFunc("GET /products", s.listProducts)
	app.HandleFunc("GET /products/new", s.newProductForm)
	app.HandleFunc("POST /products/new", s.createProduct)
	app.HandleFunc("GET /products/{id}", s.showProduct)
	app.HandleFunc("GET /products/{id}/edit", s.editProductForm)
	app.HandleFunc("POST /products/{id}/edit", s.updateProductPrice)
	app.HandleFunc("POST /products/{id}/delete", s.deleteProduct)

	app.HandleFunc("GET /products/{id}/comments", s.listProductComments)
	app.HandleFunc("GET /products/{id}/comments/new", s.newCommentForm)
	app.HandleFunc("POST /products/{id}/comments/new", s.createComment)
	app.HandleFunc("GET /comments", s.listAllComments)
	app.HandleFunc("GET /comments/{id}/edit", s.editCommentForm)
	app.HandleFunc("POST /comments/{id}/edit", s.editComment)
	app.HandleFunc("GET /comments/{id}/delete", s.deleteCommentConfirm)
	app.HandleFunc("POST /comments/{id}/delete", s.deleteComment)

	app.HandleFunc("GET /login", s.loginForm)
	app.HandleFunc("POST /login", s.login)
	app.HandleFunc("POST /logout", s.logout)
	app.HandleFunc("GET /register", s.registerForm)
	app.HandleFunc("POST /register", s.register)

	app.HandleFunc("GET /warranty", s.warrantyIndex)
	app.HandleFunc("POST /warranty/upload", s.uploadFile)
	app.HandleFunc("GET /warranty/claim-form", s.downloadClaimForm)
	app.HandleFunc("GET /warranty/files/{name}", s.downloadFile)
	app.HandleFunc("GET /warranty/files/{name}/delete", s.deleteFileConfirm)
	app.HandleFunc("POST /warranty/files/{name}/delete", s.deleteFile)

	// Probes bypass sessions and CSRF so they don't mint cookies.
	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.healthCheck)
	root.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	root.Handle("/", s.withSession(s.withActor(s.withCSRF(s.metrics.Middleware(app)))))

	return s.withLogging(root)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Error(r.Context(), "health check failed", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
