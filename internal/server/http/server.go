// Package httpserver is the JSON API of the signing server, built on gin.
package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/service"
)

// Auth registers, logs in and verifies tokens.
type Auth interface {
	Authenticator
	Register(ctx context.Context, name, email, password string) (uuid.UUID, error)
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
}

// Documents manages uploaded PDFs.
type Documents interface {
	Upload(ctx context.Context, cu model.CurrentUser, in service.UploadInput) (*model.Document, error)
	List(ctx context.Context, cu model.CurrentUser) ([]model.Document, error)
	Open(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (*model.Document, []byte, error)
	Delete(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error
	MarkReady(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error
	Metadata(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (service.Metadata, error)
	Page(ctx context.Context, cu model.CurrentUser, id uuid.UUID, page int) ([]byte, error)
}

// Fields stores field layouts.
type Fields interface {
	ReplaceAll(ctx context.Context, cu model.CurrentUser, documentID uuid.UUID, p model.PositionsPayload) (int, error)
}

// Requests manages signing requests.
type Requests interface {
	Create(ctx context.Context, cu model.CurrentUser, in service.CreateRequestsInput) ([]model.SigningRequest, error)
	List(ctx context.Context, cu model.CurrentUser, documentID *uuid.UUID) ([]model.SigningRequest, error)
	ListMine(ctx context.Context, cu model.CurrentUser) ([]model.SigningRequest, error)
	Get(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (*model.SigningRequest, error)
	ForceSign(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error
	Delete(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error
}

// Signer stamps a document for a pending request.
type Signer interface {
	Sign(ctx context.Context, cu model.CurrentUser, in service.SignInput) (model.SignedOutput, error)
}

// Summaries returns or regenerates AI summaries.
type Summaries interface {
	Get(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (string, error)
	Regenerate(ctx context.Context, cu model.CurrentUser, id uuid.UUID, opts service.SummaryOptions) (string, error)
}

// Users is the admin view of accounts.
type Users interface {
	List(ctx context.Context, cu model.CurrentUser) ([]model.User, error)
	SetRole(ctx context.Context, cu model.CurrentUser, id uuid.UUID, role string) error
}

// Deps are the services behind the routes.
type Deps struct {
	Auth      Auth
	Documents Documents
	Fields    Fields
	Requests  Requests
	Signer    Signer
	Summaries Summaries
	Users     Users
}

// Server wires routes onto a gin engine.
type Server struct {
	engine    *gin.Engine
	log       *zap.Logger
	d         Deps
	maxUpload int64
}

// New builds the engine and registers every route. maxUpload bounds the PDF
// part of an upload.
func New(log *zap.Logger, d Deps, maxUpload int64) *Server {
	e := gin.New()
	_ = e.SetTrustedProxies(nil)
	e.Use(RequestID(), Logging(log), Recover(log))

	s := &Server{engine: e, log: log, d: d, maxUpload: maxUpload}
	s.routes()
	return s
}

// Handler exposes the engine for http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "signator"})
	})

	api := s.engine.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	user := api.Group("", RequireUser(s.d.Auth))
	user.GET("/documents/:id/file", s.documentFile)
	user.GET("/documents/:id/summary", s.documentSummary)
	user.POST("/documents/sign", s.sign)
	user.GET("/signing-requests", s.myRequests)
	user.GET("/signing-requests/:id", s.getRequest)

	// Owner or admin; checked by the service.
	user.DELETE("/admin/documents/:id", s.deleteDocument)
	user.PATCH("/admin/documents/:id/ready", s.markReady)

	admin := user.Group("/admin", RequireAdmin())
	admin.GET("/documents", s.listDocuments)
	admin.POST("/documents", s.uploadDocument)
	admin.GET("/documents/:id/metadata", s.documentMetadata)
	admin.GET("/documents/:id/page", s.documentPage)
	admin.POST("/documents/:id/fields", s.saveFields)
	admin.POST("/documents/:id/summary", s.regenerateSummary)

	admin.GET("/signing-requests", s.listRequests)
	admin.POST("/signing-requests", s.createRequests)
	admin.PATCH("/signing-requests/:id/sign", s.forceSign)
	admin.DELETE("/signing-requests/:id", s.deleteRequest)

	admin.GET("/users", s.listUsers)
	admin.PATCH("/users/:id/role", s.setRole)
}

// caller returns the authenticated user set by RequireUser.
func caller(c *gin.Context) model.CurrentUser {
	u, _ := UserFromCtx(c.Request.Context())
	return u
}
