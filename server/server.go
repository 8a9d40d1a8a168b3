package server

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest/to"
	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lestrrat-go/jwx/v2/jwk"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/signet-id/signet/credential"
	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/guard"
	"github.com/signet-id/signet/identity"
	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/issuer"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
	"github.com/signet-id/signet/schema"
)

const (
	scopeAccess  = "signet.access"
	scopeRefresh = "signet.refresh"

	accessTokenTTL  = time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
	challengeTTL    = 5 * time.Minute
)

type Server struct {
	httpd      *http.Server
	echo       *echo.Echo
	db         *gorm.DB
	logger     *slog.Logger
	config     *config
	privateKey *ecdsa.PrivateKey
	serviceKey *indigocrypto.PrivateKeyK256

	evtman      *events.Manager
	guard       *guard.Guard
	identities  *identity.Store
	credentials *credential.Store
	issuers     *issuer.Directory
	schemas     *schema.Store
}

type Args struct {
	Addr           string
	DbName         string
	Logger         *slog.Logger
	Version        string
	Did            string
	Hostname       string
	Owner          string
	JwkPath        string
	ServiceKeyPath string
}

type config struct {
	Version  string
	Did      string
	Hostname string
	Owner    common.Address
}

type CustomValidator struct {
	validator *validator.Validate
}

type ValidationError struct {
	error
	Field string
	Tag   string
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		var validateErrors validator.ValidationErrors
		if errors.As(err, &validateErrors) && len(validateErrors) > 0 {
			first := validateErrors[0]
			return ValidationError{
				error: err,
				Field: first.Field(),
				Tag:   first.Tag(),
			}
		}

		return err
	}

	return nil
}

func (s *Server) handleSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(e echo.Context) error {
		authheader := e.Request().Header.Get("authorization")
		if authheader == "" {
			return e.JSON(401, map[string]string{"error": "Unauthorized"})
		}

		pts := strings.Split(authheader, " ")
		if len(pts) != 2 {
			return helpers.ServerError(e, nil)
		}

		tokenstr := pts[1]

		token, err := new(jwt.Parser).Parse(tokenstr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unsupported signing method: %v", t.Header["alg"])
			}

			return s.privateKey.Public(), nil
		})
		if err != nil {
			s.logger.Error("error parsing jwt", "error", err)
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		}

		isRefresh := e.Request().URL.Path == "/v1/auth/refresh"
		scope, _ := claims["scope"].(string)

		if isRefresh && scope != scopeRefresh {
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		} else if !isRefresh && scope != scopeAccess {
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		}

		table := "tokens"
		if isRefresh {
			table = "refresh_tokens"
		}

		type Result struct {
			Found bool
		}
		var result Result
		if err := s.db.Raw("SELECT EXISTS(SELECT 1 FROM "+table+" WHERE token = ?) AS found", tokenstr).Scan(&result).Error; err != nil {
			s.logger.Error("error getting token from db", "error", err)
			return helpers.ServerError(e, nil)
		}

		if !result.Found {
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		}

		exp, ok := claims["exp"].(float64)
		if !ok {
			s.logger.Error("error getting exp from token")
			return helpers.ServerError(e, nil)
		}

		if exp < float64(time.Now().UTC().Unix()) {
			return helpers.InputError(e, to.StringPtr("ExpiredToken"))
		}

		sub, _ := claims["sub"].(string)
		addr, ok := registry.ParseAddr(sub)
		if !ok {
			return helpers.InputError(e, to.StringPtr("InvalidToken"))
		}

		e.Set("address", registry.AddrKey(addr))
		e.Set("caller", addr)
		e.Set("token", tokenstr)

		if err := next(e); err != nil {
			e.Error(err)
		}

		return nil
	}
}

func New(args *Args) (*Server, error) {
	if args.Addr == "" {
		return nil, fmt.Errorf("addr must be set")
	}

	if args.DbName == "" {
		return nil, fmt.Errorf("db name must be set")
	}

	if args.Did == "" {
		return nil, fmt.Errorf("registry did must be set")
	}

	if _, err := syntax.ParseDID(args.Did); err != nil {
		return nil, fmt.Errorf("error parsing registry did: %w", err)
	}

	if args.Hostname == "" {
		return nil, fmt.Errorf("registry hostname must be set")
	}

	owner, ok := registry.ParseAddr(args.Owner)
	if !ok {
		return nil, fmt.Errorf("owner address must be a valid hex address")
	}

	if args.Logger == nil {
		args.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	}

	e := echo.New()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Pre(slogecho.New(args.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"*"},
		AllowMethods:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           100_000_000,
	}))

	vdtor := validator.New()
	vdtor.RegisterValidation("did", func(fl validator.FieldLevel) bool {
		if _, err := syntax.ParseDID(fl.Field().String()); err != nil {
			return false
		}
		return true
	})
	vdtor.RegisterValidation("eth-address", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})

	e.Validator = &CustomValidator{validator: vdtor}

	httpd := &http.Server{
		Addr:    args.Addr,
		Handler: e,
	}

	db, err := gorm.Open(sqlite.Open(args.DbName), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	jwkbytes, err := os.ReadFile(args.JwkPath)
	if err != nil {
		return nil, err
	}

	key, err := jwk.ParseKey(jwkbytes)
	if err != nil {
		return nil, err
	}

	var pkey ecdsa.PrivateKey
	if err := key.Raw(&pkey); err != nil {
		return nil, err
	}

	skbytes, err := os.ReadFile(args.ServiceKeyPath)
	if err != nil {
		return nil, err
	}

	serviceKey, err := indigocrypto.ParsePrivateBytesK256(skbytes)
	if err != nil {
		return nil, err
	}

	args.Logger.Info("migrating...")

	db.AutoMigrate(
		&models.Account{},
		&models.Token{},
		&models.RefreshToken{},
		&models.AuthChallenge{},
		&models.Document{},
		&models.Credential{},
		&models.Claim{},
		&models.Issuer{},
		&models.CredentialType{},
		&models.Counter{},
		&models.Setting{},
		&models.Event{},
		&models.Schema{},
	)

	evtman := events.NewManager(args.Logger)

	grd, err := guard.New(&guard.Args{
		Db:     db,
		Logger: args.Logger,
		Events: evtman,
		Owner:  owner,
	})
	if err != nil {
		return nil, err
	}

	identities, err := identity.NewStore(&identity.Args{
		Db:     db,
		Logger: args.Logger,
		Guard:  grd,
		Events: evtman,
	})
	if err != nil {
		return nil, err
	}

	issuers, err := issuer.NewDirectory(&issuer.Args{
		Db:     db,
		Logger: args.Logger,
		Guard:  grd,
		Events: evtman,
	})
	if err != nil {
		return nil, err
	}

	schemas, err := schema.NewStore(&schema.Args{
		Db:     db,
		Logger: args.Logger,
		Guard:  grd,
		Events: evtman,
	})
	if err != nil {
		return nil, err
	}

	credentials, err := credential.NewStore(&credential.Args{
		Db:        db,
		Logger:    args.Logger,
		Guard:     grd,
		Events:    evtman,
		Directory: issuers,
		Schemas:   schemas,
	})
	if err != nil {
		return nil, err
	}

	if err := issuers.Seed(context.Background()); err != nil {
		return nil, err
	}

	s := &Server{
		httpd:      httpd,
		echo:       e,
		logger:     args.Logger,
		db:         db,
		privateKey: &pkey,
		serviceKey: serviceKey,
		config: &config{
			Version:  args.Version,
			Did:      args.Did,
			Hostname: args.Hostname,
			Owner:    owner,
		},
		evtman:      evtman,
		guard:       grd,
		identities:  identities,
		credentials: credentials,
		issuers:     issuers,
		schemas:     schemas,
	}

	return s, nil
}

func (s *Server) addRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/.well-known/did.json", s.handleWellKnown)
	s.echo.GET("/robots.txt", s.handleRobots)

	// public
	s.echo.POST("/v1/auth/challenge", s.handleAuthChallenge)
	s.echo.POST("/v1/auth/session", s.handleAuthCreateSession)

	s.echo.GET("/v1/status", s.handleStatus)
	s.echo.GET("/v1/identity/resolve", s.handleIdentityResolve)
	s.echo.GET("/v1/identity/active", s.handleIdentityActive)
	s.echo.GET("/v1/identity/count", s.handleIdentityCount)
	s.echo.GET("/v1/credentials/get", s.handleCredentialGet)
	s.echo.GET("/v1/credentials/verify", s.handleCredentialVerify)
	s.echo.GET("/v1/credentials/claim", s.handleCredentialClaim)
	s.echo.GET("/v1/credentials/claims", s.handleCredentialClaims)
	s.echo.GET("/v1/credentials/subject", s.handleCredentialSubject)
	s.echo.GET("/v1/credentials/count", s.handleCredentialCount)
	s.echo.GET("/v1/issuers/get", s.handleIssuerGet)
	s.echo.GET("/v1/issuers/types", s.handleIssuerTypes)
	s.echo.GET("/v1/schemas/get", s.handleSchemaGet)
	s.echo.GET("/v1/events", s.handleEventsList)
	s.echo.GET("/v1/events/subscribe", s.handleEventsSubscribe)

	// authed
	s.echo.GET("/v1/auth/session", s.handleAuthGetSession, s.handleSessionMiddleware)
	s.echo.POST("/v1/auth/refresh", s.handleAuthRefreshSession, s.handleSessionMiddleware)
	s.echo.POST("/v1/auth/logout", s.handleAuthDeleteSession, s.handleSessionMiddleware)

	s.echo.POST("/v1/identity/create", s.handleIdentityCreate, s.handleSessionMiddleware)
	s.echo.POST("/v1/identity/update", s.handleIdentityUpdate, s.handleSessionMiddleware)
	s.echo.POST("/v1/identity/deactivate", s.handleIdentityDeactivate, s.handleSessionMiddleware)
	s.echo.POST("/v1/identity/addVerificationMethod", s.handleIdentityAddVerificationMethod, s.handleSessionMiddleware)
	s.echo.POST("/v1/identity/addServiceEndpoint", s.handleIdentityAddServiceEndpoint, s.handleSessionMiddleware)

	s.echo.POST("/v1/credentials/issue", s.handleCredentialIssue, s.handleSessionMiddleware)
	s.echo.POST("/v1/credentials/issueWithZkProof", s.handleCredentialIssueZK, s.handleSessionMiddleware)
	s.echo.POST("/v1/credentials/suspend", s.handleCredentialSuspend, s.handleSessionMiddleware)
	s.echo.POST("/v1/credentials/revoke", s.handleCredentialRevoke, s.handleSessionMiddleware)
	s.echo.POST("/v1/credentials/reactivate", s.handleCredentialReactivate, s.handleSessionMiddleware)

	// owner surface; the stores enforce ownership
	s.echo.POST("/v1/issuers/authorize", s.handleIssuerAuthorize, s.handleSessionMiddleware)
	s.echo.POST("/v1/issuers/deauthorize", s.handleIssuerDeauthorize, s.handleSessionMiddleware)
	s.echo.POST("/v1/issuers/setType", s.handleIssuerSetType, s.handleSessionMiddleware)
	s.echo.POST("/v1/admin/pause", s.handleAdminPause, s.handleSessionMiddleware)
	s.echo.POST("/v1/admin/unpause", s.handleAdminUnpause, s.handleSessionMiddleware)
	s.echo.POST("/v1/schemas/register", s.handleSchemaRegister, s.handleSessionMiddleware)
}

func (s *Server) Serve(ctx context.Context) error {
	s.addRoutes()

	s.logger.Info("starting signet")

	go func() {
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()

	<-ctx.Done()

	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpd.Shutdown(shutdownCtx)
}
