package taskboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"taskboard-api/internal/authmw"
)

var (
	config Config
	engine *gin.Engine
	pool   *pgxpool.Pool
)

func initDBConn() {
	var err error
	pool, err = pgxpool.New(
		context.Background(),
		fmt.Sprintf(
			"postgres://%s:%s@%s/%s?sslmode=disable",
			config.DBUser,
			config.DBPassword,
			config.DBAddress,
			config.DBName,
		),
	)
	if err != nil {
		log.Fatalf("could not connect to the database: %v", err)
	}

	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatalf("failed to ping the db: %v", err)
	}

	b, err := os.ReadFile(config.InitSQLPath)
	if err != nil {
		log.Fatalf("failed to open and read the init sql file: %v", err)
	}
	sql := string(b)
	// apply init sql script
	log.Printf("executing initialization script...")
	_, err = pool.Exec(context.Background(), sql)
	if err != nil {
		log.Fatalf("failed to execute init sql: %v", err)
	}
}

func setCors() {
	corsconfig := cors.DefaultConfig()
	corsconfig.AllowOrigins = config.AllowedOrigins
	corsconfig.AllowMethods = config.AllowedMethods
	corsconfig.AllowHeaders = config.AllowedHeaders
	engine.Use(cors.New(corsconfig))
}

// registerTagNames makes the validator report fields by their json names, so
// binding failures surface field-scoped errors the client can act on.
func registerTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func mustInitAuth(s *apiServer) *authmw.TokenAuth {
	if config.AuthMode == "keycloak" {
		kc, err := authmw.NewKeycloakService(config.AuthAddress, config.Realm, config.ClientID, config.ClientSecret)
		if err != nil {
			panic(err)
		}
		s.idp = &keycloakIdentity{store: s.store, kc: kc}

		issuer := config.Issuer
		if issuer == "" {
			issuer = fmt.Sprintf("http://%s/realms/%s", config.AuthAddress, config.Realm)
		}
		jwksURL := fmt.Sprintf("http://%s/realms/%s/protocol/openid-connect/certs", config.AuthAddress, config.Realm)

		a, err := authmw.NewKeycloakAuth(jwksURL, issuer, config.Audience, &storeResolver{store: s.store})
		if err != nil {
			panic(err)
		}
		return a
	}

	s.idp = &localIdentity{
		store:  s.store,
		issuer: authmw.NewTokenIssuer([]byte(config.JWTSecret), config.TokenTTL),
	}
	return authmw.NewLocalAuth([]byte(config.JWTSecret))
}

func setRoutes(e *gin.Engine, s *apiServer, auth *authmw.TokenAuth) {
	root := e.Group("/")
	{
		root.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "alive"})
		})
		root.POST("/registration", s.handleRegister)
		root.POST("/login", s.handleLogin)
	}

	// everything below requires a resolved principal
	secure := e.Group("/")
	secure.Use(auth.RequireUser())
	{
		secure.GET("/boards", s.handleListBoards)
		secure.POST("/boards", s.handleCreateBoard)
		secure.GET("/boards/email-check", s.handleEmailCheck)
		secure.GET("/boards/:boardid", s.handleGetBoard)
		secure.PATCH("/boards/:boardid", s.handleUpdateBoard)
		secure.DELETE("/boards/:boardid", s.handleDeleteBoard)

		secure.POST("/tasks", s.handleCreateTask)
		secure.GET("/tasks/assigned-to-me", s.handleAssignedTasks)
		secure.GET("/tasks/reviewing", s.handleReviewingTasks)
		secure.PATCH("/tasks/:taskid", s.handleUpdateTask)
		secure.DELETE("/tasks/:taskid", s.handleDeleteTask)

		secure.GET("/tasks/:taskid/comments", s.handleListComments)
		secure.POST("/tasks/:taskid/comments", s.handleCreateComment)
		secure.DELETE("/tasks/:taskid/comments/:commentid", s.handleDeleteComment)
	}
}

func InitAndServe(confPath string) {
	config = loadConfig(confPath)

	engine = gin.Default()
	setGinMode(config.ApiGinMode)
	registerTagNames()

	setCors()

	initDBConn()

	srv := &apiServer{store: newPgStore(pool)}
	tokenAuth := mustInitAuth(srv)
	setRoutes(engine, srv, tokenAuth)

	// serve http
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port),
		Handler:           engine,
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()

	stop()
	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// close db conn
	pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "envgin":
		gin.SetMode(gin.EnvGinMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
