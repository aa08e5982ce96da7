package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/herd"
	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// PaymentService is the transaction lifecycle surface the handlers call.
// Implementations: payments.Engine
type PaymentService interface {
	Create(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error)
	Confirm(ctx context.Context, token string) (*ledger.Transaction, error)
	Status(ctx context.Context, token string) (*ledger.Transaction, error)
	Refund(ctx context.Context, token string, amount int) (*webpay.RefundResult, error)
	List() []*ledger.Transaction
}

// SeriesFetcher fetches economic time series.
// Implementations: bcentral.Client
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, seriesCode, startDate, endDate string) ([]bcentral.Observation, error)
}

// HerdStore is the livestock CRUD surface.
// Implementations: herd.Store
type HerdStore interface {
	List() ([]herd.Cow, error)
	Get(id int64) (*herd.Cow, error)
	Create(cow *herd.Cow) (*herd.Cow, error)
	Update(id int64, update herd.CowUpdate) (*herd.Cow, error)
	Delete(id int64) (*herd.Cow, error)
	ListByBreed(breed string) ([]herd.Cow, error)
	ListByHealthStatus(status string) ([]herd.Cow, error)
}

// Server is the CowTracker HTTP facade: request validation, delegation to
// the payment engine and provider clients, and error-to-status mapping.
type Server struct {
	payments PaymentService
	series   SeriesFetcher
	herd     HerdStore
	router   *gin.Engine
}

// NewServer wires the handlers onto a gin router with CORS from the
// configured origin allow-list.
func NewServer(paymentSvc PaymentService, series SeriesFetcher, herdStore HerdStore, corsOrigins []string) *Server {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsCfg))

	s := &Server{
		payments: paymentSvc,
		series:   series,
		herd:     herdStore,
		router:   router,
	}
	s.registerRoutes(router)
	return s
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	wp := router.Group("/webpay")
	{
		wp.POST("/create-transaction", s.handleCreateTransaction)
		wp.POST("/confirm", s.handleConfirm)
		wp.GET("/return", s.handleReturn)
		wp.GET("/status/:token", s.handleTransactionStatus)
		wp.POST("/refund/:token", s.handleRefund)
	}

	router.GET("/transactions", s.handleListTransactions)

	bc := router.Group("/bcentral")
	{
		bc.GET("/exchange-rate", s.seriesHandler(bcentral.SeriesExchangeRate))
		bc.GET("/uf", s.seriesHandler(bcentral.SeriesUF))
		bc.GET("/utm", s.seriesHandler(bcentral.SeriesUTM))
		bc.GET("/economic-indicators", s.handleEconomicIndicators)
		bc.GET("/series", s.handleSeriesCatalog)
		bc.GET("/series/:code", s.handleCustomSeries)
	}

	cowsGroup := router.Group("/cows")
	{
		cowsGroup.GET("", s.handleListCows)
		cowsGroup.POST("", s.handleCreateCow)
		cowsGroup.GET("/:id", s.handleGetCow)
		cowsGroup.PUT("/:id", s.handleUpdateCow)
		cowsGroup.DELETE("/:id", s.handleDeleteCow)
		cowsGroup.GET("/breed/:breed", s.handleCowsByBreed)
		cowsGroup.GET("/health/:status", s.handleCowsByHealth)
		cowsGroup.POST("/:id/purchase", s.handlePurchaseCow)
		cowsGroup.GET("/:id/price-analysis", s.handlePriceAnalysis)
	}
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Bienvenido a CowTracker API",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "CowTracker API",
	})
}
