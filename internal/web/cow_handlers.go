package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lucassmelendez/ct-fastapi/internal/herd"
	"github.com/lucassmelendez/ct-fastapi/internal/indicators"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
)

type purchaseRequest struct {
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
}

func (s *Server) handleListCows(c *gin.Context) {
	cows, err := s.herd.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cows)
}

func (s *Server) handleGetCow(c *gin.Context) {
	id, ok := cowID(c)
	if !ok {
		return
	}

	cow, err := s.herd.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cow)
}

func (s *Server) handleCreateCow(c *gin.Context) {
	var cow herd.Cow
	if err := c.ShouldBindJSON(&cow); err != nil {
		respondValidation(c, "invalid JSON body: "+err.Error())
		return
	}
	if cow.Name == "" || cow.Breed == "" {
		respondValidation(c, "name and breed are required")
		return
	}
	if cow.Age < 0 || cow.Weight < 0 || cow.Price < 0 {
		respondValidation(c, "age, weight and price must not be negative")
		return
	}

	created, err := s.herd.Create(&cow)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateCow(c *gin.Context) {
	id, ok := cowID(c)
	if !ok {
		return
	}

	var update herd.CowUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondValidation(c, "invalid JSON body: "+err.Error())
		return
	}

	cow, err := s.herd.Update(id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cow)
}

func (s *Server) handleDeleteCow(c *gin.Context) {
	id, ok := cowID(c)
	if !ok {
		return
	}

	cow, err := s.herd.Delete(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Vaca %s eliminada exitosamente", cow.Name),
	})
}

func (s *Server) handleCowsByBreed(c *gin.Context) {
	cows, err := s.herd.ListByBreed(c.Param("breed"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cows)
}

func (s *Server) handleCowsByHealth(c *gin.Context) {
	cows, err := s.herd.ListByHealthStatus(c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cows)
}

// handlePurchaseCow opens a payment for one animal, with the amount sourced
// from the stored record's price rather than the request body.
func (s *Server) handlePurchaseCow(c *gin.Context) {
	id, ok := cowID(c)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.BuyerName == "" || req.BuyerEmail == "" {
		respondValidation(c, "buyer_name and buyer_email are required")
		return
	}

	cow, err := s.herd.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if cow.Price <= 0 {
		respondValidation(c, fmt.Sprintf("cow %s has no sale price", cow.Name))
		return
	}

	result, err := s.payments.Create(c.Request.Context(), payments.CreateRequest{
		Amount:    cow.Price,
		SessionID: truncate(req.BuyerEmail, 61),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     result.Token,
		"url":       result.URL,
		"buy_order": result.BuyOrder,
		"amount":    result.Amount,
		"cow": gin.H{
			"id":   cow.ID,
			"name": cow.Name,
		},
		"buyer_name": req.BuyerName,
	})
}

func (s *Server) handlePriceAnalysis(c *gin.Context) {
	id, ok := cowID(c)
	if !ok {
		return
	}

	cow, err := s.herd.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if cow.Price <= 0 {
		respondValidation(c, fmt.Sprintf("cow %s has no sale price to analyze", cow.Name))
		return
	}

	snapshot := s.fetchSnapshot(c.Request.Context(), c.Query("date"))
	analysis := indicators.AnalyzePrice(float64(cow.Price), snapshot)

	c.JSON(http.StatusOK, gin.H{
		"cow": gin.H{
			"id":    cow.ID,
			"name":  cow.Name,
			"breed": cow.Breed,
		},
		"analysis": analysis,
	})
}

func cowID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, "invalid cow id")
		return 0, false
	}
	return id, true
}
