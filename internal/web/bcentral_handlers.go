package web

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/indicators"
)

// seriesHandler builds a handler that serves one fixed series over the
// requested date window.
func (s *Server) seriesHandler(seriesCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.serveSeries(c, seriesCode)
	}
}

func (s *Server) handleCustomSeries(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		respondValidation(c, "series code is required")
		return
	}
	s.serveSeries(c, code)
}

func (s *Server) serveSeries(c *gin.Context, seriesCode string) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	observations, err := s.series.FetchSeries(c.Request.Context(), seriesCode, startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"series_code":  seriesCode,
		"observations": observations,
		"count":        len(observations),
	})
}

func (s *Server) handleSeriesCatalog(c *gin.Context) {
	catalog := bcentral.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"series": catalog,
		"count":  len(catalog),
	})
}

func (s *Server) handleEconomicIndicators(c *gin.Context) {
	date := c.Query("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			respondValidation(c, "date must be YYYY-MM-DD")
			return
		}
	}

	snapshot := s.fetchSnapshot(c.Request.Context(), date)
	c.JSON(http.StatusOK, gin.H{
		"date":       snapshot.Date,
		"indicators": snapshot,
	})
}

// fetchSnapshot gathers the three indicator series for one date in parallel.
// A failed series becomes an unavailable indicator, never an error; the
// snapshot is built fresh on every call.
func (s *Server) fetchSnapshot(ctx context.Context, date string) indicators.Snapshot {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	var exchangeRate, uf, utm []bcentral.Observation
	var wg sync.WaitGroup

	fetch := func(code string, dst *[]bcentral.Observation) {
		defer wg.Done()
		observations, err := s.series.FetchSeries(ctx, code, date, date)
		if err != nil {
			log.Printf("[web] series %s unavailable for %s: %v", code, date, err)
			return
		}
		*dst = observations
	}

	wg.Add(3)
	go fetch(bcentral.SeriesExchangeRate, &exchangeRate)
	go fetch(bcentral.SeriesUF, &uf)
	go fetch(bcentral.SeriesUTM, &utm)
	wg.Wait()

	return indicators.BuildSnapshot(date, exchangeRate, uf, utm)
}
