package bcentral

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Series codes for the indicators the service exposes directly.
const (
	SeriesExchangeRate = "F073.TCO.PRE.Z.D" // USD/CLP observed exchange rate, daily
	SeriesUF           = "F073.UF.PRE.Z.D"  // Unidad de Fomento, daily
	SeriesUTM          = "F073.UTM.PRE.Z.M" // Unidad Tributaria Mensual, monthly
)

const dateLayout = "2006-01-02"

// Observation dates arrive as dd-MM-yyyy attribute strings.
const providerDateLayout = "02-01-2006"

var (
	// ErrValidation means the request failed local checks and was never sent
	// to the provider.
	ErrValidation = errors.New("invalid series request")

	// ErrInvalidDateRange means start date is after end date. Checked locally,
	// before any network call.
	ErrInvalidDateRange = errors.New("start date is after end date")

	// ErrSeriesNotFound means the provider does not recognize the series code.
	ErrSeriesNotFound = errors.New("series not found")

	// ErrProviderRejected means the provider answered with a non-success
	// status or an unparseable payload.
	ErrProviderRejected = errors.New("economic data provider rejected the request")

	// ErrProviderUnreachable means the provider could not be reached at all.
	ErrProviderUnreachable = errors.New("economic data provider unreachable")
)

// Observation is one dated value of a time series.
type Observation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SeriesInfo describes one known series for the catalog endpoint.
type SeriesInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog returns the series codes the original service documented.
func Catalog() []SeriesInfo {
	return []SeriesInfo{
		{Code: SeriesExchangeRate, Name: "Tipo de cambio USD/CLP"},
		{Code: SeriesUF, Name: "Unidad de Fomento (UF)"},
		{Code: SeriesUTM, Name: "Unidad Tributaria Mensual (UTM)"},
		{Code: "F072.IPC.PRE.Z.M", Name: "Índice de Precios al Consumidor (IPC)"},
		{Code: "F032.IPM.FRU.Z.M", Name: "Índice de Producción Manufacturera"},
		{Code: "F031.INE.DESE.Z.M", Name: "Tasa de Desempleo"},
	}
}

// Client queries the Banco Central de Chile statistical web service
// (SieteRestWS). Stateless; holds only credentials and the base URL.
type Client struct {
	baseURL  string
	user     string
	password string
	client   *http.Client
}

// NewClient creates a central-bank data client.
func NewClient(baseURL, user, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		user:     user,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchSeries returns the observations of a series inside the requested date
// window, oldest first. Empty dates default to today (start) and to the start
// date (end). An empty observation list is a valid answer: it means the
// provider has no data for the window, not that the series is unknown.
func (c *Client) FetchSeries(ctx context.Context, seriesCode, startDate, endDate string) ([]Observation, error) {
	if c.user == "" || c.password == "" {
		return nil, fmt.Errorf("central bank credentials not configured")
	}
	if seriesCode == "" {
		return nil, fmt.Errorf("%w: series code is required", ErrValidation)
	}

	if startDate == "" {
		startDate = time.Now().Format(dateLayout)
	}
	if endDate == "" {
		endDate = startDate
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start date %q", ErrValidation, startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end date %q", ErrValidation, endDate)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, startDate, endDate)
	}

	params := url.Values{}
	params.Set("user", c.user)
	params.Set("pass", c.password)
	params.Set("firstdate", startDate)
	params.Set("lastdate", endDate)
	params.Set("timeseries", seriesCode)
	params.Set("function", "GetSeries")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrProviderUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	observations, seriesSeen, err := parseSeriesXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	if !seriesSeen {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, seriesCode)
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date < observations[j].Date
	})
	return observations, nil
}

// parseSeriesXML walks the response token by token instead of decoding a
// fixed envelope: the provider's wrapper elements vary but Serie/Obs nodes
// and their attributes do not. A response with no Serie element means the
// code is unknown to the provider.
func parseSeriesXML(body []byte) ([]Observation, bool, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(body)))
	observations := []Observation{}
	seriesSeen := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("malformed XML: %v", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Serie":
			seriesSeen = true
		case "Obs":
			var date, value string
			for _, attr := range start.Attr {
				switch attr.Name.Local {
				case "indexDateString":
					date = attr.Value
				case "value":
					value = attr.Value
				}
			}
			if date == "" || value == "" {
				continue
			}
			// Missing observations arrive as "NaN" or empty markers.
			// ParseFloat accepts "NaN" and "Inf", so both checks are needed.
			v, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			observations = append(observations, Observation{
				Date:  normalizeDate(date),
				Value: v,
			})
		}
	}

	return observations, seriesSeen, nil
}

func normalizeDate(raw string) string {
	if t, err := time.Parse(providerDateLayout, raw); err == nil {
		return t.Format(dateLayout)
	}
	return raw
}
