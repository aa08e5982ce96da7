package indicators

import (
	"github.com/shopspring/decimal"
)

// Price bands, in UF, used to classify livestock pricing.
var (
	premiumThresholdUF = decimal.NewFromInt(150)
	economyThresholdUF = decimal.NewFromInt(30)
)

// Conversion is a CLP price expressed in another unit, with the rate used.
type Conversion struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
	Rate  decimal.Decimal `json:"rate"`
}

// PriceAnalysis places a CLP price in economic context: conversions into
// each available indicator unit plus pricing-band recommendations.
type PriceAnalysis struct {
	PriceCLP        decimal.Decimal        `json:"price_clp"`
	AnalysisDate    string                 `json:"analysis_date"`
	Conversions     map[string]Conversion  `json:"conversions"`
	EconomicContext Snapshot               `json:"economic_context"`
	Recommendations []string               `json:"recommendations"`
}

// AnalyzePrice converts a CLP price using the snapshot's indicators.
// Indicators marked unavailable simply produce no conversion; the analysis
// never fails on missing data. Decimal arithmetic keeps the conversions
// exact to two places.
func AnalyzePrice(priceCLP float64, snapshot Snapshot) PriceAnalysis {
	price := decimal.NewFromFloat(priceCLP)
	analysis := PriceAnalysis{
		PriceCLP:        price,
		AnalysisDate:    snapshot.Date,
		Conversions:     make(map[string]Conversion),
		EconomicContext: snapshot,
		Recommendations: []string{},
	}

	if snapshot.UF.Available && snapshot.UF.Value > 0 {
		rate := decimal.NewFromFloat(snapshot.UF.Value)
		inUF := price.DivRound(rate, 2)
		analysis.Conversions["uf"] = Conversion{Value: inUF, Unit: "UF", Rate: rate}

		switch {
		case inUF.GreaterThanOrEqual(premiumThresholdUF):
			analysis.Recommendations = append(analysis.Recommendations,
				"Precio en segmento premium: considerar certificación genética para justificar el valor")
		case inUF.LessThanOrEqual(economyThresholdUF):
			analysis.Recommendations = append(analysis.Recommendations,
				"Precio en segmento económico: revisar peso y estado de salud del animal")
		default:
			analysis.Recommendations = append(analysis.Recommendations,
				"Precio dentro del rango estándar del mercado")
		}
	}

	if snapshot.ExchangeRate.Available && snapshot.ExchangeRate.Value > 0 {
		rate := decimal.NewFromFloat(snapshot.ExchangeRate.Value)
		analysis.Conversions["usd"] = Conversion{
			Value: price.DivRound(rate, 2),
			Unit:  "USD",
			Rate:  rate,
		}
	}

	if snapshot.UTM.Available && snapshot.UTM.Value > 0 {
		rate := decimal.NewFromFloat(snapshot.UTM.Value)
		analysis.Conversions["utm"] = Conversion{
			Value: price.DivRound(rate, 2),
			Unit:  "UTM",
			Rate:  rate,
		}
	}

	if len(analysis.Conversions) == 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			"Sin indicadores disponibles para convertir el precio")
	}

	return analysis
}
