package indicators

import (
	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
)

// Indicator is one economic indicator inside a snapshot. Available is false
// when the series could not be fetched or carried no observation for the
// requested date, so callers can tell "no data" apart from a zero value.
type Indicator struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Date      string  `json:"date"`
	Available bool    `json:"available"`
}

// Snapshot is a point-in-time bundle of the three indicators the service
// exposes. Built on demand; never cached across requests.
type Snapshot struct {
	Date         string    `json:"date"`
	ExchangeRate Indicator `json:"exchange_rate"`
	UF           Indicator `json:"uf"`
	UTM          Indicator `json:"utm"`
}

// BuildSnapshot shapes up to three raw series responses into one snapshot.
// Pure function: nil or empty series become unavailable indicators. The
// newest observation of each series wins, since each indicator carries its
// own as-of date.
func BuildSnapshot(date string, exchangeRate, uf, utm []bcentral.Observation) Snapshot {
	return Snapshot{
		Date:         date,
		ExchangeRate: latest(bcentral.SeriesExchangeRate, "Tipo de cambio USD/CLP", exchangeRate),
		UF:           latest(bcentral.SeriesUF, "Unidad de Fomento (UF)", uf),
		UTM:          latest(bcentral.SeriesUTM, "Unidad Tributaria Mensual (UTM)", utm),
	}
}

func latest(code, name string, observations []bcentral.Observation) Indicator {
	ind := Indicator{Code: code, Name: name}
	if len(observations) == 0 {
		return ind
	}

	// Series arrive oldest-to-newest.
	last := observations[len(observations)-1]
	ind.Value = last.Value
	ind.Date = last.Date
	ind.Available = true
	return ind
}
