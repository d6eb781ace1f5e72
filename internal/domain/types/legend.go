package types

import "fmt"

// Localized maps a language code to text.
type Localized map[string]string

// LegendEntry describes one chart line.
type LegendEntry struct {
	Text  Localized `json:"text"`
	Color string    `json:"color"`
}

// Legend keys for the fixed lines.
const (
	LegendLastKnown = "last_know_data_line"
	LegendReal      = "real_data_line"
	LegendEnsemble  = "Ensemble_data_line"
)

var modelColors = map[string]string{
	"LSTM":    "#FFA500",
	"XGBoost": "#a7f3d0",
}

var fallbackColors = []string{"#FF6347", "#8A2BE2", "#2E8B57", "#D2691E"}

var forecastText = Localized{
	"en": "%s current forecast",
	"ru": "%s актуальный прогноз",
	"zh": "%s 当前预测",
	"it": "Previsione attuale %s",
	"fr": "Prévision actuelle %s",
	"de": "Aktuelle %s-Vorhersage",
}

var metricsText = Localized{
	"en": "Forecast accuracy metrics for %s",
	"ru": "Метрики точности прогноза для %s",
	"zh": "%s 预测准确性指标",
	"it": "Metriche di accuratezza delle previsioni per %s",
	"fr": "Métriques de précision des prévisions pour %s",
	"de": "Prognosegenauigkeitsmetriken für %s",
}

func (l Localized) format(arg string) Localized {
	out := make(Localized, len(l))
	for lang, tmpl := range l {
		out[lang] = fmt.Sprintf(tmpl, arg)
	}
	return out
}

// LegendKey returns the legend key of a model line.
func LegendKey(model string) string { return model + "_data_line" }

// Legend builds the chart legend for the given models in display order.
func Legend(models []string) map[string]LegendEntry {
	out := map[string]LegendEntry{
		LegendLastKnown: {
			Text: Localized{
				"en": "Last known date",
				"ru": "Последняя известная дата",
				"zh": "最后已知日期",
				"it": "Ultima data conosciuta",
				"fr": "Dernière date connue",
				"de": "Letztes bekanntes Datum",
			},
			Color: "#A9A9A9",
		},
		LegendReal: {
			Text: Localized{
				"en": "Real data",
				"ru": "Реальные данные",
				"zh": "真实数据",
				"it": "Dati reali",
				"fr": "Données réelles",
				"de": "Echte Daten",
			},
			Color: "#0000FF",
		},
		LegendEnsemble: {
			Text: Localized{
				"en": "Ensemble forecast",
				"ru": "Ансамбль прогноз",
				"zh": "集成预测",
				"it": "Previsione dell'ensemble",
				"fr": "Prévision d'ensemble",
				"de": "Ensemble-Vorhersage",
			},
			Color: "#FFFF00",
		},
	}
	next := 0
	for _, m := range models {
		color, ok := modelColors[m]
		if !ok {
			color = fallbackColors[next%len(fallbackColors)]
			next++
		}
		out[LegendKey(m)] = LegendEntry{Text: forecastText.format(m), Color: color}
	}
	return out
}

// MetricsTitle is the localized heading of a model's metrics table.
func MetricsTitle(model string) Localized {
	return metricsText.format(model)
}
