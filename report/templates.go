package report

import "floorwatch/models"

var resultTemplates = map[string]string{
	"en": `{{.Title}}{{with .Label}}: {{.}}{{end}}
Price: {{.Price}}{{range .Quotes}} ({{.}}){{end}}
{{- range .Conversions}}
≈ {{if .Available}}{{.Amount}} {{.Currency}}{{else}}{{.Currency}}: rate unavailable{{end}}
{{- end}}
{{- with .Delta}}
{{if .Rising}}📈 Up{{else}}📉 Down{{end}} {{.Amount}} ({{.Percent}}%) {{if eq .Source "sold"}}vs last sale{{else}}since last check{{end}}, was {{.Baseline}}
{{- end}}
{{- with .Link}}
View listing: {{.}}
{{- end}}`,

	"ru": `{{.Title}}{{with .Label}}: {{.}}{{end}}
Цена: {{.Price}}{{range .Quotes}} ({{.}}){{end}}
{{- range .Conversions}}
≈ {{if .Available}}{{.Amount}} {{.Currency}}{{else}}{{.Currency}}: курс недоступен{{end}}
{{- end}}
{{- with .Delta}}
{{if .Rising}}📈 Рост{{else}}📉 Падение{{end}} {{.Amount}} ({{.Percent}}%) {{if eq .Source "sold"}}к последней продаже{{else}}с прошлой проверки{{end}}, было {{.Baseline}}
{{- end}}
{{- with .Link}}
Открыть лот: {{.}}
{{- end}}`,

	"zh": `{{.Title}}{{with .Label}}: {{.}}{{end}}
价格: {{.Price}}{{range .Quotes}} ({{.}}){{end}}
{{- range .Conversions}}
≈ {{if .Available}}{{.Amount}} {{.Currency}}{{else}}{{.Currency}}: 汇率暂不可用{{end}}
{{- end}}
{{- with .Delta}}
{{if .Rising}}📈 上涨{{else}}📉 下跌{{end}} {{.Amount}} ({{.Percent}}%) {{if eq .Source "sold"}}相比最近成交{{else}}相比上次查询{{end}}, 之前 {{.Baseline}}
{{- end}}
{{- with .Link}}
查看: {{.}}
{{- end}}`,
}

var failureLines = map[string]map[models.FailureReason]string{
	"en": {
		models.ReasonNoListing:          "❌ No listing found right now. Please try again later.",
		models.ReasonExtractionFailed:   "❌ Found the listing but could not read its price.",
		models.ReasonNoPriceFound:       "❌ The listing page shows no price.",
		models.ReasonRateUnavailable:    "❌ Exchange rates are unavailable at the moment.",
		models.ReasonHistoryUnavailable: "❌ Price history is unavailable at the moment.",
	},
	"ru": {
		models.ReasonNoListing:          "❌ Сейчас нет ни одного лота. Попробуйте позже.",
		models.ReasonExtractionFailed:   "❌ Лот найден, но цену прочитать не удалось.",
		models.ReasonNoPriceFound:       "❌ На странице лота нет цены.",
		models.ReasonRateUnavailable:    "❌ Курсы валют сейчас недоступны.",
		models.ReasonHistoryUnavailable: "❌ История цен сейчас недоступна.",
	},
	"zh": {
		models.ReasonNoListing:          "❌ 暂无在售条目, 请稍后再试。",
		models.ReasonExtractionFailed:   "❌ 找到了条目, 但无法读取价格。",
		models.ReasonNoPriceFound:       "❌ 条目页面没有显示价格。",
		models.ReasonRateUnavailable:    "❌ 汇率暂不可用。",
		models.ReasonHistoryUnavailable: "❌ 价格历史暂不可用。",
	},
}

var genericFailure = map[string]string{
	"en": "❌ Failed to fetch the floor price.",
	"ru": "❌ Не удалось получить минимальную цену.",
	"zh": "❌ 获取地板价失败。",
}
