package sink

import (
	"html/template"
	"io"
	"strings"

	"github.com/wonny/patternscan/internal/contracts"
)

// QuoteURL links a hit to its Eastmoney quote page
func QuoteURL(h contracts.Hit) string {
	market := "sz"
	if contracts.Exchange(h.FullCode) == "sh" {
		market = "sh"
	}
	return "https://quote.eastmoney.com/concept/" + market + h.Code + ".html"
}

type htmlRow struct {
	contracts.Hit
	Tags []string
	URL  string
	Down bool
}

type htmlPage struct {
	*contracts.Report
	Rows     []htmlRow
	AllCodes string
	Time     string
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.StrategyName}} scan</title>
<style>
body { font-family: 'Segoe UI', system-ui, sans-serif; background: #f8fafc; color: #1e293b; padding: 25px; }
.card { background: white; padding: 25px; border-radius: 12px; box-shadow: 0 4px 20px rgba(0,0,0,0.08); max-width: 1100px; margin: auto; }
.header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 2px solid #f1f5f9; padding-bottom: 10px; margin-bottom: 20px; }
.code-box { background: #0f172a; color: #38bdf8; padding: 12px; border-radius: 8px; font-family: monospace; font-size: 13px; margin-bottom: 20px; word-break: break-all; }
table { width: 100%; border-collapse: collapse; }
th { text-align: left; padding: 12px; color: #64748b; font-size: 12px; text-transform: uppercase; }
td { padding: 14px 12px; border-bottom: 1px solid #f1f5f9; font-size: 14px; }
.stage-tag { background: #1e293b; color: white; padding: 3px 8px; border-radius: 4px; font-size: 11px; cursor: pointer; }
.concept-tag { background: #e0f2fe; color: #0369a1; padding: 2px 8px; border-radius: 12px; font-size: 11px; margin-right: 5px; cursor: pointer; }
.active-filter { background: #3b82f6 !important; color: white !important; }
.up { color: #ef4444; font-weight: bold; }
.down { color: #22c55e; font-weight: bold; }
</style>
</head>
<body>
<div class="card">
  <div class="header">
    <h2 style="margin:0;">{{.StrategyName}}</h2>
    <div style="font-size: 12px; color: #3b82f6;">
      Click a tag to filter | <button id="reset" style="cursor:pointer;">Clear filter</button>
    </div>
  </div>
  <div class="code-box" id="codes">{{.AllCodes}}</div>
  <p style="font-size: 12px; color: #64748b;">Scanned: {{.TotalScanned}} | Hits: {{len .Rows}} | Time: {{.Time}}{{if .Partial}} | partial{{end}}</p>
  <table>
    <thead>
      <tr><th>Stage</th><th>Code</th><th>Name</th><th>Price</th><th>Change</th><th>Concepts</th><th>Quote</th></tr>
    </thead>
    <tbody>
{{- range .Rows}}
      <tr class="stock-row" data-stage="{{.Stage}}" data-concepts="{{.Concepts}}">
        <td><span class="stage-tag" data-stage="{{.Stage}}">{{.Stage}}</span></td>
        <td><b>{{.Code}}</b></td>
        <td>{{.Name}}</td>
        <td>{{printf "%.2f" .Price}}</td>
        <td class="{{if .Down}}down{{else}}up{{end}}">{{.Change}}</td>
        <td>{{range .Tags}}<span class="concept-tag" data-concept="{{.}}">{{.}}</span>{{end}}</td>
        <td><a href="{{.URL}}" target="_blank" style="text-decoration:none;">&#128269;</a></td>
      </tr>
{{- end}}
    </tbody>
  </table>
</div>
<script>
function rows() { return document.querySelectorAll('.stock-row'); }
function mark(el) {
  document.querySelectorAll('.active-filter').forEach(t => t.classList.remove('active-filter'));
  el.classList.add('active-filter');
}
document.querySelectorAll('.stage-tag').forEach(el => el.addEventListener('click', () => {
  mark(el);
  rows().forEach(r => { r.style.display = r.dataset.stage === el.dataset.stage ? '' : 'none'; });
}));
document.querySelectorAll('.concept-tag').forEach(el => el.addEventListener('click', () => {
  mark(el);
  rows().forEach(r => { r.style.display = r.dataset.concepts.split(' / ').includes(el.dataset.concept) ? '' : 'none'; });
}));
document.getElementById('reset').addEventListener('click', () => {
  rows().forEach(r => { r.style.display = ''; });
  document.querySelectorAll('.active-filter').forEach(t => t.classList.remove('active-filter'));
});
</script>
</body>
</html>
`))

// RenderHTML writes a self-contained report with stage and concept filters
func RenderHTML(w io.Writer, r *contracts.Report) error {
	page := htmlPage{
		Report:   r,
		Rows:     make([]htmlRow, len(r.Hits)),
		AllCodes: strings.Join(r.Codes(), ","),
		Time:     r.GeneratedAt.Format("2006-01-02 15:04"),
	}
	for i, h := range r.Hits {
		page.Rows[i] = htmlRow{
			Hit:  h,
			Tags: h.ConceptTags(),
			URL:  QuoteURL(h),
			Down: strings.HasPrefix(h.Change, "-"),
		}
	}
	return reportTemplate.Execute(w, page)
}
