package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

// Renderer writes the dashboard page.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("dashboard").Parse(dashboardHTML)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type page struct {
	Title     string
	Subtitle  string
	StreamURL string
	Table     Table
}

// Render writes a full HTML page for t. streamURL is the SSE endpoint the
// page subscribes to for live updates.
func (r *Renderer) Render(w io.Writer, t Table, streamURL string) error {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, page{
		Title:     "Crypto Price Tracker",
		Subtitle:  "Real-time cryptocurrency prices and stats",
		StreamURL: streamURL,
		Table:     t,
	})
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{margin:0;padding:20px;background:#f9fafb;font-family:Inter,sans-serif}
header{text-align:center;margin-bottom:20px}
h1{color:#0b1426;font-size:28px;margin-bottom:8px}
header p{color:#616e85;font-size:16px}
.wrap{max-width:1400px;margin:0 auto;overflow-x:auto;border-radius:8px;box-shadow:0 4px 12px rgba(0,0,0,.1)}
table{width:100%;border-collapse:collapse;background:#fff}
th{padding:16px;font-size:14px;font-weight:600;color:#616e85;text-align:left;white-space:nowrap;background:#f8fafd}
td{padding:16px;font-size:14px;color:#222531;white-space:nowrap}
tr{border-bottom:1px solid #eaeaea}
.rank,.sym{color:#616e85}
.name{display:flex;align-items:center;gap:8px;font-weight:600}
.name img{width:24px;height:24px}
.price{font-weight:600}
.cap{color:#616e85}
.chart img{width:150px;height:40px}
.status{text-align:center;color:#ea3943}
</style>
</head>
<body>
<header><h1>{{.Title}}</h1><p>{{.Subtitle}}</p></header>
<p class="status" id="status">{{if .Table.Loading}}Loading…{{end}}{{.Table.Error}}</p>
<div class="wrap">
<table>
<thead><tr><th>#</th><th>Name</th><th>Price</th><th>1h %</th><th>24h %</th><th>7d %</th><th>Market Cap</th><th>Volume(24h)</th><th>Circulating Supply</th><th>Last 7 Days</th></tr></thead>
<tbody id="rows">
{{range .Table.Rows}}<tr id="row-{{.ID}}">
<td class="rank">{{.Rank}}</td>
<td><div class="name"><img src="{{.Logo}}" alt="{{.Name}}">{{.Name}}<span class="sym">{{.Symbol}}</span></div></td>
<td class="price">{{.Price}}</td>
<td style="color:{{.Change1h.Color}}">{{.Change1h.Text}}</td>
<td style="color:{{.Change24h.Color}}">{{.Change24h.Text}}</td>
<td style="color:{{.Change7d.Color}}">{{.Change7d.Text}}</td>
<td>{{.MarketCap}}</td>
<td>{{.Volume24h}}</td>
<td>{{.CirculatingSupply}}{{if .MaxSupply}}<span class="cap"> / {{.MaxSupply}}</span>{{end}}</td>
<td class="chart"><img src="{{.Chart7d}}" alt="{{.Name}} 7d chart"></td>
</tr>
{{end}}</tbody>
</table>
</div>
<script>
(function(){
  var src = new EventSource({{.StreamURL}});
  function el(tag, cls, text){
    var e = document.createElement(tag);
    if (cls) e.className = cls;
    if (text !== undefined) e.textContent = text;
    return e;
  }
  function img(src, alt){
    var i = document.createElement("img");
    i.src = src;
    i.alt = alt;
    return i;
  }
  function change(c){
    var td = el("td", "", c.text);
    td.style.color = c.color;
    return td;
  }
  function buildRow(r){
    var tr = el("tr");
    tr.id = "row-" + r.id;
    tr.appendChild(el("td", "rank", r.rank));
    var name = el("div", "name");
    name.appendChild(img(r.logo, r.name));
    name.appendChild(document.createTextNode(r.name));
    name.appendChild(el("span", "sym", r.symbol));
    var nameCell = el("td");
    nameCell.appendChild(name);
    tr.appendChild(nameCell);
    tr.appendChild(el("td", "price", r.price));
    tr.appendChild(change(r.change1h));
    tr.appendChild(change(r.change24h));
    tr.appendChild(change(r.change7d));
    tr.appendChild(el("td", "", r.marketCap));
    tr.appendChild(el("td", "", r.volume24h));
    var supply = el("td", "", r.circulatingSupply);
    if (r.maxSupply) supply.appendChild(el("span", "cap", " / " + r.maxSupply));
    tr.appendChild(supply);
    var chart = el("td", "chart");
    chart.appendChild(img(r.chart7d, r.name + " 7d chart"));
    tr.appendChild(chart);
    return tr;
  }
  // Each update carries the full table, so rows are rebuilt in list order.
  src.addEventListener("table_update", function(ev){
    var t = JSON.parse(ev.data);
    document.getElementById("status").textContent = (t.loading ? "Loading… " : "") + (t.error || "");
    var frag = document.createDocumentFragment();
    (t.rows || []).forEach(function(r){ frag.appendChild(buildRow(r)); });
    document.getElementById("rows").replaceChildren(frag);
  });
})();
</script>
</body>
</html>
`
