package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"

	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
)

// logsView is the data handed to the logs templates.
type logsView struct {
	Logs       []responses.LogEntry
	Count      int64
	TotalCount int64
	HasMore    bool
	Empty      bool
	Offset     int
	Limit      int
	NextOffset int
	Search     string
}

func newLogsView(resp responses.LogsResponse, query string) logsView {
	return logsView{
		Logs:       resp.Logs,
		Count:      resp.Count,
		TotalCount: resp.TotalCount,
		HasMore:    resp.HasMore,
		Empty:      resp.Empty,
		Offset:     resp.Offset,
		Limit:      resp.Limit,
		NextOffset: resp.Offset + len(resp.Logs),
		Search:     query,
	}
}

// prettyBody indents JSON bodies and returns anything else unchanged.
func prettyBody(entry responses.LogEntry) string {
	if entry.ParsedBody == nil {
		return entry.Body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, entry.ParsedBody, "", "  "); err != nil {
		return entry.Body
	}
	return buf.String()
}

var logsTemplates = template.Must(template.New("logs").
	Funcs(template.FuncMap{"pretty": prettyBody}).
	Parse(listTemplate + pageTemplate))

const listTemplate = `{{define "list"}}<div id="logs" data-total="{{.TotalCount}}">
{{- if .Empty}}
  <p class="empty">{{if .Search}}No webhooks match "{{.Search}}".{{else}}No webhooks captured yet.{{end}}</p>
{{- else}}
  {{- range .Logs}}
  <article class="log" id="log-{{.ID}}">
    <header>
      <span class="id">#{{.ID}}</span>
      <time datetime="{{.Timestamp.ISO}}">{{.Timestamp.Display}}</time>
      <span class="source">{{.Metadata.Source}}</span>
      <span class="ip">{{.Metadata.IP}}</span>
    </header>
    {{- if .Matches}}
    <ul class="matches">{{range .Matches}}<li><strong>{{.Term}}</strong> {{.Context}}</li>{{end}}</ul>
    {{- end}}
    <details>
      <summary>Headers</summary>
      <dl>{{range .Headers}}<dt>{{.Name}}</dt><dd>{{.Value}}</dd>{{end}}</dl>
    </details>
    <pre class="body">{{pretty .}}</pre>
  </article>
  {{- end}}
  {{- if .HasMore}}
  <a class="more" href="/logs?offset={{.NextOffset}}&limit={{.Limit}}{{if .Search}}&search={{.Search}}{{end}}">Load more</a>
  {{- end}}
{{- end}}
</div>{{end}}`

const pageTemplate = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Webhook logs</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
    .log { background: white; padding: 16px; border-radius: 8px; margin-bottom: 12px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
    .log header { display: flex; gap: 12px; color: #555; }
    .body { background: #f8f9fa; padding: 12px; overflow-x: auto; }
    .empty { color: #888; }
  </style>
</head>
<body>
  <h1>Webhook logs</h1>
  <p>Showing {{.Count}} of {{.TotalCount}} captured webhooks.</p>
  <form action="/logs" method="get"><input type="search" name="search" placeholder="Search"><button>Search</button></form>
  {{template "list" .}}
</body>
</html>{{end}}`
