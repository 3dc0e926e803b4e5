package handlers

import (
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"smartfarm-dataset/internal/contextutil"
	"smartfarm-dataset/internal/export"
	"smartfarm-dataset/internal/service"
)

// CardHandler serves the dataset card of an export run as an HTML page.
type CardHandler struct {
	exportService service.ExportService
	template      *template.Template
}

// cardPageData holds template data for rendered card pages.
type cardPageData struct {
	RunID    string
	Finished string
	Size     string
	Content  template.HTML
}

// NewCardHandler creates a new handler for serving dataset cards.
func NewCardHandler(exportService service.ExportService) *CardHandler {
	tmpl := template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Dataset card &middot; export {{.RunID}}</title>
  <style>
    :root {
      color-scheme: dark;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 900px;
      line-height: 1.7;
      background: #06140c;
      color: #e4f5ea;
    }
    header {
      margin-bottom: 2rem;
      border-bottom: 1px solid rgba(148, 184, 160, 0.2);
      padding-bottom: 1.5rem;
    }
    article {
      background: rgba(12, 35, 22, 0.85);
      border: 1px solid rgba(74, 222, 128, 0.2);
      border-radius: 16px;
      padding: 2rem;
    }
    article h1 {
      margin-top: 0;
      color: #fff;
    }
    table {
      border-collapse: collapse;
      width: 100%;
    }
    th, td {
      border: 1px solid rgba(74, 222, 128, 0.25);
      padding: 0.4rem 0.8rem;
      text-align: left;
    }
    code {
      font-family: 'SFMono-Regular', Consolas, 'Liberation Mono', Menlo, monospace;
      background: rgba(74, 222, 128, 0.15);
      padding: 2px 5px;
      border-radius: 6px;
    }
    .meta {
      color: #94b8a0;
      font-size: 0.95rem;
    }
    @media (max-width: 640px) {
      body {
        padding: 1rem;
      }
      article {
        padding: 1.25rem;
      }
    }
  </style>
</head>
<body>
  <header>
    <p class="meta">Export {{.RunID}}{{if .Finished}} &middot; finished {{.Finished}}{{end}}{{if .Size}} &middot; {{.Size}} written{{end}}</p>
  </header>
  <article>{{.Content}}</article>
</body>
</html>`))

	return &CardHandler{
		exportService: exportService,
		template:      tmpl,
	}
}

// ServeHTTP handles GET /api/exports/{id}/card.
func (h *CardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	if !methodAllowed(w, r, http.MethodGet, logger) {
		return
	}

	id := chi.URLParam(r, "id")
	card, err := h.exportService.Card(ctx, id)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load dataset card")
		return
	}
	run, err := h.exportService.GetRun(ctx, id)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load export")
		return
	}

	html, err := export.RenderCardHTML(card)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render dataset card", "run_id", id, "error", err)
		http.Error(w, "failed to render dataset card", http.StatusInternalServerError)
		return
	}

	page := cardPageData{
		RunID:   run.ID,
		Size:    humanize.Bytes(uint64(run.BytesWritten)),
		Content: template.HTML(html),
	}
	if run.FinishedAt != nil {
		page.Finished = humanize.Time(*run.FinishedAt)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, page); err != nil {
		logger.ErrorContext(ctx, "failed to execute card template", "run_id", id, "error", err)
		http.Error(w, "failed to render dataset card", http.StatusInternalServerError)
		return
	}
}
