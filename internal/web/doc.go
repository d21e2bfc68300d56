// Package web provides the browser dashboard for watching the board.
//
// # Overview
//
// The dashboard is a read-only view over the work hierarchy:
//
//   - Projects: List with PRD, story, and task counts
//   - Detail: Per-project PRDs with markdown descriptions rendered to HTML
//   - Progress: Completion bar driven by the task status rollup
//   - Activity: Live feed of create and comment events
//
// All writes go through the MCP tool surface; the dashboard never mutates
// the store.
//
// # Architecture
//
// Components:
//
//   - Server: Route registration and HTTP handlers
//   - Templates: HTML templates embedded in the binary
//   - JSON API: Endpoints the page polls on an interval
//
// Routes:
//
//   - GET / - dashboard shell page
//   - GET /api/projects - project list with counts
//   - GET /api/projects/{id}/progress - completion rollup
//   - GET /api/activity?limit=N - recent events with display strings
//   - GET /partials/projects/{id} - detail pane HTML fragment
//
// # Markdown
//
// Project and PRD descriptions are markdown. The detail partial converts
// them with goldmark; goldmark's defaults escape raw HTML in the source,
// so untrusted descriptions cannot inject markup.
//
// # Usage
//
// Create and mount the dashboard:
//
//	dash := web.New(svc, logger)
//	dash.RegisterRoutes(mux)
//
// The page polls the JSON API every few seconds; there is no push channel.
package web
