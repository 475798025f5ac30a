package api

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/preview"
	"github.com/starford/dagaz/internal/workspace"
)

// ListFiles handles GET /api/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"files": h.deps.Workspace.Scan()})
}

// FileContent handles GET /api/files/content?path=...&render=html.
//
// Raw ".." in the requested path is rejected here as defense-in-depth;
// the scanner's resolve-then-prefix check is the actual boundary.
func (h *Handler) FileContent(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("path")
	if filePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path parameter required"))
		return
	}
	if strings.Contains(filePath, "..") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}

	content, err := h.deps.Workspace.ReadContent(filePath)
	if err != nil {
		writeError(w, err, "file")
		return
	}

	resp := map[string]any{
		"name":    path.Base(filePath),
		"path":    filePath,
		"content": content,
	}
	if r.URL.Query().Get("render") == "html" && strings.HasSuffix(filePath, ".md") {
		if html, err := preview.Render(content); err == nil {
			resp["html"] = html
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteFile handles DELETE /api/files/*.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	filePath, err := url.PathUnescape(raw)
	if err != nil {
		filePath = raw
	}
	if filePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if strings.Contains(filePath, "..") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}

	if err := h.deps.Workspace.Delete(filePath); err != nil {
		writeError(w, err, "file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// UploadFile handles POST /api/files/upload (multipart form, field "file").
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, workspace.MaxUploadSize+4096)
	if err := r.ParseMultipartForm(workspace.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("no file provided"))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, workspace.MaxUploadSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	name, err := h.deps.Workspace.Upload(header.Filename, data)
	if err != nil {
		writeError(w, err, "upload")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "name": name})
}
