package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"mpv-remote/internal/shares"
)

// GetStatus reports service liveness plus library statistics.
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats":     h.library.GetStats(),
	})
}

// ListShares returns the configured share names.
func (h *Handlers) ListShares(w http.ResponseWriter, _ *http.Request) {
	names := h.library.ShareNames()
	sort.Strings(names)
	writeJSON(w, map[string][]string{"shares": names})
}

type listingResponse struct {
	shares.Listing
	Path string `json:"path"`
}

// BrowseShare lists one directory level of a share. The path variable
// is absent on the share root route.
func (h *Handlers) BrowseShare(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	subPath := vars["path"]

	listing, err := h.library.GetShareFiles(vars["share"], subPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, listingResponse{Listing: listing, Path: "/" + subPath})
}

// GetThumbnail serves a generated thumbnail image. Ids may arrive with
// or without the .jpg suffix.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(mux.Vars(r)["id"], ".jpg")

	path, err := h.library.GetThumbnailPath(id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Thumbnails are keyed by content-derived ids, so they never
	// change for a given URL.
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeFile(w, r, path)
}

// GetTrack resolves an indexed track by id.
func (h *Handlers) GetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := h.library.FindTrackByID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, track)
}
