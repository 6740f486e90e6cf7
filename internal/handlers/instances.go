package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"mpv-remote/internal/logging"
	"mpv-remote/internal/mpv"
)

// ListInstances returns every tracked player instance.
func (h *Handlers) ListInstances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.manager.GetAllInstances())
}

type createInstanceRequest struct {
	MediaFile string `json:"mediaFile"`
	TrackID   string `json:"trackId"`
}

type createInstanceResponse struct {
	InstanceID string `json:"instanceId"`
	Message    string `json:"message"`
}

// CreateInstance starts a new player, or reuses the running one by
// loading the media file into it. The caller may pass either a raw
// mediaFile path or the trackId of an indexed track.
func (h *Handlers) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if r.Body != nil {
		// An empty body is allowed; it starts an idle player.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	mediaFile := req.MediaFile
	if req.TrackID != "" {
		track, err := h.library.FindTrackByID(req.TrackID)
		if err != nil {
			writeError(w, err)
			return
		}
		mediaFile = track.Src
	}

	if running := h.manager.FindRunning(); running != "" && mediaFile != "" {
		_, err := h.manager.ExecuteRemoteCommand(running, mpv.RemoteCommand{
			Action: mpv.ActionLoadFile,
			Params: map[string]interface{}{"file": mediaFile},
		})
		if err == nil {
			logging.Info("Reusing running instance %s for %s", running, mediaFile)
			writeJSON(w, createInstanceResponse{
				InstanceID: running,
				Message:    "Loaded media into running instance",
			})
			return
		}
		logging.Warn("Could not reuse instance %s, starting a new one: %v", running, err)
	}

	id, err := h.manager.CreateInstance(mediaFile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, createInstanceResponse{
		InstanceID: id,
		Message:    "MPV instance created successfully",
	})
}

// GetInstance returns one instance, with its client name fetched
// lazily.
func (h *Handlers) GetInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := h.manager.GetInstance(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, instance)
}

// StopInstance stops the player, force-killing it if the graceful quit
// fails.
func (h *Handlers) StopInstance(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StopInstance(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Instance stopped"})
}

// ExecuteCommand translates a remote command and relays the player's
// response.
func (h *Handlers) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var remote mpv.RemoteCommand
	if err := json.NewDecoder(r.Body).Decode(&remote); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.manager.ExecuteRemoteCommand(mux.Vars(r)["id"], remote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

type instanceTracks struct {
	Available mpv.TrackList     `json:"available"`
	Current   mpv.CurrentTracks `json:"current"`
}

// GetTracks lists the instance's audio and subtitle tracks along with
// the active selection.
func (h *Handlers) GetTracks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	available, err := h.manager.GetAvailableTracks(id)
	if err != nil {
		writeError(w, err)
		return
	}
	current, err := h.manager.GetCurrentTracks(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, instanceTracks{Available: available, Current: current})
}

type selectTrackRequest struct {
	Type    string `json:"type"`
	TrackID string `json:"trackId"`
}

// SelectTrack switches the instance's audio or subtitle track.
func (h *Handlers) SelectTrack(w http.ResponseWriter, r *http.Request) {
	var req selectTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TrackID == "" {
		writeJSONError(w, "trackId is required", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	var result *mpv.Response
	var err error
	switch req.Type {
	case "audio":
		result, err = h.manager.SetAudioTrack(id, req.TrackID)
	case "subtitle":
		result, err = h.manager.SetSubtitleTrack(id, req.TrackID)
	default:
		writeJSONError(w, "type must be audio or subtitle", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}
