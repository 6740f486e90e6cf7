package handlers

import "github.com/gorilla/mux"

// Router builds the full route surface.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.GetStatus).Methods("GET")

	api.HandleFunc("/instances", h.ListInstances).Methods("GET")
	api.HandleFunc("/instances", h.CreateInstance).Methods("POST")
	api.HandleFunc("/instances/{id}", h.GetInstance).Methods("GET")
	api.HandleFunc("/instances/{id}", h.StopInstance).Methods("DELETE")
	api.HandleFunc("/instances/{id}/command", h.ExecuteCommand).Methods("POST")
	api.HandleFunc("/instances/{id}/tracks", h.GetTracks).Methods("GET")
	api.HandleFunc("/instances/{id}/tracks", h.SelectTrack).Methods("POST")

	api.HandleFunc("/shares", h.ListShares).Methods("GET")
	api.HandleFunc("/shares/{share}", h.BrowseShare).Methods("GET")
	api.HandleFunc("/shares/{share}/{path:.*}", h.BrowseShare).Methods("GET")

	api.HandleFunc("/tracks/{id}", h.GetTrack).Methods("GET")
	api.HandleFunc("/thumbnails/{id}", h.GetThumbnail).Methods("GET")

	return r
}
