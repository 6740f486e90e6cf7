package handlers

import (
	"mpv-remote/internal/cache"
	"mpv-remote/internal/mpv"
	"mpv-remote/internal/shares"
)

// InstanceManager is the slice of the mpv manager the HTTP layer
// consumes.
type InstanceManager interface {
	CreateInstance(mediaFile string) (string, error)
	GetInstance(id string) (mpv.InstanceView, error)
	GetAllInstances() []mpv.InstanceView
	StopInstance(id string) error
	FindRunning() string
	ExecuteRemoteCommand(id string, remote mpv.RemoteCommand) (*mpv.Response, error)
	GetAvailableTracks(id string) (mpv.TrackList, error)
	GetCurrentTracks(id string) (mpv.CurrentTracks, error)
	SetAudioTrack(id, trackID string) (*mpv.Response, error)
	SetSubtitleTrack(id, trackID string) (*mpv.Response, error)
}

// MediaLibrary is the slice of the share service the HTTP layer
// consumes.
type MediaLibrary interface {
	GetShareFiles(shareName, subPath string) (shares.Listing, error)
	ShareNames() []string
	FindTrackByID(id string) (cache.Track, error)
	GetThumbnailPath(id string) (string, error)
	GetStats() shares.Stats
}

type Handlers struct {
	manager InstanceManager
	library MediaLibrary
}

func New(manager InstanceManager, library MediaLibrary) *Handlers {
	return &Handlers{
		manager: manager,
		library: library,
	}
}
