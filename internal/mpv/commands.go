package mpv

import (
	"fmt"
	"strconv"

	"mpv-remote/internal/logging"
)

// Remote command actions accepted from clients. The vocabulary is
// public and stable; anything else is rejected.
const (
	ActionPlay        = "play"
	ActionPause       = "pause"
	ActionStop        = "stop"
	ActionSeek        = "seek"
	ActionLoadFile    = "loadfile"
	ActionVolume      = "volume"
	ActionMute        = "mute"
	ActionGetProperty = "get_property"
	ActionSetProperty = "set_property"
)

// translateRemoteCommand maps a RemoteCommand onto the underlying mpv
// command form. play and pause both toggle the pause flag, matching how
// a single play/pause button behaves.
func translateRemoteCommand(remote RemoteCommand) (Command, error) {
	switch remote.Action {
	case ActionPlay, ActionPause:
		return Command{Command: []string{"cycle", "pause"}}, nil

	case ActionStop:
		return Command{Command: []string{"stop"}}, nil

	case ActionLoadFile:
		file, ok := stringParam(remote.Params, "file")
		if !ok {
			return Command{}, fmt.Errorf("%w: loadfile requires \"file\"", ErrMissingParam)
		}
		mode, ok := stringParam(remote.Params, "mode")
		if !ok {
			mode = "replace"
		}
		return Command{Command: []string{"loadfile", file, mode}}, nil

	case ActionSeek:
		seekTime, ok := stringParam(remote.Params, "time")
		if !ok {
			return Command{}, fmt.Errorf("%w: seek requires \"time\"", ErrMissingParam)
		}
		seekType, ok := stringParam(remote.Params, "type")
		if !ok {
			seekType = "absolute"
		}
		if seekType != "absolute" && seekType != "relative" {
			return Command{}, fmt.Errorf("%w: seek type must be absolute or relative, got %q", ErrMissingParam, seekType)
		}
		return Command{Command: []string{"seek", seekTime, seekType}}, nil

	case ActionVolume:
		if level, ok := stringParam(remote.Params, "level"); ok {
			return Command{Command: []string{"set_property", "volume", level}}, nil
		}
		return Command{Command: []string{"get_property", "volume"}}, nil

	case ActionMute:
		return Command{Command: []string{"cycle", "mute"}}, nil

	case ActionGetProperty:
		property, ok := stringParam(remote.Params, "property")
		if !ok {
			return Command{}, fmt.Errorf("%w: get_property requires \"property\"", ErrMissingParam)
		}
		return Command{Command: []string{"get_property", property}}, nil

	case ActionSetProperty:
		property, ok := stringParam(remote.Params, "property")
		if !ok {
			return Command{}, fmt.Errorf("%w: set_property requires \"property\"", ErrMissingParam)
		}
		value, ok := stringParam(remote.Params, "value")
		if !ok {
			return Command{}, fmt.Errorf("%w: set_property requires \"value\"", ErrMissingParam)
		}
		return Command{Command: []string{"set_property", property, value}}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownAction, remote.Action)
	}
}

// stringParam extracts a parameter as a string, converting JSON numbers
// and booleans the way mpv's string command arguments expect.
func stringParam(params map[string]interface{}, key string) (string, bool) {
	if params == nil {
		return "", false
	}
	value, ok := params[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// ExecuteRemoteCommand translates a remote action into its mpv command
// form and sends it to the instance.
func (m *Manager) ExecuteRemoteCommand(id string, remote RemoteCommand) (*Response, error) {
	logging.Info("Executing remote command %q on instance %s", remote.Action, id)

	cmd, err := translateRemoteCommand(remote)
	if err != nil {
		return nil, err
	}
	return m.SendCommand(id, cmd)
}

// TrackInfo describes one audio or subtitle track reported by mpv.
type TrackInfo struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Lang     string `json:"lang"`
	Codec    string `json:"codec"`
	Default  bool   `json:"default"`
	Selected bool   `json:"selected"`
}

// TrackList is the set of selectable tracks for an instance.
type TrackList struct {
	AudioTracks    []TrackInfo `json:"audioTracks"`
	SubtitleTracks []TrackInfo `json:"subtitleTracks"`
}

// GetAvailableTracks queries mpv's track-list property and splits it
// into audio and subtitle tracks.
func (m *Manager) GetAvailableTracks(id string) (TrackList, error) {
	resp, err := m.SendCommand(id, Command{Command: []string{"get_property", "track-list"}})
	if err != nil {
		return TrackList{}, err
	}

	list := TrackList{
		AudioTracks:    []TrackInfo{},
		SubtitleTracks: []TrackInfo{},
	}

	raw, _ := resp.Data.([]interface{})
	for _, entry := range raw {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		track := TrackInfo{Lang: "Unknown", Codec: "Unknown"}
		if v, ok := fields["id"].(float64); ok {
			track.ID = int(v)
		}
		if v, ok := fields["title"].(string); ok {
			track.Title = v
		}
		if v, ok := fields["lang"].(string); ok {
			track.Lang = v
		}
		if v, ok := fields["codec"].(string); ok {
			track.Codec = v
		}
		if v, ok := fields["default"].(bool); ok {
			track.Default = v
		}
		if v, ok := fields["selected"].(bool); ok {
			track.Selected = v
		}

		switch fields["type"] {
		case "audio":
			if track.Title == "" {
				track.Title = fmt.Sprintf("Audio Track %d", track.ID)
			}
			list.AudioTracks = append(list.AudioTracks, track)
		case "sub":
			if track.Title == "" {
				track.Title = fmt.Sprintf("Subtitle %d", track.ID)
			}
			list.SubtitleTracks = append(list.SubtitleTracks, track)
		}
	}

	return list, nil
}

// SetAudioTrack selects the audio track by id.
func (m *Manager) SetAudioTrack(id, trackID string) (*Response, error) {
	return m.SendCommand(id, Command{Command: []string{"set_property", "aid", trackID}})
}

// SetSubtitleTrack selects the subtitle track by id.
func (m *Manager) SetSubtitleTrack(id, trackID string) (*Response, error) {
	return m.SendCommand(id, Command{Command: []string{"set_property", "sid", trackID}})
}

// CurrentTracks reports the currently selected audio and subtitle track ids.
type CurrentTracks struct {
	AudioTrack    interface{} `json:"audioTrack"`
	SubtitleTrack interface{} `json:"subtitleTrack"`
}

// GetCurrentTracks queries the selected aid and sid properties.
func (m *Manager) GetCurrentTracks(id string) (CurrentTracks, error) {
	audio, err := m.SendCommand(id, Command{Command: []string{"get_property", "aid"}})
	if err != nil {
		return CurrentTracks{}, err
	}
	sub, err := m.SendCommand(id, Command{Command: []string{"get_property", "sid"}})
	if err != nil {
		return CurrentTracks{}, err
	}
	return CurrentTracks{AudioTrack: audio.Data, SubtitleTrack: sub.Data}, nil
}
