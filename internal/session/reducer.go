package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// Reduce is the session controller reducer.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	if state.Closed {
		return state, nil
	}
	switch in := input.(type) {
	case cmdStart:
		return state, []actor.Effect{
			effSubscribe{},
			effMedia{Op: mediaAcquire},
			effRender{},
		}
	case cmdPointerDown:
		env := interaction.Env{
			Tool:     state.Tool,
			Style:    state.Style,
			Scene:    state.Scene,
			Selected: state.Selected,
		}
		m, out := state.Machine.PointerDown(env, in.At, in.ID)
		state.Machine = m
		return applyOutcome(state, out)
	case cmdPointerMove:
		m, out := state.Machine.PointerMove(in.At)
		state.Machine = m
		return applyOutcome(state, out)
	case cmdPointerUp:
		m, out := state.Machine.PointerUp(in.At)
		state.Machine = m
		return applyOutcome(state, out)
	case cmdTextInput:
		if state.Machine.State() != interaction.StateTextEditing {
			return state, nil
		}
		state.Machine = state.Machine.TextInput(in.Text)
		return state, []actor.Effect{effRender{}}
	case cmdKeyEnter:
		m, out := state.Machine.KeyEnter(in.Shift)
		state.Machine = m
		var effects []actor.Effect
		state, effects = applyOutcome(state, out)
		if in.Shift && m.State() == interaction.StateTextEditing {
			effects = withRender(effects)
		}
		return state, effects
	case cmdKeyEscape:
		m, out := state.Machine.KeyEscape()
		state.Machine = m
		return applyOutcome(state, out)
	case cmdBlur:
		m, out := state.Machine.Blur()
		state.Machine = m
		return applyOutcome(state, out)
	case cmdSelectTool:
		return reduceSelectTool(state, in)
	case cmdSetColor:
		if strings.TrimSpace(in.Color) == "" || in.Color == state.Style.Color {
			return state, nil
		}
		state.Style.Color = in.Color
		return state, []actor.Effect{effRender{}}
	case cmdSetStrokeWidth:
		if in.Width <= 0 || in.Width == state.Style.StrokeWidth {
			return state, nil
		}
		state.Style.StrokeWidth = in.Width
		return state, []actor.Effect{effRender{}}
	case cmdDeleteSelected:
		return reduceDeleteSelected(state)
	case cmdClearCanvas:
		state = clearScene(state)
		return state, []actor.Effect{
			effBroadcast{Event: wire.EventClearCanvas, Payload: wire.ClearCanvas{}},
			effRender{},
		}
	case cmdSetCode:
		state.Scene.SetCode(in.Code, in.Language)
		code, lang := state.Scene.Code()
		return state, []actor.Effect{
			effBroadcast{Event: wire.EventCodeUpdate, Payload: wire.CodeUpdate{Code: code, Language: lang}},
			effRender{},
		}
	case cmdSendChat:
		return reduceSendChat(state, in)
	case cmdShareFile:
		return reduceShareFile(state, in)
	case cmdSetMuted:
		return setMuted(state, in.Muted)
	case cmdToggleMute:
		return setMuted(state, !state.LocalMedia.IsMuted)
	case cmdSetVideoOff:
		return setVideoOff(state, in.Off)
	case cmdToggleVideo:
		return setVideoOff(state, !state.LocalMedia.IsVideoOff)
	case cmdToggleScreenShare:
		return reduceToggleScreenShare(state)
	case cmdDismiss:
		return reduceDismiss(state, in.ID)
	case cmdLeave:
		state.Closed = true
		state.Conn = ConnClosed
		state.Machine = interaction.New()
		state.Preview = nil
		state.TextAnchor = nil
		return state, []actor.Effect{effTeardown{Reply: in.Reply}, effRender{}}

	case evStatus:
		return reduceStatus(state, in)
	case evInbound:
		return reduceInbound(state, in)
	case evUploadDone:
		state.Uploading = max(0, state.Uploading-1)
		state.Files = appendCopy(state.Files, in.File)
		return state, []actor.Effect{
			effBroadcast{Event: wire.EventFileShared, Payload: wire.FileShared{File: in.File}},
			effRender{},
		}
	case evUploadFailed:
		state.Uploading = max(0, state.Uploading-1)
		return notify(state, LevelError, fmt.Sprintf("Could not share %s: %v", in.Name, in.Err))
	case evLocalMediaFailed:
		state.LocalMediaOffline = true
		return notify(state, LevelWarn, fmt.Sprintf("Camera or microphone unavailable: %v", in.Err))
	case evScreenShareStarted:
		state.ShareStarting = false
		if state.LocalMedia.IsScreenSharing {
			return state, nil
		}
		state.LocalMedia.IsScreenSharing = true
		return state, mediaUpdate(state)
	case evScreenShareFailed:
		state.ShareStarting = false
		return notify(state, LevelWarn, fmt.Sprintf("Screen share unavailable: %v", in.Err))
	case evMediaNotice:
		return reduceMediaNotice(state, in.Notice)
	default:
		return state, nil
	}
}

// applyOutcome commits what the interaction machine decided.
func applyOutcome(state State, out interaction.Outcome) (State, []actor.Effect) {
	var effects []actor.Effect
	dirty := state.Preview != nil || out.Preview != nil
	state.Preview = out.Preview

	if out.Added != nil && state.Scene.AddElement(*out.Added) {
		effects = append(effects, effBroadcast{
			Event:   wire.EventElementAdded,
			Payload: wire.ElementPayload{Element: out.Added.Clone()},
		})
		dirty = true
	}
	if out.Updated != nil && state.Scene.ReplaceElement(*out.Updated) {
		effects = append(effects, effBroadcast{
			Event:   wire.EventElementUpdated,
			Payload: wire.ElementPayload{Element: out.Updated.Clone()},
		})
		dirty = true
	}
	if out.SelectionChanged {
		state.Selected = out.Selected
		dirty = true
	}
	if out.TextOpened {
		anchor := out.TextAnchor
		state.TextAnchor = &anchor
		dirty = true
	}
	if out.TextClosed {
		state.TextAnchor = nil
		dirty = true
	}
	if dirty {
		effects = withRender(effects)
	}
	return state, effects
}

func reduceSelectTool(state State, cmd cmdSelectTool) (State, []actor.Effect) {
	if !cmd.Tool.Valid() || cmd.Tool == state.Tool {
		return state, nil
	}
	var effects []actor.Effect
	if state.Machine.State() == interaction.StateTextEditing {
		m, out := state.Machine.Blur()
		state.Machine = m
		state, effects = applyOutcome(state, out)
	}
	if state.Machine.Busy() {
		// A tool switch mid-gesture is ignored; pointer-up resolves first.
		return state, effects
	}
	state.Tool = cmd.Tool
	if cmd.Tool != interaction.ToolSelect {
		state.Selected = ""
	}
	return state, withRender(effects)
}

func reduceDeleteSelected(state State) (State, []actor.Effect) {
	id := state.Selected
	if id == "" || state.Machine.Busy() {
		return state, nil
	}
	state.Selected = ""
	if !state.Scene.RemoveElement(id) {
		return state, []actor.Effect{effRender{}}
	}
	return state, []actor.Effect{
		effBroadcast{Event: wire.EventElementRemoved, Payload: wire.ElementRemoved{ID: id}},
		effRender{},
	}
}

// clearScene empties the store and drops anything that referenced an element.
func clearScene(state State) State {
	state.Scene.Clear()
	state.Selected = ""
	if state.Machine.State() == interaction.StateTransforming {
		state.Machine = interaction.New()
		state.Preview = nil
	}
	return state
}

func reduceSendChat(state State, cmd cmdSendChat) (State, []actor.Effect) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" || cmd.ID == "" {
		return state, nil
	}
	state.Chat = appendCopy(state.Chat, ChatMessage{
		ID:          cmd.ID,
		Role:        RoleLocal,
		DisplayName: state.Self.Name,
		Text:        text,
		Timestamp:   cmd.At,
	})
	return state, []actor.Effect{
		effBroadcast{Event: wire.EventChatMessage, Payload: wire.ChatMessage{
			ID:        cmd.ID,
			Name:      state.Self.Name,
			Text:      text,
			Timestamp: cmd.At.UnixMilli(),
		}},
		effRender{},
	}
}

func reduceShareFile(state State, cmd cmdShareFile) (State, []actor.Effect) {
	if len(cmd.Data) == 0 {
		return notify(state, LevelWarn, fmt.Sprintf("Could not share %s: file is empty", cmd.Name))
	}
	state.Uploading++
	return state, []actor.Effect{
		effUpload{
			File: wire.SharedFile{
				ID:           cmd.ID,
				Name:         cmd.Name,
				SizeBytes:    int64(len(cmd.Data)),
				UploaderName: state.Self.Name,
				CreatedAt:    cmd.At.UnixMilli(),
			},
			Key:         storage.ObjectKey(state.Topic, cmd.ID, cmd.Name),
			Data:        cmd.Data,
			ContentType: cmd.ContentType,
		},
		effRender{},
	}
}

// mediaUpdate announces the local media status. Callers only use it after a
// real change.
func mediaUpdate(state State) []actor.Effect {
	return []actor.Effect{
		effBroadcast{Event: wire.EventMediaUpdate, Payload: state.LocalMedia},
		effRender{},
	}
}

func setMuted(state State, muted bool) (State, []actor.Effect) {
	if state.LocalMedia.IsMuted == muted {
		return state, nil
	}
	state.LocalMedia.IsMuted = muted
	return state, append([]actor.Effect{effMedia{Op: mediaSetMuted, Flag: muted}}, mediaUpdate(state)...)
}

func setVideoOff(state State, off bool) (State, []actor.Effect) {
	if state.LocalMedia.IsVideoOff == off {
		return state, nil
	}
	state.LocalMedia.IsVideoOff = off
	return state, append([]actor.Effect{effMedia{Op: mediaSetVideoOff, Flag: off}}, mediaUpdate(state)...)
}

func reduceToggleScreenShare(state State) (State, []actor.Effect) {
	if state.ShareStarting {
		return state, nil
	}
	if state.LocalMedia.IsScreenSharing {
		state.LocalMedia.IsScreenSharing = false
		return state, append([]actor.Effect{effMedia{Op: mediaStopShare}}, mediaUpdate(state)...)
	}
	state.ShareStarting = true
	return state, []actor.Effect{effMedia{Op: mediaStartShare}, effRender{}}
}

func reduceMediaNotice(state State, n media.Notice) (State, []actor.Effect) {
	switch n.Kind {
	case media.NoticeConnectionState:
		state.MediaState = n.State.String()
		return state, []actor.Effect{effRender{}}
	case media.NoticeRemoteTrack:
		state.RemoteTracks = appendCopy(state.RemoteTracks, n.Track)
		return state, []actor.Effect{effRender{}}
	case media.NoticeScreenShareEnded:
		// The capture stopped on its own; put the camera back.
		if !state.LocalMedia.IsScreenSharing {
			return state, nil
		}
		state.LocalMedia.IsScreenSharing = false
		return state, append([]actor.Effect{effMedia{Op: mediaStopShare}}, mediaUpdate(state)...)
	case media.NoticeError:
		return notify(state, LevelWarn, fmt.Sprintf("Media error: %v", n.Err))
	}
	return state, nil
}

func reduceDismiss(state State, id int) (State, []actor.Effect) {
	out := make([]Notification, 0, len(state.Notifications))
	for _, n := range state.Notifications {
		if n.ID != id {
			out = append(out, n)
		}
	}
	if len(out) == len(state.Notifications) {
		return state, nil
	}
	state.Notifications = out
	return state, []actor.Effect{effRender{}}
}

func reduceStatus(state State, ev evStatus) (State, []actor.Effect) {
	switch ev.Status {
	case channel.StatusSubscribed:
		state.Conn = ConnLive
		if ev.Self != "" {
			state.Self.ID = ev.Self
		}
		return state, []actor.Effect{
			effMedia{Op: mediaSetSelf, Self: state.Self.ID},
			effBroadcast{Event: wire.EventMediaUpdate, Payload: state.LocalMedia},
			effBroadcast{Event: wire.EventPeerJoined, Payload: wire.PeerJoined{}},
			effRender{},
		}
	case channel.StatusFailed:
		state.Conn = ConnOffline
		msg := "Realtime connection failed; changes stay on this device"
		if errors.Is(ev.Err, channel.ErrTopicFull) {
			msg = "This session already has two participants"
		}
		return notify(state, LevelError, msg)
	case channel.StatusPeerLeft:
		state.PeerPresent = false
		state.RemoteMedia = nil
		state.RemoteTracks = nil
		state.MediaState = ""
		var effects []actor.Effect
		state, effects = notify(state, LevelInfo, "Your partner left the session")
		return state, append([]actor.Effect{effMedia{Op: mediaReset}}, effects...)
	case channel.StatusClosed:
		state.Conn = ConnOffline
		state.PeerPresent = false
		return notify(state, LevelWarn, "Realtime connection lost; changes stay on this device")
	}
	return state, nil
}

// reduceInbound applies one remote envelope. Malformed payloads are dropped.
func reduceInbound(state State, ev evInbound) (State, []actor.Effect) {
	env := ev.Env
	switch env.Event {
	case wire.EventCodeUpdate:
		p, err := wire.Decode[wire.CodeUpdate](env)
		if err != nil {
			return dropped(state, err)
		}
		state.Scene.SetCode(p.Code, p.Language)
		return state, []actor.Effect{effRender{}}

	case wire.EventElementAdded:
		p, err := wire.Decode[wire.ElementPayload](env)
		if err != nil {
			return dropped(state, err)
		}
		if !state.Scene.AddElement(p.Element) {
			return state, nil
		}
		return state, []actor.Effect{effRender{}}

	case wire.EventElementUpdated:
		p, err := wire.Decode[wire.ElementPayload](env)
		if err != nil {
			return dropped(state, err)
		}
		if !state.Scene.ReplaceElement(p.Element) {
			return state, nil
		}
		return state, []actor.Effect{effRender{}}

	case wire.EventElementRemoved:
		p, err := wire.Decode[wire.ElementRemoved](env)
		if err != nil {
			return dropped(state, err)
		}
		if !state.Scene.RemoveElement(p.ID) {
			return state, nil
		}
		if state.Selected == p.ID {
			state.Selected = ""
		}
		return state, []actor.Effect{effRender{}}

	case wire.EventClearCanvas:
		state = clearScene(state)
		return state, []actor.Effect{effRender{}}

	case wire.EventChatMessage:
		p, err := wire.Decode[wire.ChatMessage](env)
		if err != nil {
			return dropped(state, err)
		}
		ts := ev.At
		if p.Timestamp > 0 {
			ts = time.UnixMilli(p.Timestamp)
		}
		state.Chat = appendCopy(state.Chat, ChatMessage{
			ID:          p.ID,
			Role:        RoleRemote,
			DisplayName: p.Name,
			Text:        p.Text,
			Timestamp:   ts,
		})
		return state, []actor.Effect{effRender{}}

	case wire.EventFileShared:
		p, err := wire.Decode[wire.FileShared](env)
		if err != nil {
			return dropped(state, err)
		}
		state.Files = appendCopy(state.Files, p.File)
		return state, []actor.Effect{effRender{}}

	case wire.EventMediaUpdate:
		p, err := wire.Decode[wire.MediaStatus](env)
		if err != nil {
			return dropped(state, err)
		}
		state.PeerPresent = true
		state.RemoteMedia = &p
		return state, []actor.Effect{effRender{}}

	case wire.EventPeerJoined:
		state.PeerPresent = true
		// The newcomer missed our join-time announcement.
		return state, []actor.Effect{
			effMedia{Op: mediaSignal, Env: env},
			effBroadcast{Event: wire.EventMediaUpdate, Payload: state.LocalMedia},
			effRender{},
		}

	case wire.EventWebRTCOffer, wire.EventWebRTCAnswer, wire.EventWebRTCICE:
		state.PeerPresent = true
		return state, []actor.Effect{effMedia{Op: mediaSignal, Env: env}}
	}
	logger.Debugf("session: ignoring unknown event %q", env.Event)
	return state, nil
}

func dropped(state State, err error) (State, []actor.Effect) {
	logger.Debugf("session: dropping inbound payload: %v", err)
	return state, nil
}

func notify(state State, level Level, message string) (State, []actor.Effect) {
	state.NextNoticeID++
	n := Notification{ID: state.NextNoticeID, Level: level, Message: message}
	list := appendCopy(state.Notifications, n)
	if len(list) > MaxNotifications {
		list = list[len(list)-MaxNotifications:]
	}
	state.Notifications = list
	return state, []actor.Effect{effNotify{Notification: n}, effRender{}}
}

// appendCopy appends without writing into a backing array that an earlier
// State value may still share.
func appendCopy[T any](list []T, item T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, item)
}

func withRender(effects []actor.Effect) []actor.Effect {
	for _, eff := range effects {
		if _, ok := eff.(effRender); ok {
			return effects
		}
	}
	return append(effects, effRender{})
}
