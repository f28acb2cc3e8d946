// Package session is the controller for one participant in a live session.
//
// It owns the local UI state (tool, style, selection, media toggles), the
// scene store, the chat log and the shared-file list. All of it lives on an
// actor loop: local commands and inbound channel traffic are reduced into the
// next State plus effects, and the Runtime performs the broadcasts, uploads
// and media calls. Every local mutation is paired with exactly one broadcast.
package session

import (
	"time"

	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/internal/scene"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// MaxNotifications bounds the notification list; older entries drop off.
const MaxNotifications = 8

// Participant identifies one side of the session.
type Participant struct {
	ID   string
	Name string
}

// ConnStatus is the realtime channel state as the user sees it.
type ConnStatus string

const (
	ConnConnecting ConnStatus = "connecting"
	ConnLive       ConnStatus = "live"
	// ConnOffline means the channel failed or dropped. Edits stay local.
	ConnOffline ConnStatus = "offline"
	ConnClosed  ConnStatus = "closed"
)

// Role labels who wrote a chat message.
type Role string

const (
	RoleLocal  Role = "local"
	RoleRemote Role = "remote"
)

// ChatMessage is one chat log entry, kept in local receipt order.
type ChatMessage struct {
	ID          string
	Role        Role
	DisplayName string
	Text        string
	Timestamp   time.Time
}

// Level grades a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notification is a transient, dismissible message for the user.
type Notification struct {
	ID      int
	Level   Level
	Message string
}

// State is the loop-owned controller state.
type State struct {
	Self  Participant
	Topic string

	Conn        ConnStatus
	PeerPresent bool
	Closed      bool

	Tool     interaction.Tool
	Style    interaction.Style
	Selected string
	Machine  interaction.Machine
	// Preview is the uncommitted element of the gesture in progress.
	Preview *scene.Element
	// TextAnchor is set while the text overlay is open.
	TextAnchor *geometry.Point

	// Scene is shared with the runtime's renderer. Only the reducer writes it.
	Scene *scene.Store

	Chat  []ChatMessage
	Files []wire.SharedFile

	LocalMedia    wire.MediaStatus
	RemoteMedia   *wire.MediaStatus
	ShareStarting bool
	MediaState    string
	RemoteTracks  []string
	// LocalMediaOffline is set when camera or microphone could not be opened.
	LocalMediaOffline bool

	Uploading     int
	Notifications []Notification
	NextNoticeID  int
}

// Inputs

// Event is a marker interface for runtime and transport events.
type Event interface {
	actor.Input
	isSessionEvent()
}

// Command is a marker interface for local user commands.
type Command interface {
	actor.Input
	isSessionCommand()
}

type cmdStart struct {
	actor.InputBase
}

func (cmdStart) isSessionCommand() {}

type cmdPointerDown struct {
	actor.InputBase
	At geometry.Point
	// ID is used if the gesture creates an element.
	ID string
}

func (cmdPointerDown) isSessionCommand() {}

type cmdPointerMove struct {
	actor.InputBase
	At geometry.Point
}

func (cmdPointerMove) isSessionCommand() {}

type cmdPointerUp struct {
	actor.InputBase
	At geometry.Point
}

func (cmdPointerUp) isSessionCommand() {}

type cmdTextInput struct {
	actor.InputBase
	Text string
}

func (cmdTextInput) isSessionCommand() {}

type cmdKeyEnter struct {
	actor.InputBase
	Shift bool
}

func (cmdKeyEnter) isSessionCommand() {}

type cmdKeyEscape struct {
	actor.InputBase
}

func (cmdKeyEscape) isSessionCommand() {}

type cmdBlur struct {
	actor.InputBase
}

func (cmdBlur) isSessionCommand() {}

type cmdSelectTool struct {
	actor.InputBase
	Tool interaction.Tool
}

func (cmdSelectTool) isSessionCommand() {}

type cmdSetColor struct {
	actor.InputBase
	Color string
}

func (cmdSetColor) isSessionCommand() {}

type cmdSetStrokeWidth struct {
	actor.InputBase
	Width float64
}

func (cmdSetStrokeWidth) isSessionCommand() {}

type cmdDeleteSelected struct {
	actor.InputBase
}

func (cmdDeleteSelected) isSessionCommand() {}

type cmdClearCanvas struct {
	actor.InputBase
}

func (cmdClearCanvas) isSessionCommand() {}

type cmdSetCode struct {
	actor.InputBase
	Code     string
	Language string
}

func (cmdSetCode) isSessionCommand() {}

type cmdSendChat struct {
	actor.InputBase
	ID   string
	Text string
	At   time.Time
}

func (cmdSendChat) isSessionCommand() {}

type cmdShareFile struct {
	actor.InputBase
	ID          string
	Name        string
	Data        []byte
	ContentType string
	At          time.Time
}

func (cmdShareFile) isSessionCommand() {}

type cmdSetMuted struct {
	actor.InputBase
	Muted bool
}

func (cmdSetMuted) isSessionCommand() {}

type cmdToggleMute struct {
	actor.InputBase
}

func (cmdToggleMute) isSessionCommand() {}

type cmdSetVideoOff struct {
	actor.InputBase
	Off bool
}

func (cmdSetVideoOff) isSessionCommand() {}

type cmdToggleVideo struct {
	actor.InputBase
}

func (cmdToggleVideo) isSessionCommand() {}

type cmdToggleScreenShare struct {
	actor.InputBase
}

func (cmdToggleScreenShare) isSessionCommand() {}

type cmdDismiss struct {
	actor.InputBase
	ID int
}

func (cmdDismiss) isSessionCommand() {}

type cmdLeave struct {
	actor.InputBase
	Reply chan error
}

func (cmdLeave) isSessionCommand() {}

// Events emitted by the runtime and the channel back into the reducer.

type evStatus struct {
	actor.InputBase
	Status channel.Status
	Err    error
	// Self is the channel's participant id at the time of the status.
	Self string
}

func (evStatus) isSessionEvent() {}

type evInbound struct {
	actor.InputBase
	Env wire.Envelope
	At  time.Time
}

func (evInbound) isSessionEvent() {}

type evUploadDone struct {
	actor.InputBase
	File wire.SharedFile
}

func (evUploadDone) isSessionEvent() {}

type evUploadFailed struct {
	actor.InputBase
	Name string
	Err  error
}

func (evUploadFailed) isSessionEvent() {}

type evLocalMediaFailed struct {
	actor.InputBase
	Err error
}

func (evLocalMediaFailed) isSessionEvent() {}

type evScreenShareStarted struct {
	actor.InputBase
}

func (evScreenShareStarted) isSessionEvent() {}

type evScreenShareFailed struct {
	actor.InputBase
	Err error
}

func (evScreenShareFailed) isSessionEvent() {}

type evMediaNotice struct {
	actor.InputBase
	Notice media.Notice
}

func (evMediaNotice) isSessionEvent() {}

// Effects

type effSubscribe struct {
	actor.EffectBase
}

type effBroadcast struct {
	actor.EffectBase
	Event   wire.Event
	Payload any
}

type effRender struct {
	actor.EffectBase
}

type effNotify struct {
	actor.EffectBase
	Notification Notification
}

type effUpload struct {
	actor.EffectBase
	File        wire.SharedFile
	Key         string
	Data        []byte
	ContentType string
}

// mediaOp names a call on the media session.
type mediaOp string

const (
	mediaAcquire     mediaOp = "acquire"
	mediaSetSelf     mediaOp = "set-self"
	mediaSignal      mediaOp = "signal"
	mediaSetMuted    mediaOp = "set-muted"
	mediaSetVideoOff mediaOp = "set-video-off"
	mediaStartShare  mediaOp = "start-share"
	mediaStopShare   mediaOp = "stop-share"
	mediaReset       mediaOp = "reset"
)

type effMedia struct {
	actor.EffectBase
	Op   mediaOp
	Flag bool
	Self string
	Env  wire.Envelope
}

type effTeardown struct {
	actor.EffectBase
	Reply chan error
}
