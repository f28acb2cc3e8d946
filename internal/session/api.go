package session

import (
	"time"

	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/scene"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// DefaultStyle is the drawing style a session starts with.
var DefaultStyle = interaction.Style{
	Color:       "#1f2937",
	StrokeWidth: 3,
	FontFamily:  scene.DefaultFontFamily,
	FontSize:    scene.DefaultFontSize,
}

// NewState returns the initial controller state.
func NewState(self Participant, topic string) State {
	return State{
		Self:    self,
		Topic:   topic,
		Conn:    ConnConnecting,
		Tool:    interaction.ToolPencil,
		Style:   DefaultStyle,
		Machine: interaction.New(),
		Scene:   scene.NewStore(),
	}
}

// Start returns the input that subscribes to the channel and acquires local
// media.
func Start() actor.Input { return cmdStart{} }

// PointerDown returns a pointer-down input. id names the element the gesture
// may create.
func PointerDown(p geometry.Point, id string) actor.Input {
	return cmdPointerDown{At: p, ID: id}
}

// PointerMove returns a pointer-move input.
func PointerMove(p geometry.Point) actor.Input { return cmdPointerMove{At: p} }

// PointerUp returns a pointer-up input.
func PointerUp(p geometry.Point) actor.Input { return cmdPointerUp{At: p} }

// TextInput replaces the open text overlay's content.
func TextInput(text string) actor.Input { return cmdTextInput{Text: text} }

// KeyEnter commits pending text, or adds a line break with shift.
func KeyEnter(shift bool) actor.Input { return cmdKeyEnter{Shift: shift} }

// KeyEscape discards pending text.
func KeyEscape() actor.Input { return cmdKeyEscape{} }

// Blur closes the text overlay, committing non-empty text.
func Blur() actor.Input { return cmdBlur{} }

// SelectTool switches the active tool.
func SelectTool(tool interaction.Tool) actor.Input { return cmdSelectTool{Tool: tool} }

// SetColor sets the color for new elements.
func SetColor(color string) actor.Input { return cmdSetColor{Color: color} }

// SetStrokeWidth sets the stroke width for new elements.
func SetStrokeWidth(width float64) actor.Input { return cmdSetStrokeWidth{Width: width} }

// DeleteSelected removes the selected element.
func DeleteSelected() actor.Input { return cmdDeleteSelected{} }

// ClearCanvas empties the whiteboard on both sides.
func ClearCanvas() actor.Input { return cmdClearCanvas{} }

// SetCode replaces the shared code buffer. An empty language keeps the
// current one.
func SetCode(code, language string) actor.Input {
	return cmdSetCode{Code: code, Language: language}
}

// SendChat appends a local chat message and sends it.
func SendChat(id, text string, at time.Time) actor.Input {
	return cmdSendChat{ID: id, Text: text, At: at}
}

// ShareFile uploads data and announces the file once stored.
func ShareFile(id, name string, data []byte, contentType string, at time.Time) actor.Input {
	return cmdShareFile{ID: id, Name: name, Data: data, ContentType: contentType, At: at}
}

// SetMuted sets the microphone state. Setting the current value does nothing.
func SetMuted(muted bool) actor.Input { return cmdSetMuted{Muted: muted} }

// ToggleMute flips the microphone state.
func ToggleMute() actor.Input { return cmdToggleMute{} }

// SetVideoOff sets the camera state. Setting the current value does nothing.
func SetVideoOff(off bool) actor.Input { return cmdSetVideoOff{Off: off} }

// ToggleVideo flips the camera state.
func ToggleVideo() actor.Input { return cmdToggleVideo{} }

// ToggleScreenShare starts or stops sharing the screen.
func ToggleScreenShare() actor.Input { return cmdToggleScreenShare{} }

// Dismiss removes a notification.
func Dismiss(id int) actor.Input { return cmdDismiss{ID: id} }

// Leave ends the session and releases media and the channel. reply, if
// non-nil and buffered, receives nil once teardown has finished.
func Leave(reply chan error) actor.Input { return cmdLeave{Reply: reply} }

// Snapshot is a copy of the controller state for rendering and tests.
type Snapshot struct {
	Self        Participant
	Topic       string
	Conn        ConnStatus
	PeerPresent bool
	Closed      bool

	Tool        interaction.Tool
	Style       interaction.Style
	Selected    string
	Gesture     interaction.State
	PendingText string
	TextAnchor  *geometry.Point

	Elements []scene.Element
	Preview  *scene.Element
	Code     string
	Language string

	Chat  []ChatMessage
	Files []wire.SharedFile

	LocalMedia        wire.MediaStatus
	RemoteMedia       *wire.MediaStatus
	MediaState        string
	RemoteTracks      []string
	LocalMediaOffline bool

	Uploading     int
	Notifications []Notification
}

// Snapshot copies s so the result can leave the loop goroutine.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		Self:              s.Self,
		Topic:             s.Topic,
		Conn:              s.Conn,
		PeerPresent:       s.PeerPresent,
		Closed:            s.Closed,
		Tool:              s.Tool,
		Style:             s.Style,
		Selected:          s.Selected,
		Gesture:           s.Machine.State(),
		PendingText:       s.Machine.PendingText(),
		Chat:              append([]ChatMessage(nil), s.Chat...),
		Files:             append([]wire.SharedFile(nil), s.Files...),
		LocalMedia:        s.LocalMedia,
		MediaState:        s.MediaState,
		RemoteTracks:      append([]string(nil), s.RemoteTracks...),
		LocalMediaOffline: s.LocalMediaOffline,
		Uploading:         s.Uploading,
		Notifications:     append([]Notification(nil), s.Notifications...),
	}
	if s.Scene != nil {
		snap.Elements = s.Scene.Elements()
		snap.Code, snap.Language = s.Scene.Code()
	}
	if s.Preview != nil {
		p := s.Preview.Clone()
		snap.Preview = &p
	}
	if s.TextAnchor != nil {
		a := *s.TextAnchor
		snap.TextAnchor = &a
	}
	if s.RemoteMedia != nil {
		m := *s.RemoteMedia
		snap.RemoteMedia = &m
	}
	return snap
}
