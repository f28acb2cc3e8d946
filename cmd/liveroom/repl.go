package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/session"
)

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// maxShareBytes caps files read for the share command.
const maxShareBytes = 25 << 20

// driver is the part of session.Controller the command loop uses.
type driver interface {
	Snapshot() session.Snapshot
	PointerDown(p geometry.Point) error
	PointerMove(p geometry.Point) error
	PointerUp(p geometry.Point) error
	TextInput(text string) error
	KeyEnter(shift bool) error
	KeyEscape() error
	SelectTool(tool interaction.Tool) error
	SetColor(color string) error
	SetStrokeWidth(width float64) error
	DeleteSelected() error
	ClearCanvas() error
	SetCode(code, language string) error
	SendChat(text string) error
	ShareFile(name string, data []byte, contentType string) error
	ToggleMute() error
	ToggleVideo() error
	ToggleScreenShare() error
	Dismiss(id int) error
}

var _ driver = (*session.Controller)(nil)

type replCommand struct {
	usage string
	help  string
	run   func(r *repl, args []string, rest string) error
}

// repl interprets one line at a time against a driver.
type repl struct {
	d   driver
	out io.Writer
}

var replCommands map[string]replCommand

func init() {
	replCommands = map[string]replCommand{
		"tool":    {"tool <name>", "switch tool (select, pencil, eraser, rectangle, circle, text)", cmdTool},
		"color":   {"color <#rrggbb>", "set the drawing color", cmdColor},
		"width":   {"width <n>", "set the stroke width", cmdWidth},
		"drag":    {"drag x,y x,y [x,y...]", "press, move through the points and release with the current tool", cmdDrag},
		"click":   {"click x,y", "press and release at a point", cmdClick},
		"pencil":  {"pencil x,y x,y [x,y...]", "draw a freehand stroke", toolDrag(interaction.ToolPencil)},
		"erase":   {"erase x,y x,y [x,y...]", "erase along a path", toolDrag(interaction.ToolEraser)},
		"rect":    {"rect x,y x,y", "draw a rectangle between two corners", toolDrag(interaction.ToolRectangle)},
		"circle":  {"circle x,y x,y", "draw an ellipse inside two corners", toolDrag(interaction.ToolCircle)},
		"text":    {"text x,y <words>", `place text; \n breaks the line`, cmdText},
		"select":  {"select x,y", "select the topmost element at a point", cmdSelect},
		"delete":  {"delete", "delete the selected element", simple(driver.DeleteSelected)},
		"clear":   {"clear", "clear the whiteboard for both participants", simple(driver.ClearCanvas)},
		"code":    {"code <language> <text>", `replace the shared code; \n breaks the line`, cmdCode},
		"load":    {"load <path> [language]", "replace the shared code with a file", cmdLoad},
		"say":     {"say <text>", "send a chat message", cmdSay},
		"share":   {"share <path>", "upload a file and share it", cmdShare},
		"mute":    {"mute", "toggle the microphone", simple(driver.ToggleMute)},
		"video":   {"video", "toggle the camera", simple(driver.ToggleVideo)},
		"screen":  {"screen", "toggle screen sharing", simple(driver.ToggleScreenShare)},
		"dismiss": {"dismiss <id>", "dismiss a notification", cmdDismiss},
		"status":  {"status", "show the session state", cmdStatus},
		"export":  {"export <path.png|.pdf|.json>", "save the whiteboard", cmdExport},
		"help":    {"help", "list commands", cmdHelp},
		"quit":    {"quit", "leave the session", func(*repl, []string, string) error { return errQuit }},
	}
	replCommands["exit"] = replCommands["quit"]
}

// exec runs one input line. Blank lines and # comments are ignored.
func (r *repl) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	cmd, ok := replCommands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return cmd.run(r, strings.Fields(rest), rest)
}

func simple(fn func(driver) error) func(*repl, []string, string) error {
	return func(r *repl, _ []string, _ string) error { return fn(r.d) }
}

func parsePoint(s string) (geometry.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Point{}, fmt.Errorf("bad point %q, want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("bad point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("bad point %q: %w", s, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func parsePoints(args []string, atLeast int) ([]geometry.Point, error) {
	if len(args) < atLeast {
		return nil, fmt.Errorf("need at least %d points", atLeast)
	}
	pts := make([]geometry.Point, 0, len(args))
	for _, a := range args {
		p, err := parsePoint(a)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func cmdTool(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: tool <name>")
	}
	tool := interaction.Tool(strings.ToLower(args[0]))
	if !tool.Valid() {
		return fmt.Errorf("unknown tool %q", args[0])
	}
	return r.d.SelectTool(tool)
}

func cmdColor(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: color <#rrggbb>")
	}
	return r.d.SetColor(args[0])
}

func cmdWidth(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: width <n>")
	}
	w, err := strconv.ParseFloat(args[0], 64)
	if err != nil || w <= 0 {
		return fmt.Errorf("bad width %q", args[0])
	}
	return r.d.SetStrokeWidth(w)
}

// drag replays a pointer gesture through pts.
func (r *repl) drag(pts []geometry.Point) error {
	if err := r.d.PointerDown(pts[0]); err != nil {
		return err
	}
	for _, p := range pts[1:] {
		if err := r.d.PointerMove(p); err != nil {
			return err
		}
	}
	return r.d.PointerUp(pts[len(pts)-1])
}

func cmdDrag(r *repl, args []string, _ string) error {
	pts, err := parsePoints(args, 2)
	if err != nil {
		return err
	}
	return r.drag(pts)
}

func cmdClick(r *repl, args []string, _ string) error {
	pts, err := parsePoints(args, 1)
	if err != nil {
		return err
	}
	return r.drag(pts[:1])
}

func toolDrag(tool interaction.Tool) func(*repl, []string, string) error {
	return func(r *repl, args []string, _ string) error {
		pts, err := parsePoints(args, 2)
		if err != nil {
			return err
		}
		if err := r.d.SelectTool(tool); err != nil {
			return err
		}
		return r.drag(pts)
	}
}

func cmdSelect(r *repl, args []string, _ string) error {
	pts, err := parsePoints(args, 1)
	if err != nil {
		return err
	}
	if err := r.d.SelectTool(interaction.ToolSelect); err != nil {
		return err
	}
	return r.drag(pts[:1])
}

func cmdText(r *repl, args []string, _ string) error {
	if len(args) < 2 {
		return errors.New("usage: text x,y <words>")
	}
	p, err := parsePoint(args[0])
	if err != nil {
		return err
	}
	if err := r.d.SelectTool(interaction.ToolText); err != nil {
		return err
	}
	if err := r.d.PointerDown(p); err != nil {
		return err
	}
	if err := r.d.TextInput(unescape(strings.Join(args[1:], " "))); err != nil {
		return err
	}
	return r.d.KeyEnter(false)
}

func cmdCode(r *repl, args []string, rest string) error {
	if len(args) < 1 {
		return errors.New("usage: code <language> <text>")
	}
	_, text, _ := strings.Cut(rest, " ")
	return r.d.SetCode(unescape(strings.TrimSpace(text)), args[0])
}

func cmdLoad(r *repl, args []string, _ string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: load <path> [language]")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	lang := strings.TrimPrefix(filepath.Ext(args[0]), ".")
	if len(args) == 2 {
		lang = args[1]
	}
	return r.d.SetCode(string(raw), lang)
}

func cmdSay(r *repl, _ []string, rest string) error {
	if rest == "" {
		return errors.New("usage: say <text>")
	}
	return r.d.SendChat(rest)
}

func cmdShare(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: share <path>")
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if info.Size() > maxShareBytes {
		return fmt.Errorf("%s is larger than %d MB", args[0], maxShareBytes>>20)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(args[0]))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return r.d.ShareFile(filepath.Base(args[0]), data, contentType)
}

func cmdDismiss(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: dismiss <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad notification id %q", args[0])
	}
	return r.d.Dismiss(id)
}

func cmdExport(r *repl, args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: export <path.png|.pdf|.json>")
	}
	snap := r.d.Snapshot()
	board := savedBoard{
		Topic:    snap.Topic,
		SavedAt:  time.Now().UTC(),
		Elements: snap.Elements,
		Code:     snap.Code,
		Language: snap.Language,
	}
	if err := writeBoard(args[0], board); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved %d elements to %s\n", len(snap.Elements), args[0])
	return nil
}

func cmdStatus(r *repl, _ []string, _ string) error {
	printStatus(r.out, r.d.Snapshot())
	return nil
}

func cmdHelp(r *repl, _ []string, _ string) error {
	names := make([]string, 0, len(replCommands))
	for name := range replCommands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c := replCommands[name]
		fmt.Fprintf(r.out, "  %-32s %s\n", c.usage, c.help)
	}
	return nil
}

func printStatus(out io.Writer, s session.Snapshot) {
	peer := "waiting for partner"
	if s.PeerPresent {
		peer = "partner connected"
	}
	fmt.Fprintf(out, "%s on %s: %s, %s\n", s.Self.Name, s.Topic, s.Conn, peer)
	fmt.Fprintf(out, "tool %s, color %s, width %g", s.Tool, s.Style.Color, s.Style.StrokeWidth)
	if s.Selected != "" {
		fmt.Fprintf(out, ", selected %s", s.Selected)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "board: %d elements, code: %d bytes", len(s.Elements), len(s.Code))
	if s.Language != "" {
		fmt.Fprintf(out, " (%s)", s.Language)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "media: %s, muted=%t video-off=%t screen=%t", mediaLabel(s), s.LocalMedia.IsMuted, s.LocalMedia.IsVideoOff, s.LocalMedia.IsScreenSharing)
	if s.RemoteMedia != nil {
		fmt.Fprintf(out, ", partner muted=%t video-off=%t screen=%t", s.RemoteMedia.IsMuted, s.RemoteMedia.IsVideoOff, s.RemoteMedia.IsScreenSharing)
	}
	fmt.Fprintln(out)
	for _, f := range s.Files {
		fmt.Fprintf(out, "file: %s (%d bytes) %s\n", f.Name, f.SizeBytes, f.URL)
	}
	if s.Uploading > 0 {
		fmt.Fprintf(out, "uploading: %d\n", s.Uploading)
	}
	for _, n := range s.Notifications {
		fmt.Fprintf(out, "[%d] %s: %s\n", n.ID, n.Level, n.Message)
	}
}

func mediaLabel(s session.Snapshot) string {
	switch {
	case s.LocalMediaOffline:
		return "offline"
	case s.MediaState == "":
		return "off"
	default:
		return s.MediaState
	}
}
