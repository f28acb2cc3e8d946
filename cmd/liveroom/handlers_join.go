package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/channel/socketio"
	"github.com/piyushdolas8/skillswap/internal/channel/wsclient"
	"github.com/piyushdolas8/skillswap/internal/config"
	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/internal/database"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/internal/profile"
	"github.com/piyushdolas8/skillswap/internal/session"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

type joinOptions struct {
	name    string
	noMedia bool
}

func runJoin(cmd *cobra.Command, target string, opts joinOptions) error {
	topic, server, err := parseJoinTarget(target)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if server != "" && !cmd.Flags().Changed("server") {
		cfg.ServerURL = server
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return errors.New(`no relay token: run "liveroom token --save" or pass --token`)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name, err := resolveName(ctx, cfg, topic, opts.name)
	if err != nil {
		return err
	}

	uploader, err := storage.NewRelayUploader(cfg.ServerURL, cfg.Token)
	if err != nil {
		return err
	}

	var (
		factory media.PeerFactory
		devices media.Devices
	)
	if !cfg.DisableMedia && !opts.noMedia {
		factory, err = media.NewPionFactory(cfg.STUNServers)
		if err != nil {
			return fmt.Errorf("media: %w", err)
		}
		devices = media.SyntheticDevices{}
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	f := &feed{out: out}
	ctrl, err := session.New(session.Config{
		Topic:       topic,
		Self:        session.Participant{Name: name},
		Channel:     openChannel(cfg, topic),
		PeerFactory: factory,
		Devices:     devices,
		Uploader:    uploader,
		OnRender:    f.render,
		OnNotify:    f.notify,
	})
	if err != nil {
		return err
	}
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Warnf("close session: %v", err)
		}
	}()

	fmt.Fprintf(out, "joining %s as %s over %s (type help for commands)\n", topic, name, cfg.Transport)
	return readCommands(ctx, cmd.InOrStdin(), &repl{d: ctrl, out: out})
}

func openChannel(cfg *config.ClientConfig, topic string) channel.Channel {
	if cfg.Transport == config.TransportWS {
		return wsclient.New(cfg.ServerURL, cfg.Token, topic)
	}
	return socketio.New(cfg.ServerURL, cfg.Token, topic)
}

// resolveName picks the display name from the flag, then the saved profile,
// then the token. Joining with a saved profile also records the session in
// its history.
func resolveName(ctx context.Context, cfg *config.ClientConfig, topic, name string) (string, error) {
	if cfg.ProfileID != "" {
		db, err := database.Open(cfg.DatabasePath)
		if err != nil {
			return "", err
		}
		defer db.Close()

		profiles := profile.NewStore(db)
		p, err := profiles.Get(ctx, cfg.ProfileID)
		switch {
		case errors.Is(err, profile.ErrNotFound):
			logger.Warnf("profile %s not found; run \"liveroom profile set\"", cfg.ProfileID)
		case err != nil:
			return "", err
		default:
			if name == "" {
				name = p.DisplayName
			}
			if err := profiles.RecordSession(ctx, p.ID, topic, ""); err != nil {
				logger.Warnf("%v", err)
			}
		}
	}
	if name == "" {
		if claims, err := crypto.PeekClaims(cfg.Token); err == nil {
			name = claims.Name
		}
	}
	return name, nil
}

// readCommands feeds stdin lines to r until EOF, quit or ctx is done.
func readCommands(ctx context.Context, in io.Reader, r *repl) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if err := r.exec(line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
	}
}

// feed prints what changed between snapshots. It runs on the session loop
// goroutine only.
type feed struct {
	out   io.Writer
	conn  session.ConnStatus
	peer  bool
	chat  int
	files int
}

func (f *feed) render(s session.Snapshot) {
	if s.Conn != f.conn {
		f.conn = s.Conn
		fmt.Fprintf(f.out, "* connection %s\n", s.Conn)
	}
	if s.PeerPresent != f.peer {
		f.peer = s.PeerPresent
		if s.PeerPresent {
			fmt.Fprintln(f.out, "* partner joined")
		} else {
			fmt.Fprintln(f.out, "* partner left")
		}
	}

	if len(s.Chat) < f.chat {
		f.chat = 0
	}
	for _, m := range s.Chat[f.chat:] {
		if m.Role == session.RoleRemote {
			fmt.Fprintf(f.out, "%s %s: %s\n", m.Timestamp.Format("15:04"), m.DisplayName, m.Text)
		}
	}
	f.chat = len(s.Chat)

	if len(s.Files) < f.files {
		f.files = 0
	}
	for _, file := range s.Files[f.files:] {
		fmt.Fprintf(f.out, "* %s shared %s: %s\n", file.UploaderName, file.Name, file.URL)
	}
	f.files = len(s.Files)
}

func (f *feed) notify(n session.Notification) {
	fmt.Fprintf(f.out, "[%d] %s: %s\n", n.ID, n.Level, n.Message)
}

// syncWriter serializes writes from the command loop and the session loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
