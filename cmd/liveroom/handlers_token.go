package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/piyushdolas8/skillswap/internal/relay"
	"github.com/piyushdolas8/skillswap/internal/relay/middleware"
)

const (
	// joinScheme prefixes the links printed by the qr command.
	joinScheme = "liveroom"

	tokenRequestTimeout = 10 * time.Second
)

type tokenOptions struct {
	secret string
	user   string
	name   string
	topic  string
	save   bool
}

func runToken(cmd *cobra.Command, opts tokenOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	secret := opts.secret
	if secret == "" {
		secret = os.Getenv("SKILLSWAP_MASTER_SECRET")
	}
	if secret == "" {
		return errors.New("master secret is required (--secret or SKILLSWAP_MASTER_SECRET)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), tokenRequestTimeout)
	defer cancel()
	token, err := requestToken(ctx, cfg.ServerURL, secret, relay.TokenRequest{
		UserID: opts.user,
		Name:   opts.name,
		Topic:  opts.topic,
	})
	if err != nil {
		return err
	}

	if opts.save {
		cfg.Token = token
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Token saved to config.")
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func requestToken(ctx context.Context, serverURL, secret string, body relay.TokenRequest) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(serverURL, "/") + "/v1/auth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SecretHeader, secret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: relay answered %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var out relay.TokenResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("relay returned an empty token")
	}
	return out.Token, nil
}

func runQR(cmd *cobra.Command, topic string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	link := joinLink(cfg.ServerURL, topic)
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, qr.ToSmallString(false))
	fmt.Fprintln(out, link)
	return nil
}

// joinLink builds liveroom://join/<topic>?server=<url>.
func joinLink(serverURL, topic string) string {
	u := url.URL{
		Scheme:   joinScheme,
		Host:     "join",
		Path:     "/" + topic,
		RawQuery: url.Values{"server": {serverURL}}.Encode(),
	}
	return u.String()
}

// parseJoinTarget accepts a bare topic or a link from joinLink. server is
// empty for a bare topic.
func parseJoinTarget(arg string) (topic, server string, err error) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, joinScheme+"://") {
		if arg == "" {
			return "", "", errors.New("topic is required")
		}
		return arg, "", nil
	}
	u, err := url.Parse(arg)
	if err != nil {
		return "", "", fmt.Errorf("parse join link: %w", err)
	}
	topic = strings.Trim(u.Path, "/")
	if u.Host != "join" || topic == "" {
		return "", "", fmt.Errorf("not a join link: %s", arg)
	}
	return topic, u.Query().Get("server"), nil
}
