package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/piyushdolas8/skillswap/internal/assist"
	"github.com/piyushdolas8/skillswap/internal/config"
	"github.com/piyushdolas8/skillswap/internal/database"
	"github.com/piyushdolas8/skillswap/internal/discovery"
	"github.com/piyushdolas8/skillswap/internal/profile"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

const defaultDiscoverTimeout = discovery.DefaultTimeout

func runDiscover(cmd *cobra.Command, timeout time.Duration) error {
	relays, err := discovery.Lookup(cmd.Context(), timeout)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(relays) == 0 {
		fmt.Fprintln(out, "No relays found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tURL\tPATH")
	for _, r := range relays {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Instance, r.URL(), r.Info["path"])
	}
	return w.Flush()
}

// newAssistant falls back to canned answers when no API key is configured.
func newAssistant(cfg *config.ClientConfig) *assist.Service {
	if cfg.OpenAIKey == "" {
		return assist.NewService(nil)
	}
	gen, err := assist.NewOpenAIGenerator(cfg.OpenAIKey, cfg.AIModel, cfg.AIBaseURL)
	if err != nil {
		logger.Warnf("assistant disabled: %v", err)
		return assist.NewService(nil)
	}
	return assist.NewService(gen)
}

func runExplain(cmd *cobra.Command, idA, idB string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	profiles := profile.NewStore(db)
	a, err := loadProfile(ctx, profiles, idA)
	if err != nil {
		return err
	}
	b, err := loadProfile(ctx, profiles, idB)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), newAssistant(cfg).MatchExplanation(ctx, a, b))
	return nil
}

func runRoadmap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	skill := strings.Join(args, " ")
	out := cmd.OutOrStdout()
	for i, step := range newAssistant(cfg).Roadmap(cmd.Context(), skill) {
		fmt.Fprintf(out, "%d. %s\n", i+1, step)
	}
	return nil
}

func loadProfile(ctx context.Context, store *profile.Store, id string) (profile.Profile, error) {
	p, err := store.Get(ctx, id)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}
	return p, nil
}
