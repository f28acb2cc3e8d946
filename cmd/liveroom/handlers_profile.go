package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/piyushdolas8/skillswap/internal/database"
	"github.com/piyushdolas8/skillswap/internal/profile"
)

type profileOptions struct {
	name   string
	bio    string
	avatar string
	teach  []string
	learn  []string
}

// runProfileSet merges the flags the user passed into the stored profile.
func runProfileSet(cmd *cobra.Command, id string, opts profileOptions) error {
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
	store := profile.NewStore(db)
	p, err := store.Get(ctx, id)
	if errors.Is(err, profile.ErrNotFound) {
		p = profile.Profile{ID: id}
	} else if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		p.DisplayName = opts.name
	}
	if flags.Changed("bio") {
		p.Bio = opts.bio
	}
	if flags.Changed("avatar") {
		p.AvatarURL = opts.avatar
	}
	if flags.Changed("teach") {
		p.TeachSkills = opts.teach
	}
	if flags.Changed("learn") {
		p.LearnSkills = opts.learn
	}

	saved, err := store.Upsert(ctx, p)
	if err != nil {
		return err
	}
	if cfg.ProfileID != saved.ID {
		cfg.ProfileID = saved.ID
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s (%s)\n", saved.ID, saved.DisplayName)
	return nil
}

func runProfileShow(cmd *cobra.Command, id string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if id == "" {
		id = cfg.ProfileID
	}
	if id == "" {
		return errors.New(`no profile selected: run "liveroom profile set <id>"`)
	}
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := loadProfile(cmd.Context(), profile.NewStore(db), id)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

func runProfileHistory(cmd *cobra.Command, limit int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.ProfileID == "" {
		return errors.New(`no profile selected: run "liveroom profile set <id>"`)
	}
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := profile.NewStore(db).History(cmd.Context(), cfg.ProfileID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No sessions yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOINED\tTOPIC\tPARTNER")
	for _, r := range records {
		partner := r.Partner
		if partner == "" {
			partner = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.JoinedAt.Local().Format("2006-01-02 15:04"), r.Topic, partner)
	}
	return w.Flush()
}

func runExport(cmd *cobra.Command, in, out string) error {
	board, err := loadBoard(in)
	if err != nil {
		return err
	}
	if err := writeBoard(out, board); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}
