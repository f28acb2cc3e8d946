package main

import "github.com/spf13/cobra"

func buildJoinCmd() *cobra.Command {
	var opts joinOptions
	cmd := &cobra.Command{
		Use:   "join <topic|link>",
		Short: "Join a session topic and read commands from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (defaults to the profile or token name)")
	cmd.Flags().BoolVar(&opts.noMedia, "no-media", false, "Join without audio and video")
	return cmd
}

func buildTokenCmd() *cobra.Command {
	var opts tokenOptions
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Request an access token from the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.secret, "secret", "", "Relay master secret (or set SKILLSWAP_MASTER_SECRET)")
	cmd.Flags().StringVar(&opts.user, "user", "", "User id (random when empty)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name stored in the token")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Restrict the token to one topic")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the token in the config file")
	return cmd
}

func buildQRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qr <topic>",
		Short: "Print a QR code that opens the session on another device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQR(cmd, args[0])
		},
	}
}

func buildDiscoverCmd() *cobra.Command {
	var timeout = defaultDiscoverTimeout
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find relays on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "How long to listen for answers")
	return cmd
}

func buildExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <profile-a> <profile-b>",
		Short: "Explain why two profiles make a good skill swap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], args[1])
		},
	}
}

func buildRoadmapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roadmap <skill>",
		Short: "Suggest learning steps for a skill",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoadmap(cmd, args)
		},
	}
}

func buildExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <board.json> <out.png|out.pdf>",
		Short: "Render a saved whiteboard to an image or PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], args[1])
		},
	}
}

// buildProfileCmd creates the "profile" command group.
func buildProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the local learner profile",
	}
	cmd.AddCommand(buildProfileSetCmd(), buildProfileShowCmd(), buildProfileHistoryCmd())
	return cmd
}

func buildProfileSetCmd() *cobra.Command {
	var opts profileOptions
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update a profile and make it the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileSet(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name")
	cmd.Flags().StringVar(&opts.bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&opts.avatar, "avatar", "", "Avatar image URL")
	cmd.Flags().StringSliceVar(&opts.teach, "teach", nil, "Skills you can teach (comma separated)")
	cmd.Flags().StringSliceVar(&opts.learn, "learn", nil, "Skills you want to learn (comma separated)")
	return cmd
}

func buildProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a profile as YAML",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			return runProfileShow(cmd, id)
		},
	}
}

func buildProfileHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions of the default profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	return cmd
}
