package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/lawstudy/internal/challenges"
	"github.com/example/lawstudy/internal/syncengine"
)

func newChallengeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Create and follow head-to-head challenges",
	}
	cmd.AddCommand(newChallengeCreateCmd(opts), newChallengeListCmd(opts), newChallengeCheckCmd(opts), newChallengeRematchCmd(opts))
	return cmd
}

func newChallengeCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		from, to, kind, description string
		target                      int
		days                        int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Challenge the partner",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := challenges.ParseType(kind)
			if err != nil {
				return err
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.participant(from); err != nil {
				return err
			}
			if to == "" {
				for _, id := range a.engine.Participants() {
					if id != from {
						to = id
						break
					}
				}
			}
			if err := a.participant(to); err != nil {
				return err
			}

			deadline := a.now().AddDate(0, 0, days)
			c, err := a.engine.CreateChallenge(from, to, t, description, target, deadline)
			if err != nil {
				return err
			}
			a.engine.Tick(cmd.Context())
			cmd.Printf("Created %s: %s (target %d, due %s)\n", c.ID, c.Description, c.TargetValue, c.Deadline.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringVarP(&from, "user", "u", "", "challenger id")
	cmd.Flags().StringVar(&to, "to", "", "challenged participant, defaults to the partner")
	cmd.Flags().StringVarP(&kind, "type", "t", "weekly_topics", "challenge type")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description, defaults to the type's")
	cmd.Flags().IntVar(&target, "target", 0, "target value, defaults to the type's")
	cmd.Flags().IntVar(&days, "days", 7, "days until the deadline")
	return cmd
}

func newChallengeListCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List challenges with live progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			now := a.now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCHALLENGER\tCHALLENGED\tTARGET\tDEADLINE\tWINNER")
			for _, c := range a.engine.GetChallenges() {
				if user != "" && !c.Involves(user) {
					continue
				}
				challenger, challenged := a.resolver.Values(c, now)
				winner := "-"
				if c.WinnerID != nil {
					winner = *c.WinnerID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s (%d)\t%s (%d)\t%d\t%s\t%s\n",
					c.ID, c.Type, c.Status, c.ChallengerID, challenger, c.ChallengedID, challenged,
					c.TargetValue, c.Deadline.In(a.location).Format(time.DateOnly), winner)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if user != "" {
				s := challenges.Summarize(a.engine.GetChallenges(), user)
				cmd.Printf("\n%d active, %d completed, %d won (%d%%)\n", s.Active, s.Completed, s.Won, s.WinRate)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "only challenges involving this participant")
	return cmd
}

func newChallengeCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve challenges whose target was reached or deadline passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			resolved := a.resolver.Run(a.now())
			for _, c := range resolved {
				winner := "tie"
				if c.WinnerID != nil {
					winner = *c.WinnerID
				}
				cmd.Printf("%s completed, winner: %s\n", c.ID, winner)
			}
			if len(resolved) == 0 {
				cmd.Println("No challenges to resolve.")
				return nil
			}
			a.engine.Tick(cmd.Context())
			return nil
		},
	}
}

func newChallengeRematchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch <challenge id>",
		Short: "Start a new challenge with the same participants, type and target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			original, ok := a.engine.GetChallenge(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", syncengine.ErrChallengeNotFound, args[0])
			}
			if original.IsActive() {
				return fmt.Errorf("challenge %s is still active", original.ID)
			}
			next, err := challenges.Rematch(original, a.now())
			if err != nil {
				return err
			}
			c, err := a.engine.CreateChallenge(next.ChallengerID, next.ChallengedID, next.Type, next.Description, next.TargetValue, next.Deadline)
			if err != nil {
				return err
			}
			a.engine.Tick(cmd.Context())
			cmd.Printf("Created %s: %s (target %d, due %s)\n", c.ID, c.Description, c.TargetValue, c.Deadline.Format(time.DateOnly))
			return nil
		},
	}
}
