package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	sr "github.com/example/lawstudy/internal/spaced_repetition"
	"github.com/example/lawstudy/pkg/models"
)

func newDeckCmd(opts *rootOptions) *cobra.Command {
	var user, subject string
	var shuffle bool
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Show the cards due for a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.participant(user); err != nil {
				return err
			}

			cards := a.study.BuildDeck(user, subject)
			if len(cards) == 0 {
				cmd.Println("Nothing is due right now.")
				return nil
			}
			if shuffle {
				sr.Shuffle(cards, nil)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tTOPIC\tTITLE\tMASTERY")
			for _, card := range cards {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n", card.Priority, card.Topic.ID, card.Title, card.MasteryLevel)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "participant id")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject id, empty for all subjects")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle the display order")
	return cmd
}

func newRateCmd(opts *rootOptions) *cobra.Command {
	var user, topic, rating string
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Record a flashcard rating (hard, medium or easy)",
		RunE: func(cmd *cobra.Command, args []string) error {
			confidence, err := models.ParseConfidence(rating)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.participant(user); err != nil {
				return err
			}

			before := a.engine.GetUserData(user).Points
			record, err := a.study.Rate(user, topic, confidence)
			if err != nil {
				return err
			}
			a.engine.Tick(cmd.Context())
			cmd.Printf("%s: mastery %.1f after %d reviews (+%d points)\n",
				topic, record.MasteryLevel, record.StudyCount, a.engine.GetUserData(user).Points-before)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "participant id")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic id")
	cmd.Flags().StringVarP(&rating, "rating", "r", "", "hard, medium or easy")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show points, level, streak and standing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.participant(user); err != nil {
				return err
			}

			s := a.study.Stats(user)
			cmd.Printf("Points:       %d (level %d, %d/%d)\n", s.Points, s.Level.Level, s.Level.CurrentLevelProgress, s.Level.NextLevelRequirement)
			cmd.Printf("Streak:       %d days\n", s.Streak)
			cmd.Printf("Topics:       %d studied, %d mastered\n", s.TopicsStudied, s.TopicsMastered)
			cmd.Printf("Study time:   %d min\n", s.TotalStudyMinutes)
			cmd.Printf("Achievements: %d\n", s.AchievementsEarned)
			cmd.Printf("Rank:         %d of %d\n", s.Standing.Rank, s.Standing.Total)

			var earned []string
			for _, ach := range a.engine.GetUserAchievements(user) {
				earned = append(earned, ach.Title)
			}
			if len(earned) > 0 {
				cmd.Printf("Earned:       %s\n", strings.Join(earned, ", "))
			}
			for _, id := range a.engine.Participants() {
				if id == user {
					continue
				}
				partner, err := a.study.PartnerStatus(user, id)
				if err != nil {
					continue
				}
				cmd.Printf("\n%s is %s (last active: %s)\n", id, partner.Presence, partner.LastActivity)
				for _, m := range partner.Messages {
					cmd.Println(m)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "participant id")
	return cmd
}

func newRenameCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "rename <display name>",
		Short: "Set the name the partner sees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.participant(user); err != nil {
				return err
			}
			if err := a.engine.SetDisplayName(user, args[0]); err != nil {
				return err
			}
			a.engine.Tick(cmd.Context())
			cmd.Printf("%s is now %q\n", user, a.engine.GetUserData(user).DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "participant id")
	return cmd
}
