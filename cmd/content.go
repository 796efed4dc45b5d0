package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/lawstudy/internal/content"
	"github.com/example/lawstudy/internal/excel"
	"github.com/example/lawstudy/pkg/models"
)

func newContentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect and import study content",
	}
	cmd.AddCommand(newContentImportCmd(), newContentTopicsCmd(opts))
	return cmd
}

func newContentImportCmd() *cobra.Command {
	config := excel.DefaultImportConfig()
	var output string
	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Convert a spreadsheet of topics into a content JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.FilePath = args[0]
			tree, result, err := excel.ImportContent(config)
			if err != nil {
				return err
			}
			if _, err := content.New(tree); err != nil {
				return fmt.Errorf("imported content is invalid: %w", err)
			}

			data, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			cmd.Printf("Processed %d rows: %d topics in %d subjects, %d skipped\n",
				result.TotalProcessed, result.Created, result.SubjectsCreated, result.Skipped)
			for _, e := range result.Errors {
				cmd.PrintErrln(e)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&config.SheetName, "sheet", config.SheetName, "sheet name")
	cmd.Flags().IntVar(&config.StartRow, "start-row", config.StartRow, "first data row")
	cmd.Flags().StringVar(&config.ElementSeparator, "separator", config.ElementSeparator, "separator between elements")
	return cmd
}

func newContentTopicsCmd(opts *rootOptions) *cobra.Command {
	var subject, search string
	var difficulty int
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List, filter or search topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			repo, err := loadContent(cfg.Content.Path)
			if err != nil {
				return err
			}

			var topics []models.Topic
			switch {
			case search != "":
				for _, r := range repo.Search(search) {
					topics = append(topics, r.Topic)
				}
			case difficulty > 0:
				topics = repo.ByDifficulty(difficulty)
			default:
				topics = repo.AllTopics(subject)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUBJECT\tID\tTITLE\tDIFFICULTY")
			for _, t := range topics {
				if subject != "" && t.Subject != subject {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.Subject, t.ID, t.Title, t.Difficulty)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if search == "" && difficulty == 0 && subject == "" {
				stats := repo.Statistics()
				cmd.Printf("\n%d topics", stats.TotalTopics)
				for _, s := range repo.Subjects() {
					cmd.Printf(", %s %s: %d", s.Emoji, s.Name, s.TopicCount)
				}
				cmd.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "only topics of this subject")
	cmd.Flags().StringVar(&search, "search", "", "search titles, rules, elements and mnemonics")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "only topics of this difficulty (1-3)")
	return cmd
}

func loadContent(path string) (*content.Repository, error) {
	if path != "" {
		return content.LoadFile(path)
	}
	return content.Default()
}
