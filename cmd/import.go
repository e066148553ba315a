package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/compass/internal/headhunter"
	"github.com/spigell/compass/internal/secrets"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Seed the collected experiences with the work history of an hh.ru resume",
	Run: func(cmd *cobra.Command, _ []string) {
		runImport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("resume", "r", "", "title of the resume to import")

	viper.BindPFlag("import.resume", importCmd.Flags().Lookup("resume"))
}

func runImport(_ *cobra.Command) {
	ctx := context.Background()
	l, config := setup()

	token, err := secrets.Load(secrets.Source{
		Name: "hh.ru token",
		File: config.TokenFile,
		Env:  "HH_TOKEN",
	})
	if err != nil {
		l.Fatal("loading the token", zap.Error(err))
	}

	hh := headhunter.New(l.Named("headhunter"), token)
	if config.UserAgent != "" {
		hh.UserAgent = config.UserAgent
	}

	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		l.Fatal("getting my resumes", zap.Error(err))
	}
	if resumes.Len() == 0 {
		l.Fatal("no resumes found")
	}

	title := ""
	if config.Import != nil {
		title = config.Import.Resume
	}

	if title == "" {
		title, err = chooseResume(resumes.Titles())
		if err != nil {
			l.Fatal("choosing a resume", zap.Error(err))
		}
	}

	resume := resumes.FindByTitle(title)
	if resume == nil {
		l.Fatal("resume not found", zap.String("title", title), zap.Strings("available", resumes.Titles()))
	}

	details, err := hh.GetResumeDetails(ctx, resume.ID)
	if err != nil {
		l.Fatal("getting resume details", zap.String("resume_id", resume.ID), zap.Error(err))
	}

	ops, err := details.ExperienceOperations()
	if err != nil {
		l.Fatal("reading work experience", zap.String("resume_id", resume.ID), zap.Error(err))
	}

	l.Info("importing work experience", zap.String("resume", title), zap.Int("entries", len(ops)))

	result, err := newCollector(l, config, nil).Apply(ctx, ops)
	if err != nil {
		l.Fatal("applying imported experiences", zap.Error(err))
	}

	printTurn(os.Stdout, result)
}

func chooseResume(titles []string) (string, error) {
	if len(titles) == 1 {
		return titles[0], nil
	}

	prompt := promptui.Select{
		Label: "Choose a resume to import",
		Items: titles,
	}

	_, title, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) {
		return "", errors.New("aborted")
	}

	return title, err
}
