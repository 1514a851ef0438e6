package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/chat"
)

var (
	answerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sourcesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

var resumeSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the manuals",
	Long: `Opens an interactive prompt. Follow-up questions see the earlier turns of the
conversation. Conversations are saved to the sessions database and can be
continued later with --session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&resumeSession, "session", "", "continue a saved conversation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startup(ctx)
	if err != nil {
		return describeStartupError(err)
	}
	defer a.Close()

	report, err := a.prepareIndex(ctx, false)
	if err != nil {
		return describeStartupError(err)
	}
	printReport(report)

	engine, err := a.newEngine(ctx)
	if err != nil {
		return err
	}
	sessions, closeSessions, err := a.openSessions()
	if err != nil {
		return err
	}
	defer closeSessions()
	engine.WithRecorder(sessions.Recorder())

	var sess *chat.Session
	if resumeSession != "" {
		sess, err = sessions.Get(ctx, resumeSession)
	} else {
		sess, err = sessions.Create(ctx)
	}
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	fmt.Println(titleStyle.Render("manualqa chat") + sourcesStyle.Render(fmt.Sprintf("  session %s, type \"exit\" to quit", sess.ID)))
	if sess.Len() > 0 {
		fmt.Println(sourcesStyle.Render(sess.Transcript()))
	}

	prompt := promptui.Prompt{Label: "You"}
	for {
		question, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			break
		}
		if err != nil {
			return err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := engine.Ask(ctx, sess, question)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		printAnswer(answer)
	}

	if verbose {
		printUsage(engine)
	}
	return nil
}

func printAnswer(answer *chat.Answer) {
	fmt.Println()
	fmt.Println(answerStyle.Render(answer.Raw))
	if block := chat.FormatCitations(answer.Citations); block != "" {
		fmt.Println(sourcesStyle.Render(strings.TrimLeft(block, "\n")))
	}
	fmt.Println()
}
