// Package chatcmder provides the chat command for interactive terminal
// chat through the relay.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kosar/responses-api/pkg/cliui"
	"github.com/kosar/responses-api/pkg/config"
	"github.com/kosar/responses-api/pkg/frame"
	"github.com/kosar/responses-api/pkg/logger"
	"github.com/kosar/responses-api/pkg/reader"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	target    string
	webSearch bool
	showLog   bool
	markdown  bool
	logFile   string
	debug     bool
}

const chatLongDesc string = `Start an interactive chat session through the relay.

The chat command streams assistant output token by token as the relay
re-emits it. With --web-search the model may call its web search tool;
search phase events are shown inline as they arrive.

Examples:
  respchat chat
  respchat chat --target http://localhost:8080 --web-search
  respchat chat --events`

const chatShortDesc string = "Interactive chat through the relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagTarget,
			})

			cmder.target = v.GetString("client.target")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().BoolVarP(&cmder.webSearch, "web-search", "w", false, "Allow the model to use web search")
	cmd.Flags().BoolVarP(&cmder.showLog, "events", "e", false, "Print the event log after each turn")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Re-render completed responses as markdown")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *chatCommander) run() error {
	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
	)

	// With --log-file, fan every record out to the pretty terminal logger
	// and a JSON logger on the file.
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		fileLog := logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(true),
			logger.WithWriter(f),
		)
		log = logger.Multi(log, fileLog)
	}

	ctrl := reader.New(c.target,
		reader.WithLogger(log),
		reader.OnText(func(delta string) {
			fmt.Print(delta)
		}),
		reader.OnEvent(func(entry reader.LogEntry) {
			if entry.Type == frame.KindWebSearchStarted {
				fmt.Printf("\n  %s\n", cliui.DimStyle.Render("searching the web..."))
			}
		}),
	)

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Relay:"),
		cliui.NameStyle.Render(c.target),
	)
	if c.webSearch {
		fmt.Printf("  %s enabled\n", cliui.KeyStyle.Render("Web search:"))
	}
	if err := cliui.Step(os.Stdout, "connecting to relay", func() error {
		return pingRelay(c.target)
	}); err != nil {
		return fmt.Errorf("relay not reachable at %s: %w", c.target, err)
	}

	fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		fmt.Print(assistantPrompt)
		err := ctrl.Submit(context.Background(), input, c.webSearch)
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		if c.markdown {
			if msgs := ctrl.Messages(); len(msgs) > 0 {
				if rendered, rerr := cliui.RenderMarkdown(msgs[len(msgs)-1].Content); rerr == nil {
					fmt.Print(rendered)
				}
			}
		}

		if c.showLog {
			c.printEventLog(ctrl)
		}

		fmt.Printf("  %s %s\n\n",
			cliui.SuccessMark,
			cliui.ElapsedStyle.Render(cliui.FormatDuration(ctrl.TotalElapsed())),
		)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// pingRelay checks relay liveness before entering the prompt loop so a bad
// target fails immediately instead of on the first submitted turn.
func pingRelay(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target + "/ping")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

// printEventLog prints the lifecycle events of the last turn with the
// elapsed time since the previous event, the same view the browser UI shows.
func (c *chatCommander) printEventLog(ctrl *reader.Controller) {
	fmt.Println()
	for _, entry := range ctrl.EventLog() {
		fmt.Printf("  %s %s\n",
			cliui.DimStyle.Render(entry.Type),
			cliui.ElapsedStyle.Render("+"+cliui.FormatDuration(entry.Elapsed)),
		)
	}
	fmt.Println()
}
