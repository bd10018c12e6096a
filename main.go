package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
	"newsletter_copilot/runloop"
	"newsletter_copilot/topics"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(appOptions{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd(opts appOptions) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "newsletter-copilot",
		Short:         "Generate a daily newsletter and short-form post from a rotating topic list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config.yaml (default: search ./config.yaml, ~/.config/newsletter-copilot/config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newRunCmd(flags, opts),
		newGenerateCmd(flags, opts),
		newRepurposeCmd(flags, opts),
		newTopicsCmd(flags, opts),
		newTemplatesCmd(flags, opts),
	)
	return root
}

// withApp loads config, wires the app and closes it after fn.
func withApp(ctx context.Context, flags *rootFlags, opts appOptions, fn func(*app) error) error {
	cfg, err := loadConfig(flags.configPath, flags.verbose)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRunCmd(flags *rootFlags, opts appOptions) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the generation loop until interrupted",
		Long: "Each cycle draws a topic, generates the newsletter and the short-form post, " +
			"saves both and schedules the newsletter delivery, then waits for the next cycle.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, flags, opts, func(a *app) error {
				loop, err := a.newLoop()
				if err != nil {
					return err
				}
				if once {
					report, err := loop.RunCycle(ctx)
					printReport(cmd.OutOrStdout(), report)
					return err
				}

				runner, err := a.newRunner()
				if err != nil {
					return err
				}
				runner.Start()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					runner.Stop(sctx)
				}()
				return loop.Run(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit (deliveries are not scheduled)")
	return cmd
}

func newGenerateCmd(flags *rootFlags, opts appOptions) *cobra.Command {
	var (
		contentType string
		topic       string
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one piece of content and print it",
		Long:  "Generates content of the given type. Without --topic the next topic is drawn from the store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, flags, opts, func(a *app) error {
				if topic == "" {
					t, err := a.store.Next(ctx)
					if err != nil {
						return err
					}
					topic = t
				}
				content, err := a.engine.Generate(ctx, contentType, topic)
				if err != nil {
					return err
				}
				return emit(ctx, cmd.OutOrStdout(), a, content, save)
			})
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", generator.TypeNewsletter, "content type")
	cmd.Flags().StringVar(&topic, "topic", "", "topic to write about")
	cmd.Flags().BoolVar(&save, "save", false, "also save the result to the output directory")
	return cmd
}

func newRepurposeCmd(flags *rootFlags, opts appOptions) *cobra.Command {
	var (
		contentType string
		file        string
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "repurpose",
		Short: "Turn existing content into another content type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			original, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withApp(ctx, flags, opts, func(a *app) error {
				content, err := a.engine.Repurpose(ctx, original, contentType)
				if err != nil {
					return err
				}
				return emit(ctx, cmd.OutOrStdout(), a, content, save)
			})
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", generator.TypeTweet, "target content type")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file with the original content (- for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "also save the result to the output directory")
	return cmd
}

func newTopicsCmd(flags *rootFlags, opts appOptions) *cobra.Command {
	var (
		reset bool
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Show topic rotation progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, flags, opts, func(a *app) error {
				if reset {
					if err := a.store.Reset(ctx); err != nil {
						return err
					}
					fmt.Fprintln(out, "topic rotation reset")
				}
				st := a.store.Stats()
				fmt.Fprintf(out, "pending: %d\ncompleted: %d\ntotal: %d\n", st.Pending, st.Completed, st.Total)
				if list {
					printTopics(out, a.store.Snapshot())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "move every completed topic back to pending")
	cmd.Flags().BoolVar(&list, "list", false, "list pending and completed topics")
	return cmd
}

func newTemplatesCmd(flags *rootFlags, opts appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the registered content templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd.Context(), flags, opts, func(a *app) error {
				catalog := a.engine.Catalog()
				for _, typ := range catalog.Types() {
					tpl, _ := catalog.Get(typ)
					fmt.Fprintf(out, "%s\ttone=%s\tlength=%d\tformatting=%s\n", tpl.Type, tpl.Tone, tpl.Length, tpl.Formatting)
					for _, s := range tpl.Framework {
						fmt.Fprintf(out, "  %s (%.2f): %s\n", s.Name, s.Weight, strings.Join(s.Elements, ", "))
					}
				}
				return nil
			})
		},
	}
}

func emit(ctx context.Context, out io.Writer, a *app, content generator.GeneratedContent, save bool) error {
	fmt.Fprintln(out, content.Text)
	if !save {
		return nil
	}
	path, err := a.sink.Save(ctx, content)
	if err != nil {
		return err
	}
	a.logger.Info("saved", logging.String("path", path))
	return nil
}

func readInput(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read original content: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("original content is empty")
	}
	return text, nil
}

func printTopics(out io.Writer, st topics.State) {
	fmt.Fprintln(out, "pending:")
	for _, t := range st.Pending {
		fmt.Fprintf(out, "  - %s\n", t)
	}
	fmt.Fprintln(out, "completed:")
	for _, t := range st.Completed {
		fmt.Fprintf(out, "  - %s\n", t)
	}
}

func printReport(out io.Writer, r runloop.CycleReport) {
	if r.Topic == "" {
		return
	}
	fmt.Fprintf(out, "topic: %s\n", r.Topic)
	for _, o := range []*runloop.Output{r.Long, r.Short} {
		if o != nil {
			fmt.Fprintf(out, "%s: %s (%d chars)\n", o.Content.Type, o.Path, o.Content.Length)
		}
	}
}
