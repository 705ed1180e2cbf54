package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aasc77/prism/internal/classifier"
	"github.com/aasc77/prism/internal/config"
	"github.com/aasc77/prism/internal/engine"
	"github.com/aasc77/prism/internal/event"
	"github.com/aasc77/prism/internal/logging"
	"github.com/aasc77/prism/internal/mailbox"
	"github.com/aasc77/prism/internal/merge"
	"github.com/aasc77/prism/internal/nudge"
	"github.com/aasc77/prism/internal/phase"
	"github.com/aasc77/prism/internal/task"
	"github.com/aasc77/prism/internal/worktree"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the pipeline engine",
	Long: `Start the orchestration loop: select pending tasks, deliver
instructions, classify worker reports, merge finished phases forward
and nudge stalled workers. Runs until interrupted; an interactive
command prompt stays available the whole time.`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Engine.StateDir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}
	defer func() { _ = logger.Close() }()

	repoDir := cfg.Repo.Path
	if repoDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		repoDir = cwd
	}
	repoRoot, err := worktree.FindGitRoot(repoDir)
	if err != nil {
		return fmt.Errorf("repository check failed: %w", err)
	}

	tasks, err := task.Load(cfg.Engine.StateDir)
	if err != nil {
		return fmt.Errorf("task list invalid: %w", err)
	}

	mail := mailbox.NewStore(cfg.MailboxDir())
	mail.SetLogger(logger)

	roles := make([]string, 0, len(phase.Order))
	for _, ph := range phase.Order {
		roles = append(roles, ph.Role())
	}
	watchRoles := append([]string{mailbox.SenderOrchestrator}, roles...)
	watcher, err := mailbox.NewWatcher(mail, watchRoles)
	if err != nil {
		return fmt.Errorf("mailbox watcher setup failed: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	manager := worktree.NewManager(repoRoot)
	provisioner := worktree.NewProvisioner(manager, cfg.WorktreesDir(), logger)
	merger := merge.NewCoordinator(logger)

	cls, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}

	supervisor := nudge.NewSupervisor(cfg.Tmux.Session, cfg.Tmux.Panes, logger,
		nudge.WithCooldown(cfg.NudgeCooldown()),
		nudge.WithPrompt(cfg.Nudge.Prompt),
	)
	if !supervisor.HasSession() {
		fmt.Printf("warning: tmux session %q not found, nudges will be skipped\n", cfg.Tmux.Session)
	}

	bus := event.NewBus()
	bus.SubscribeAll(func(e event.Event) {
		fmt.Println(renderEvent(e))
	})

	eng, err := engine.New(engine.Options{
		StateDir:          cfg.Engine.StateDir,
		RepoDir:           repoRoot,
		MainBranch:        manager.FindMainBranch(),
		MergeTimeout:      cfg.MergeTimeout(),
		ClassifierTimeout: cfg.ClassifierTimeout(),
		QuietWindow:       cfg.QuietWindow(),
		NudgeEnabled:      cfg.Nudge.Enabled,
	}, tasks, mail, merger, provisioner, cls, supervisor, bus, logger)
	if err != nil {
		return fmt.Errorf("engine setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := eng.Run(ctx, cfg.PollInterval(), watcher.Events()); err != nil && ctx.Err() == nil {
			logger.Error("engine loop stopped", "error", err)
		}
	}()

	fmt.Println(styleHeader.Render("prism engine running") +
		styleDim.Render("  (status, tasks, skip, resume, nudge <role>, msg <role> <text>, pause, resume-polling, quit)"))

	operatorLoop(ctx, stop, eng, cls)
	return nil
}

// operatorLoop reads operator commands from stdin until quit or
// interrupt. It only reads and writes engine state through the
// engine's own mutex-guarded methods, so it is safe to run alongside
// the polling loop.
func operatorLoop(ctx context.Context, stop context.CancelFunc, eng *engine.Engine, cls classifier.Classifier) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				stop()
				return
			}
			if quit := handleCommand(ctx, eng, cls, strings.TrimSpace(line)); quit {
				stop()
				return
			}
		}
	}
}

// handleCommand dispatches one operator command. Returns true on quit.
func handleCommand(ctx context.Context, eng *engine.Engine, cls classifier.Classifier, line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(line)

	switch fields[0] {
	case "quit", "exit":
		return true

	case "status":
		printStatus(eng.Snapshot())

	case "tasks":
		printTasks(eng.Tasks())

	case "skip":
		if err := eng.Skip(); err != nil {
			fmt.Println(styleError.Render("skip: " + err.Error()))
		}

	case "resume":
		if err := eng.Resume(); err != nil {
			fmt.Println(styleError.Render("resume: " + err.Error()))
		}

	case "pause":
		eng.Pause()
		fmt.Println("polling paused")

	case "resume-polling":
		eng.ResumePolling()
		fmt.Println("polling resumed")

	case "nudge":
		if len(fields) != 2 {
			fmt.Println("usage: nudge <role>")
			return false
		}
		if err := eng.NudgeRole(fields[1]); err != nil {
			fmt.Println(styleError.Render("nudge: " + err.Error()))
		}

	case "msg":
		if len(fields) < 3 {
			fmt.Println("usage: msg <role> <text>")
			return false
		}
		text := strings.Join(fields[2:], " ")
		if err := eng.MessageRole(fields[1], text); err != nil {
			fmt.Println(styleError.Render("msg: " + err.Error()))
		} else {
			fmt.Printf("message queued for %s\n", fields[1])
		}

	default:
		// Free text goes through the classifier so the operator can see
		// how a worker phrasing would be judged.
		classification, err := cls.Classify(ctx, classifier.Request{
			Role:    "operator",
			Content: map[string]any{"text": line},
		})
		if err != nil {
			fmt.Println(styleError.Render("classify: " + err.Error()))
			return false
		}
		fmt.Printf("classified as %s: %s\n",
			styleInfo.Render(classification.Verdict.String()), classification.Rationale)
	}
	return false
}

func printStatus(s engine.Status) {
	fmt.Println(styleHeader.Render("engine status"))
	fmt.Printf("  mode: %s\n", s.Mode)
	if s.ActiveTask != "" {
		fmt.Printf("  active task: %s\n", s.ActiveTask)
	}
	if s.BlockedReason != "" {
		fmt.Printf("  blocked: %s\n", styleError.Render(s.BlockedReason))
	}
	if s.Paused {
		fmt.Println("  polling: " + styleWarn.Render("paused"))
	}
	fmt.Printf("  tasks: %d pending, %d in progress, %d completed, %d stuck\n",
		s.Pending, s.InProgress, s.Completed, s.Stuck)
}

func printTasks(tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return
	}
	for _, t := range tasks {
		marker := styleDim.Render("·")
		switch t.Status {
		case task.StatusInProgress:
			marker = styleInfo.Render("▶")
		case task.StatusCompleted:
			marker = styleOK.Render("✓")
		case task.StatusStuck:
			marker = styleError.Render("✗")
		}
		fmt.Printf("%s %s  %s  (%s, attempts %d/%d)\n",
			marker, t.ID, t.Title, t.Status, t.Attempts, t.MaxAttempts)
	}
}

// buildClassifier selects the verdict backend from configuration.
func buildClassifier(cfg *config.Config, logger *logging.Logger) (classifier.Classifier, error) {
	switch cfg.Classifier.Backend {
	case "ollama":
		cls, err := classifier.NewOllamaClassifier(cfg.Classifier.ServerURL, cfg.Classifier.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("ollama classifier setup failed: %w", err)
		}
		return cls, nil
	default:
		return classifier.NewRuleClassifier(), nil
	}
}
