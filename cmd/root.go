// Package cmd implements the CLI command structure for taskdeck.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/gateway"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/remind"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/task"
	"github.com/taskdeck/taskdeck/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// Run executes the taskdeck CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskdeck", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// If no args or first arg is a flag, launch the TUI.
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg)
	case "list", "ls":
		return listCommand(ctx, cfg, remainingArgs)
	case "add":
		return addCommand(ctx, cfg, remainingArgs)
	case "done":
		return doneCommand(ctx, cfg, remainingArgs)
	case "rm":
		return rmCommand(ctx, cfg, remainingArgs)
	case "clear":
		return clearCommand(ctx, cfg)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// app bundles the wired components the commands share.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	gateway *gateway.Client
	sched   *remind.Scheduler
	store   *store.Store
}

func newApp(cfg *config.Config, logWriter io.Writer) *app {
	logger := logging.Setup(logWriter, cfg.LogLevel, cfg.LogFormat)

	gw := gateway.New(cfg.APIBase,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		gateway.WithLogger(logger),
	)

	var notifier remind.Notifier = remind.LogNotifier{Logger: logger}
	if cfg.NotifyCommand != "" {
		notifier = remind.CommandNotifier{Command: cfg.NotifyCommand}
	}
	sched := remind.New(
		remind.WithLead(cfg.ReminderLead()),
		remind.WithPermission(cfg.Notifications),
		remind.WithNotifier(notifier),
		remind.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		gateway: gw,
		sched:   sched,
		store:   store.New(sched),
	}
}

// load pulls the remote task list into the store. A remote failure is
// reported but not fatal: the store keeps whatever it already has.
func (a *app) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	tasks, err := a.gateway.FetchTasks(ctx)
	if err != nil {
		a.logger.Warn("could not fetch remote tasks", "err", err)
		return err
	}
	a.store.Load(tasks)
	return nil
}

// tuiCommand launches the terminal UI with the reminder sweep running.
func tuiCommand(ctx context.Context, cfg *config.Config) error {
	a := newApp(cfg, io.Discard)
	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	defer a.sched.Stop()

	return ui.Run(ctx, ui.Options{
		Store:   a.store,
		Gateway: a.gateway,
		Config:  cfg,
		Logger:  a.logger,
	})
}

// listCommand prints the sectioned task list.
func listCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskdeck list", flag.ContinueOnError)
	sectionFilter := fs.String("section", "", "Show a single section (Today|Future|Overdue|Completed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	a := newApp(cfg, os.Stderr)
	if err := a.load(ctx); err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	sections := a.store.Sections()
	names := store.SectionNames
	if *sectionFilter != "" {
		name, ok := matchSection(*sectionFilter)
		if !ok {
			return fmt.Errorf("unknown section: %s", *sectionFilter)
		}
		names = []string{name}
	}

	for _, name := range names {
		bucket := sections.Get(name)
		if len(bucket) == 0 && *sectionFilter == "" {
			continue
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s (%d):", name, len(bucket))))
		for _, t := range bucket {
			printTask(t)
		}
		fmt.Println()
	}
	if sections.Total() == 0 {
		fmt.Println("No tasks.")
	}
	return nil
}

// addCommand creates a task locally and pushes it to the remote.
func addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskdeck add", flag.ContinueOnError)
	dueArg := fs.String("due", "", "Due date (2006-01-02, \"2006-01-02 15:04\", or 15:04)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))

	due := time.Now().Add(time.Hour)
	if *dueArg != "" {
		parsed, err := task.ParseDue(*dueArg, time.Now())
		if err != nil {
			return err
		}
		due = parsed
	}

	a := newApp(cfg, os.Stderr)
	// Best effort: the new task still syncs if the initial fetch fails.
	_ = a.load(ctx)

	created, err := a.store.Create(text, due)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	// CreateTask recovers from remote failure by returning a local
	// task, so a local id is the only push-failure signal.
	confirmed, _ := a.gateway.CreateTask(reqCtx, created.Text, created.Due.Time)
	if confirmed.Local() {
		fmt.Printf("Added [%s] %s (due %s, not synced: remote unreachable)\n",
			created.ID, created.Text, created.Due.Time.Format("2006-01-02 15:04"))
		return nil
	}
	a.store.AdoptID(created.ID, confirmed.ID)
	created.ID = confirmed.ID

	fmt.Printf("Added [%s] %s (due %s)\n", created.ID, created.Text, created.Due.Time.Format("2006-01-02 15:04"))
	return nil
}

// doneCommand toggles a task's completed flag.
func doneCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskdeck done", flag.ContinueOnError)
	reopen := fs.Bool("undo", false, "Mark the task as not completed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: taskdeck done [-undo] <id>")
	}
	id := fs.Args()[0]

	a := newApp(cfg, os.Stderr)
	if err := a.load(ctx); err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	if err := a.store.ToggleCompleted(id, !*reopen); err != nil {
		return err
	}
	t, _ := a.store.Get(id)
	state := "done"
	if *reopen {
		state = "reopened"
	}
	fmt.Printf("Marked [%s] %s %s\n", t.ID, t.Text, state)
	return nil
}

// rmCommand deletes a task locally and on the remote.
func rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: taskdeck rm <id>")
	}
	id := args[0]

	a := newApp(cfg, os.Stderr)
	if err := a.load(ctx); err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	if err := a.store.Delete(id); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	if err := a.gateway.DeleteTask(reqCtx, id); err != nil {
		return fmt.Errorf("deleting remote task: %w", err)
	}
	fmt.Printf("Deleted [%s]\n", id)
	return nil
}

// clearCommand removes every completed task.
func clearCommand(ctx context.Context, cfg *config.Config) error {
	a := newApp(cfg, os.Stderr)
	if err := a.load(ctx); err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}

	removed := a.store.ClearCompleted()
	if len(removed) == 0 {
		fmt.Println("No completed tasks.")
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	for _, id := range removed {
		if err := a.gateway.DeleteTask(reqCtx, id); err != nil {
			a.logger.Warn("remote delete failed", "id", id, "err", err)
		}
	}
	fmt.Printf("Cleared %d completed task(s)\n", len(removed))
	return nil
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("taskdeck version %s\n", Version)
	return nil
}

// printTask prints a single task line.
func printTask(t task.Task) {
	check := " "
	if t.Completed {
		check = "x"
	}
	fmt.Printf("  [%s] %-10s %s (due %s)\n", check, t.ID, t.Text, t.Due.Time.Format("2006-01-02 15:04"))
}

// matchSection resolves a case-insensitive section name.
func matchSection(input string) (string, bool) {
	for _, name := range store.SectionNames {
		if strings.EqualFold(name, input) {
			return name, true
		}
	}
	return "", false
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Taskdeck - A terminal to-do list with reminders")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskdeck [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui           Launch the terminal UI (default command)")
	fmt.Fprintln(w, "  list          Print tasks grouped by section")
	fmt.Fprintln(w, "  add <text>    Add a task (use -due to set the due date)")
	fmt.Fprintln(w, "  done <id>     Mark a task completed (-undo to reopen)")
	fmt.Fprintln(w, "  rm <id>       Delete a task")
	fmt.Fprintln(w, "  clear         Delete all completed tasks")
	fmt.Fprintln(w, "  version       Show version information")
	fmt.Fprintln(w, "  help          Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List Options (use with 'list'):")
	fmt.Fprintln(w, "  -section string")
	fmt.Fprintln(w, "        Show a single section (Today|Future|Overdue|Completed)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Add Options (use with 'add'):")
	fmt.Fprintln(w, "  -due string")
	fmt.Fprintln(w, "        Due date (2006-01-02, \"2006-01-02 15:04\", or 15:04)")
}
