package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clipmate/clipmate/internals/desktop"
	"github.com/clipmate/clipmate/internals/env"
	"github.com/clipmate/clipmate/internals/journal"
	"github.com/clipmate/clipmate/internals/progress"
	"github.com/clipmate/clipmate/internals/schemas"
	"github.com/clipmate/clipmate/internals/stream"
	"github.com/clipmate/clipmate/internals/term"
	"github.com/clipmate/clipmate/internals/version"
	"github.com/clipmate/clipmate/sdk"
	"github.com/clipmate/clipmate/tui"

	z "github.com/Oudwins/zog"
)

var ErrUsage = errors.New("usage:\n  clipmate watch\n  clipmate tasks\n  clipmate task <id>\n  clipmate reconnect\n  clipmate journal [--limit <n>]\n  clipmate open\n  clipmate version")

type JournalArgs struct {
	Limit int `zog:"limit"`
}

var journalArgsSchema = z.Struct(z.Shape{
	"Limit": z.Int().Default(50).GTE(1).LTE(1000),
})

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	command := args[0]
	client := sdk.NewClient()

	switch command {
	case "watch":
		if len(args) != 1 {
			return ErrUsage
		}
		if err := ensureDaemonRunning(client); err != nil {
			return err
		}
		return tui.Run(client)
	case "tasks":
		if len(args) != 1 {
			return ErrUsage
		}
		if err := ensureDaemonRunning(client); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		view, err := client.Tasks(ctx)
		if err != nil {
			return err
		}
		printView(view)
		return nil
	case "task":
		if len(args) != 2 {
			return ErrUsage
		}
		if err := ensureDaemonRunning(client); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		task, err := client.Task(ctx, args[1])
		if err != nil {
			return err
		}
		printTask(task)
		return nil
	case "reconnect":
		if len(args) != 1 {
			return ErrUsage
		}
		if err := ensureDaemonRunning(client); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		status, err := client.Reconnect(ctx)
		if err != nil {
			return err
		}
		printConnection(status)
		return nil
	case "journal":
		parsed, err := parseJournalArgs(args[1:])
		if err != nil {
			return err
		}
		if issues := journalArgsSchema.Validate(&parsed); len(issues) > 0 {
			return fmt.Errorf("invalid arguments:\n%s", z.Issues.Prettify(issues))
		}
		if err := ensureDaemonRunning(client); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		frames, err := client.Journal(ctx, parsed.Limit)
		if err != nil {
			return err
		}
		printJournal(frames)
		return nil
	case "open":
		if len(args) != 1 {
			return ErrUsage
		}
		url := env.Get().BASE_URL + "/tasks"
		if err := desktop.OpenURL(url); err != nil {
			return err
		}
		fmt.Printf("Opened %s\n", term.ClickableLink(url, url))
		return nil
	case "version":
		if len(args) != 1 {
			return ErrUsage
		}
		fmt.Printf("clipmate %s\n", version.Version())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if daemonVersion, err := client.Version(ctx); err == nil {
			fmt.Printf("clipmated %s\n", daemonVersion)
		}
		return nil
	default:
		return ErrUsage
	}
}

func parseJournalArgs(args []string) (JournalArgs, error) {
	parsed := JournalArgs{}
	for i := 0; i < len(args); {
		switch args[i] {
		case "--limit":
			if i+1 >= len(args) {
				return parsed, ErrUsage
			}
			value, err := strconv.Atoi(args[i+1])
			if err != nil {
				return parsed, fmt.Errorf("invalid limit: %s", args[i+1])
			}
			parsed.Limit = value
			i += 2
		default:
			return parsed, ErrUsage
		}
	}
	return parsed, nil
}

func ensureDaemonRunning(client *sdk.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := client.Version(ctx); err == nil {
		return nil
	}

	if err := startDaemon(); err != nil {
		return err
	}

	return waitForDaemon(client)
}

func startDaemon() error {
	path, err := findDaemonBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(client *sdk.Client) error {
	var lastErr error
	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		_, err := client.Version(ctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * 150 * time.Millisecond)
	}

	if lastErr != nil {
		return lastErr
	}
	return errors.New("failed to reach clipmated")
}

func findDaemonBinary() (string, error) {
	executable, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(executable), "clipmated")
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}

	path, err := exec.LookPath("clipmated")
	if err != nil {
		return "", fmt.Errorf("clipmated not found in PATH")
	}
	return path, nil
}

func printView(view *progress.View) {
	if len(view.Tasks) == 0 {
		fmt.Println("no tasks")
		return
	}
	for _, task := range view.Tasks {
		fmt.Printf("%s: %s %d%% (%d/%d)\n", task.ID, task.Status, task.Percent, task.Completed, task.Total)
	}
	if view.AnyFailed {
		fmt.Println("some tasks failed")
	}
}

func printTask(task *progress.TaskView) {
	fmt.Printf("task: %s\ntitle: %s\nstatus: %s\nprogress: %d%% (%d/%d)\n",
		task.ID, task.Title, task.Status, task.Percent, task.Completed, task.Total)
	if task.ErrorMessage != "" {
		fmt.Printf("error: %s\n", task.ErrorMessage)
	}
	if task.SuccessMessage != "" {
		fmt.Printf("message: %s\n", task.SuccessMessage)
	}
	for i, item := range task.Items {
		marker := " "
		if i == task.ActiveIndex {
			marker = ">"
		}
		fmt.Printf("%s %s [%s]\n", marker, item.Title, item.Status)
		for _, step := range item.Steps {
			line := fmt.Sprintf("    %s [%s]", step.Label, step.Status)
			if step.Message != "" && step.Status != schemas.StepStatusSuccess {
				line += " " + step.Message
			}
			fmt.Println(line)
		}
	}
}

func printConnection(status *stream.Status) {
	fmt.Printf("state: %s\n", status.State)
	if status.Attempts > 0 {
		fmt.Printf("attempts: %d\n", status.Attempts)
	}
	if status.RetryIn > 0 {
		fmt.Printf("retry in: %ds\n", status.RetryIn)
	}
}

func printJournal(frames []journal.Frame) {
	if len(frames) == 0 {
		fmt.Println("journal empty")
		return
	}
	for _, frame := range frames {
		fmt.Printf("%s %-12s %-12s %s\n",
			frame.ReceivedAt.Format(time.RFC3339), frame.Kind, frame.TaskID, frame.Payload)
	}
}
