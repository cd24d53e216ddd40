package actions

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
)

// ExecRunner starts programs with os/exec. Programs that are not waited on
// are reaped in the background.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, wait bool, name string, args ...string) error {
	if wait {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		return cmd.Run()
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("program exited", "program", name, "err", err)
		}
	}()
	return nil
}
