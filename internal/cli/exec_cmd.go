package cli

import (
	"fmt"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec -- <command> [args...]",
	Short: "Run a command on the router",
	Long: `Run a single command on the target router and print its output.

Arguments are passed as-is; over SSH each one is quoted. The exit code of
the remote command becomes halowdiag's exit code.

Examples:
  halowdiag exec -- uptime
  halowdiag exec --target mesh -- iw dev wlan0 station dump
  halowdiag exec --via ubus -- cat /etc/board.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execCommand(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}

// execCommand runs args on the target and mirrors its exit code.
func execCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New(errors.ErrExec,
			"What should I run?",
			"Usage: halowdiag exec -- <command>  (e.g., halowdiag exec -- uptime)")
	}

	ctx, stop := signalContext()
	defer stop()

	conn, err := connectTarget()
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.Executor.Execute(ctx, args[0], args[1:])
	fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	if err != nil {
		return err
	}

	if err := exec.HandleExecError(exec.CommandLine(args[0], args[1:]), res.Stderr, res.ExitCode); err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.NewExitError(res.ExitCode)
	}
	return nil
}
