package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"mysql-backup-engine/internal/config"
)

// ExecRunner is the production ProcessRunner. It executes client tools with
// exec.CommandContext so a fired cancellation signal kills the in-flight
// invocation.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by the local mysqldump/mysql binaries.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns its combined output.
func (r *ExecRunner) Run(ctx context.Context, spec CommandSpec) (string, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)

	if spec.StdinPath != "" {
		stdin, err := os.Open(spec.StdinPath)
		if err != nil {
			return "", NewProcessError(fmt.Sprintf("failed to open input file %s", spec.StdinPath), err)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return string(output), NewProcessError("invocation cancelled", ctx.Err())
		}
		return string(output), NewProcessError(fmt.Sprintf("%s failed: %s", spec.Name, string(output)), err)
	}

	return string(output), nil
}

// DumpCommand builds the mysqldump invocation producing a plain SQL dump of
// the configured database at outputPath.
func DumpCommand(db config.DatabaseConfig, outputPath string) CommandSpec {
	return CommandSpec{
		Name: "mysqldump",
		Args: []string{
			fmt.Sprintf("--host=%s", db.Host),
			fmt.Sprintf("--port=%d", db.Port),
			fmt.Sprintf("--user=%s", db.User),
			"--single-transaction",
			"--routines",
			"--triggers",
			"--add-drop-table",
			fmt.Sprintf("--result-file=%s", outputPath),
			db.Name,
		},
		Env: []string{fmt.Sprintf("MYSQL_PWD=%s", db.Password)},
	}
}

// RestoreCommand builds the mysql client invocation applying the plain SQL
// dump at inputPath to the configured database.
func RestoreCommand(db config.DatabaseConfig, inputPath string) CommandSpec {
	return CommandSpec{
		Name: "mysql",
		Args: []string{
			fmt.Sprintf("--host=%s", db.Host),
			fmt.Sprintf("--port=%d", db.Port),
			fmt.Sprintf("--user=%s", db.User),
			db.Name,
		},
		Env:       []string{fmt.Sprintf("MYSQL_PWD=%s", db.Password)},
		StdinPath: inputPath,
	}
}
