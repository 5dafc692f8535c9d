package ollama

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CLIClient runs the model through the ollama executable, passing the
// prompt on stdin and reading the completion from stdout
type CLIClient struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewCLIClient creates a new command-line client. The model name is
// appended after args, so the default invocation is "ollama run <model>".
func NewCLIClient(command string, args []string, logger *zap.Logger) *CLIClient {
	if len(args) == 0 {
		args = []string{"run"}
	}
	return &CLIClient{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// Generate runs the command and returns its standard output
func (c *CLIClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	args := append(append([]string(nil), c.args...), model)
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s %s: %w", c.command, model, ctx.Err())
		}
		return "", fmt.Errorf("%s %s: %w: %s", c.command, model, err, strings.TrimSpace(stderr.String()))
	}

	c.logger.Debug("Command completion received",
		zap.String("command", c.command),
		zap.String("model", model),
		zap.Int("response_size", stdout.Len()))
	return stdout.String(), nil
}

// Installed reports whether the command is on PATH
func (c *CLIClient) Installed() bool {
	_, err := exec.LookPath(c.command)
	return err == nil
}
