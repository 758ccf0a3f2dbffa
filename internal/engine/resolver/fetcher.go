package resolver

import (
	"bytes"
	"context"
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/shared/observability"
	"depgrapher/internal/shared/util"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommand is the package manager invoked when none is configured.
const DefaultCommand = "nuget"

// DefaultArgs is the nuget install invocation. Placeholders are replaced per
// fetch; an argument pair whose value renders empty is dropped.
var DefaultArgs = []string{
	"install", "{name}",
	"-NonInteractive",
	"-Source", "{source}",
	"-FallbackSource", "{fallback}",
	"-OutputDirectory", "{output}",
	"-Version", "{version}",
	"-Verbosity", "quiet",
	"-DependencyVersion", "Ignore",
}

// CommandRunner executes a prepared command. It exists so tests can observe
// invocations without a package manager installed.
type CommandRunner func(cmd *exec.Cmd) error

// CommandFetcher fetches modules by running an external package manager.
// Fetches are blocking and strictly sequential.
type CommandFetcher struct {
	Command        string
	Args           []string
	Source         string
	FallbackSource string
	Timeout        time.Duration
	Limiter        *util.Limiter
	Output         io.Writer
	Logger         *slog.Logger
	Run            CommandRunner
}

func (f *CommandFetcher) Fetch(ctx context.Context, id identity.Identity, destDir string) error {
	ctx, span := observability.Tracer.Start(ctx, "resolver.Fetch", observability.ModuleAttrs(id.Name, id.Version.String()))
	defer span.End()

	if err := f.Limiter.Wait(ctx, 1); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeFetchFailed, "fetch rate limiter")
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	command := f.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	args := f.RenderArgs(id, destDir)

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("fetching package", "module", id.Name, "version", id.Version.Short(), "source", f.Source)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = f.Output
	cmd.Stderr = &stderr
	if f.Output != nil {
		cmd.Stderr = io.MultiWriter(f.Output, &stderr)
	}

	run := f.Run
	if run == nil {
		run = func(c *exec.Cmd) error { return c.Run() }
	}

	start := time.Now()
	err := run(cmd)
	observability.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		msg := fmt.Sprintf("%s install %s %s failed", command, id.Name, id.Version.Short())
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			msg += ": " + tail
		}
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeFetchFailed, msg),
			domainerrors.CtxModule, id.Name)
	}
	return nil
}

// RenderArgs expands the argument template for one fetch.
func (f *CommandFetcher) RenderArgs(id identity.Identity, destDir string) []string {
	template := f.Args
	if len(template) == 0 {
		template = DefaultArgs
	}

	values := map[string]string{
		"{name}":     id.Name,
		"{version}":  id.Version.Short(),
		"{source}":   f.Source,
		"{fallback}": f.FallbackSource,
		"{output}":   destDir,
	}
	render := func(arg string) string {
		for k, v := range values {
			arg = strings.ReplaceAll(arg, k, v)
		}
		return arg
	}

	out := make([]string, 0, len(template))
	for i := 0; i < len(template); i++ {
		arg := template[i]
		if strings.HasPrefix(arg, "-") && i+1 < len(template) && isPlaceholder(template[i+1]) {
			value := render(template[i+1])
			i++
			if value == "" {
				continue
			}
			out = append(out, arg, value)
			continue
		}
		out = append(out, render(arg))
	}
	return out
}

func isPlaceholder(arg string) bool {
	return strings.HasPrefix(arg, "{") && strings.HasSuffix(arg, "}")
}
