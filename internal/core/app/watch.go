package app

import (
	"context"
	"depgrapher/internal/core/config"
	"depgrapher/internal/core/watcher"
	"depgrapher/internal/shared/util"
	"path/filepath"
)

// WatchOptions controls watch mode. Reload, when set, is called after the
// config file changed; its result replaces the running configuration.
type WatchOptions struct {
	ConfigPath string
	Reload     func() (*config.Config, config.ResolvedPaths, error)
}

// WatchPaths lists what watch mode observes for req: root files, or the
// working directory for a name root, plus the config file when it exists.
func (a *App) WatchPaths(req Request, configPath string) []string {
	var paths []string
	if len(req.Files) > 0 {
		paths = append(paths, req.Files...)
	} else {
		paths = append(paths, a.workDir)
	}
	if configPath != "" && util.FileExists(configPath) {
		paths = append(paths, configPath)
	}
	return paths
}

// Watch re-runs req whenever a watched artifact changes, until ctx is done.
// A failed re-run is logged and watching continues.
func (a *App) Watch(ctx context.Context, req Request, opts WatchOptions) error {
	trigger := make(chan []string, 1)
	w, err := watcher.NewWatcher(a.Config().Watch.Debounce, watcher.DefaultPatterns, func(paths []string) {
		select {
		case trigger <- paths:
		default:
			// A re-run is already queued and will see these changes too.
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(a.WatchPaths(req, opts.ConfigPath)); err != nil {
		return err
	}
	a.logger.Info("watching for changes", "debounce", a.Config().Watch.Debounce)

	configAbs := ""
	if opts.ConfigPath != "" {
		configAbs, _ = filepath.Abs(opts.ConfigPath)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-trigger:
			a.logger.Info("change detected", "files", changed)
			if configAbs != "" && opts.Reload != nil && containsPath(changed, configAbs) {
				a.reload(opts.Reload, w)
			}
			if _, err := a.Run(ctx, req); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error("re-run failed", "error", err)
			}
		}
	}
}

func (a *App) reload(load func() (*config.Config, config.ResolvedPaths, error), w *watcher.Watcher) {
	cfg, paths, err := load()
	if err != nil {
		a.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	if err := a.Reconfigure(cfg, paths); err != nil {
		a.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	w.SetDebounce(cfg.Watch.Debounce)
	a.logger.Info("configuration reloaded")
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil && abs == want {
			return true
		}
	}
	return false
}
