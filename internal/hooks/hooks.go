// Package hooks dispatches window manager events to in-process callbacks
// and user-configured shell commands.
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Hook names.
const (
	Manage      = "manage"
	Unmanage    = "unmanage"
	Focus       = "focus"
	Unfocus     = "unfocus"
	MouseOver   = "mouseover"
	Arrange     = "arrange"
	TitleUpdate = "titleupdate"
	Urgent      = "urgent"
	Timer       = "timer"
)

var known = []string{Manage, Unmanage, Focus, Unfocus, MouseOver, Arrange, TitleUpdate, Urgent, Timer}

// Names returns every hook name.
func Names() []string {
	return append([]string(nil), known...)
}

// IsKnown reports whether name is a hook.
func IsKnown(name string) bool {
	for _, k := range known {
		if k == name {
			return true
		}
	}
	return false
}

// Event describes what triggered a hook. Window is 0 for screen-level
// hooks; Screen is -1 for global ones such as timer.
type Event struct {
	Hook   string
	Window uint32
	Screen int
	Tag    string
}

// Func is an in-process hook callback. Return values are not consumed.
type Func func(Event)

// startCommand launches a hook process without waiting for it.
var startCommand = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Runner holds callbacks and shell commands per hook.
type Runner struct {
	callbacks map[string][]Func
	commands  map[string]string
	shell     string
	logger    *slog.Logger
}

// NewRunner creates a runner with the given hook commands.
func NewRunner(commands map[string]string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	r := &Runner{
		callbacks: make(map[string][]Func),
		shell:     shell,
		logger:    logger.With("component", "hooks"),
	}
	r.SetCommands(commands)
	return r
}

// SetCommands replaces the shell commands, dropping unknown hook names.
func (r *Runner) SetCommands(commands map[string]string) {
	r.commands = make(map[string]string, len(commands))
	for name, cmd := range commands {
		if !IsKnown(name) {
			r.logger.Warn("ignoring command for unknown hook", "hook", name)
			continue
		}
		if cmd != "" {
			r.commands[name] = cmd
		}
	}
}

// On registers fn for hook name. It returns false for unknown hooks.
func (r *Runner) On(name string, fn Func) bool {
	if !IsKnown(name) {
		return false
	}
	r.callbacks[name] = append(r.callbacks[name], fn)
	return true
}

// Emit runs the callbacks of name in registration order, then starts the
// hook's shell command if one is configured.
func (r *Runner) Emit(name string, ev Event) {
	if !IsKnown(name) {
		return
	}
	ev.Hook = name
	for _, fn := range r.callbacks[name] {
		r.call(fn, ev)
	}

	cmdline, ok := r.commands[name]
	if !ok {
		return
	}
	cmd := exec.Command(r.shell, "-c", cmdline)
	cmd.Env = append(os.Environ(),
		"TAGWM_HOOK="+name,
		"TAGWM_WINDOW="+fmt.Sprintf("0x%x", ev.Window),
		"TAGWM_SCREEN="+strconv.Itoa(ev.Screen),
		"TAGWM_TAG="+ev.Tag,
	)
	if err := startCommand(cmd); err != nil {
		r.logger.Warn("hook command failed to start", "hook", name, "error", err)
	}
}

func (r *Runner) call(fn Func, ev Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("hook callback panic recovered", "hook", ev.Hook, "error", err)
		}
	}()
	fn(ev)
}
