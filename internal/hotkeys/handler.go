// Package hotkeys grabs global key combinations on the root window and runs
// the window manager action bound to each.
package hotkeys

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Runner executes a textual action such as "view 2".
type Runner interface {
	RunString(action string) error
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler on the root window.
func NewHandler(xu *xgbutil.XUtil, root xproto.Window, logger *slog.Logger) *Handler {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{xu: xu, root: root, logger: logger.With("component", "hotkeys")}
}

// Bind grabs every key combination in keys and routes it to runner. A combo
// that fails to grab is logged and skipped; the number of failures is
// returned as an error after all others are bound.
func (h *Handler) Bind(keys map[string]string, runner Runner) error {
	combos := make([]string, 0, len(keys))
	for combo := range keys {
		combos = append(combos, combo)
	}
	sort.Strings(combos)

	failed := 0
	for _, combo := range combos {
		action := keys[combo]
		err := h.RegisterFunc(combo, func() {
			h.logger.Debug("hotkey", "combo", combo, "action", action)
			if err := runner.RunString(action); err != nil {
				h.logger.Warn("hotkey action failed", "combo", combo, "action", action, "error", err)
			}
		})
		if err != nil {
			h.logger.Warn("failed to grab hotkey", "combo", combo, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hotkeys could not be grabbed", failed, len(combos))
	}
	return nil
}

// UnbindAll releases every grab and callback on the root window.
func (h *Handler) UnbindAll() {
	keybind.Detach(h.xu, h.root)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
