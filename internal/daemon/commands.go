package daemon

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/wm"
)

// commander answers IPC requests. It runs on the window manager loop.
type commander struct {
	wm     *wm.Manager
	reload func() error
}

func (c *commander) handle(req *ipc.Request) *ipc.Response {
	switch req.Command {
	case ipc.CommandGetStatus:
		return ok(c.wm.Status())
	case ipc.CommandRun:
		var p ipc.RunPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return ipc.NewErrorResponse(fmt.Sprintf("Invalid run payload: %v", err))
		}
		if err := c.wm.RunString(p.Action); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		return ok(nil)
	case ipc.CommandReload:
		if err := c.reload(); err != nil {
			return ipc.NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
		}
		return ok(nil)
	case ipc.CommandListLayouts:
		return ok(ipc.LayoutsData{
			Layouts: c.wm.LayoutNames(),
			Cycle:   c.wm.Config().Layouts,
			Current: c.wm.CurrentLayout(),
		})
	default:
		return ipc.NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func ok(data interface{}) *ipc.Response {
	resp, err := ipc.NewOKResponse(data)
	if err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	return resp
}
