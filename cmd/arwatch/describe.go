package main

import (
	"fmt"
	"strings"

	"github.com/teslashibe/automatar/pkg/ar"
	"github.com/teslashibe/automatar/pkg/protocol"
)

// describe renders one event as a single line. It reports false for
// events that should not be printed.
func describe(msg *protocol.Message, frames bool) (string, bool) {
	switch msg.Type {
	case protocol.TypeStatus:
		var st ar.Status
		if err := msg.ParseData(&st); err != nil {
			return "", false
		}
		scenario := "none"
		if st.ActiveScenario != nil {
			scenario = fmt.Sprintf("%s (%d)", st.ActiveScenario.Name, st.ActiveScenario.Tag)
		}
		return fmt.Sprintf("status    scenario=%s | %s | %s", scenario, st.Title, st.Description), true

	case protocol.TypeMenuShow:
		menu, err := msg.GetMenu()
		if err != nil {
			return "", false
		}
		names := make([]string, 0, len(menu.Options))
		for _, o := range menu.Options {
			mark := " "
			if o.AnimationID == menu.Selected {
				mark = "*"
			}
			names = append(names, fmt.Sprintf("%s%s [%s]", mark, o.Name, o.AnimationID))
		}
		return fmt.Sprintf("menu      marker %d: %s", menu.MarkerID, strings.Join(names, ", ")), true

	case protocol.TypeMenuSelect:
		var sel protocol.MenuSelectData
		if err := msg.ParseData(&sel); err != nil {
			return "", false
		}
		return fmt.Sprintf("menu      marker %d selected %s", sel.MarkerID, sel.AnimationID), true

	case protocol.TypeMenuHide:
		return "menu      closed", true

	case protocol.TypeNotify:
		var n protocol.NotifyData
		if err := msg.ParseData(&n); err != nil {
			return "", false
		}
		return fmt.Sprintf("notice    [%s] %s", n.Kind, n.Message), true

	case protocol.TypeOverlayCreate, protocol.TypeOverlayRemove:
		data, err := msg.GetOverlayData()
		if err != nil {
			return "", false
		}
		verb := "started"
		if msg.Type == protocol.TypeOverlayRemove {
			verb = "stopped"
		}
		return fmt.Sprintf("overlay   marker %d %s", data.MarkerID, verb), true

	case protocol.TypeOverlayShow:
		if !frames {
			return "", false
		}
		data, err := msg.GetOverlayData()
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("overlay   marker %d frame %s", data.MarkerID, data.URL), true

	case protocol.TypeModelPlace:
		var p protocol.PlacementData
		if err := msg.ParseData(&p); err != nil {
			return "", false
		}
		return fmt.Sprintf("model     marker %d %s", p.MarkerID, p.ModelPath), true

	case protocol.TypePong:
		return "", false

	default:
		// overlay.move and model.clear fire every tick
		return "", false
	}
}
