// ABOUTME: Shared helpers for store tests: builds scene event histories through the core reducer.
package store_test

import (
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/funcdeck/scene/core"
)

// history executes cmds against a fresh scene and returns every event
// produced along with the final state.
func history(t *testing.T, cmds ...core.Command) (ulid.ULID, []core.Event, *core.SceneState) {
	t.Helper()
	sceneID := core.NewULID()
	state := core.NewSceneState()
	all := append([]core.Command{core.CreateSceneCommand{Title: "Rig", Description: "test rig"}}, cmds...)

	var events []core.Event
	for _, cmd := range all {
		evs, err := state.Execute(sceneID, cmd)
		if err != nil {
			t.Fatalf("%s: %v", cmd.CommandType(), err)
		}
		events = append(events, evs...)
	}
	return sceneID, events, state
}

func addConst(name string, v float64) core.AddFunctionCommand {
	return core.AddFunctionCommand{Name: name, Kind: core.KindConst, Params: core.ConstParams{Constant: v}}
}

func addSum(name, f1, f2 string) core.AddFunctionCommand {
	return core.AddFunctionCommand{Name: name, Kind: core.KindSum, Params: core.BinaryParams{F1: f1, F2: f2}}
}
