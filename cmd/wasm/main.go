//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/geom"
	"github.com/printdeck/studio/backend-go/internal/render"
)

var (
	ed   *engine.Editor
	sess *engine.Session
)

func main() {
	ed = engine.New(document.NewSampleScene())
	sess = engine.NewSession()

	// Create the editor API object
	studioEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	studioEditor.Set("loadScene", js.FuncOf(loadScene))
	studioEditor.Set("newBlank", js.FuncOf(newBlank))
	studioEditor.Set("pointerDown", js.FuncOf(pointerDown))
	studioEditor.Set("pointerMove", js.FuncOf(pointerMove))
	studioEditor.Set("pointerUp", js.FuncOf(pointerUp))
	studioEditor.Set("cancelGesture", js.FuncOf(cancelGesture))
	studioEditor.Set("setZoom", js.FuncOf(setZoom))
	studioEditor.Set("setTool", js.FuncOf(setTool))
	studioEditor.Set("addElement", js.FuncOf(addElement))
	studioEditor.Set("addImage", js.FuncOf(addImage))
	studioEditor.Set("updateProperties", js.FuncOf(updateProperties))
	studioEditor.Set("commit", js.FuncOf(commit))
	studioEditor.Set("elementAction", js.FuncOf(elementAction))
	studioEditor.Set("setCanvas", js.FuncOf(setCanvas))
	studioEditor.Set("undo", js.FuncOf(undo))
	studioEditor.Set("redo", js.FuncOf(redo))

	// --- Queries (frontend ← editor) ---
	studioEditor.Set("render", js.FuncOf(renderCommands))
	studioEditor.Set("getScene", js.FuncOf(getScene))
	studioEditor.Set("getState", js.FuncOf(getState))
	studioEditor.Set("exportDesign", js.FuncOf(exportDesign))
	studioEditor.Set("presets", js.FuncOf(presets))

	// Register on global scope
	js.Global().Set("studioEditor", studioEditor)

	// Signal that WASM is ready
	js.Global().Set("studioWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func changedResult(changed bool, err error) interface{} {
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "changed": changed})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

func point(args []js.Value) geom.Point {
	return geom.Point{X: args[0].Float(), Y: args[1].Float()}
}

// --- Command Handlers ---

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("scene JSON")
	}
	scene, err := document.DecodeScene("scene.json", []byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	ed.Load(sess, scene)
	return okResult()
}

func newBlank(this js.Value, args []js.Value) interface{} {
	preset := document.DefaultPreset
	if len(args) > 0 && args[0].Type() == js.TypeString {
		preset = args[0].String()
	}
	blank, err := engine.NewBlank(preset)
	if err != nil {
		return errorResult(err)
	}
	ed = blank
	sess = engine.NewSession()
	return okResult()
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("x, y")
	}
	if err := ed.PointerDown(sess, point(args)); err != nil {
		return errorResult(err)
	}
	return js.ValueOf(sess.Gesture().String())
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.PointerMove(sess, point(args))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(ed.PointerUp(sess, point(args)))
}

func cancelGesture(this js.Value, args []js.Value) interface{} {
	ed.CancelGesture(sess)
	return nil
}

// setZoom(zoom, originX, originY)
func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sess.SetZoom(args[0].Float())
	if len(args) >= 3 {
		sess.Origin = geom.Point{X: args[1].Float(), Y: args[2].Float()}
	}
	return js.ValueOf(sess.Zoom)
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("tool")
	}
	switch tool := engine.Tool(args[0].String()); tool {
	case engine.ToolSelect, engine.ToolText, engine.ToolShape:
		sess.Tool = tool
		return okResult()
	}
	return missing("known tool")
}

// addElement(kind, patchJSON?)
func addElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("kind")
	}
	var patch document.Patch
	if len(args) > 1 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
			return errorResult(err)
		}
	}
	el, err := ed.AddElement(sess, document.Kind(args[0].String()), patch)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(el.ID())
}

// addImage(uint8Array) decodes the bytes in the page and places the image.
func addImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("image bytes")
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])
	el, err := ed.AddImage(context.Background(), sess, data)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(el.ID())
}

// updateProperties(id, patchJSON, commit)
func updateProperties(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id, patch")
	}
	var patch document.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return errorResult(err)
	}
	id := args[0].String()
	if len(args) > 2 && args[2].Bool() {
		return changedResult(ed.UpdateProperties(id, patch))
	}
	return changedResult(ed.PreviewProperties(id, patch))
}

func commit(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.CommitPending())
}

// elementAction(action, id, arg?) runs one of the discrete element commands.
func elementAction(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("action, id")
	}
	id := args[1].String()
	switch args[0].String() {
	case "duplicate":
		el, ok, err := ed.Duplicate(sess, id)
		if err != nil {
			return errorResult(err)
		}
		if !ok {
			return js.ValueOf("")
		}
		return js.ValueOf(el.ID())
	case "delete":
		return js.ValueOf(ed.Delete(sess, id))
	case "rotate":
		return js.ValueOf(ed.Rotate90(id))
	case "flip":
		axis := engine.AxisHorizontal
		if len(args) > 2 {
			a, err := engine.ParseAxis(args[2].String())
			if err != nil {
				return errorResult(err)
			}
			axis = a
		}
		return js.ValueOf(ed.Flip(id, axis))
	case "front":
		return js.ValueOf(ed.BringToFront(id))
	case "back":
		return js.ValueOf(ed.SendToBack(id))
	}
	return missing("known action")
}

// setCanvas(preset) or setCanvas(width, height)
func setCanvas(this js.Value, args []js.Value) interface{} {
	switch {
	case len(args) >= 2:
		return changedResult(ed.SetCanvasSize(document.Size{Width: args[0].Float(), Height: args[1].Float()}))
	case len(args) == 1:
		return changedResult(ed.SetCanvasPreset(args[0].String()))
	}
	return missing("preset or size")
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.Undo(sess))
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.Redo(sess))
}

// --- Query Handlers ---

// render(scale) returns the display list as JSON for the canvas 2D drawer.
func renderCommands(this js.Value, args []js.Value) interface{} {
	scale := 1.0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		scale = args[0].Float()
	}
	cmds, err := ed.DrawCommands(scale)
	if err != nil {
		return errorResult(err)
	}
	out, err := render.DrawCommandsToJSON(cmds)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(out)
}

func getScene(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ed.Scene())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(map[string]interface{}{
		"selected": sess.Selected,
		"tool":     string(sess.Tool),
		"zoom":     sess.Zoom,
		"gesture":  sess.Gesture().String(),
		"canUndo":  ed.CanUndo() || ed.Pending(),
		"canRedo":  ed.CanRedo(),
		"pending":  ed.Pending(),
	})
}

// exportDesign(format, quality) returns {fileName, mime, data: Uint8Array}.
func exportDesign(this js.Value, args []js.Value) interface{} {
	var opts export.Options
	if len(args) > 0 {
		opts.Format = export.Format(args[0].String())
	}
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		opts.Quality = args[1].Float()
	}
	res, err := ed.Export(context.Background(), opts)
	if err != nil {
		return errorResult(err)
	}
	data := js.Global().Get("Uint8Array").New(len(res.Data))
	js.CopyBytesToJS(data, res.Data)
	return js.ValueOf(map[string]interface{}{
		"fileName": res.FileName,
		"mime":     res.MIME,
		"data":     data,
	})
}

func presets(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(document.Presets())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}
