package tool

import (
	"encoding/json"

	"github.com/opencode-ai/editorbridge/internal/editor"
	"github.com/opencode-ai/editorbridge/internal/protocol"
)

// Registry is the static catalog of callable tools. It is populated once at
// construction and read-only afterwards, so lookups need no locking.
type Registry struct {
	editor    editor.Editor
	defs      []Definition
	executors map[string]Executor
}

// NewRegistry builds the catalog around the given editor.
func NewRegistry(ed editor.Editor) *Registry {
	r := &Registry{
		editor:    ed,
		executors: make(map[string]Executor),
	}

	r.register(Definition{
		Name:        "openFile",
		Description: "Open a file in the editor, optionally at a specific line",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Absolute path of the file to open"},
				"line": {"type": "number", "description": "1-based line to move the caret to"}
			},
			"required": ["path"]
		}`),
	}, r.openFile)

	r.register(Definition{
		Name:        "openDiff",
		Description: "Open a diff of a file's working copy against a git ref (default HEAD)",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Absolute path of the file to diff"},
				"ref": {"type": "string", "description": "Git ref to diff against, defaults to HEAD"}
			},
			"required": ["path"]
		}`),
	}, r.openDiff)

	r.register(Definition{
		Name:        "getChangedFiles",
		Description: "List files changed between two git refs (defaults HEAD~1..HEAD)",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"repoPath": {"type": "string", "description": "Absolute path of the repository"},
				"fromRef": {"type": "string", "description": "Base ref, defaults to HEAD~1"},
				"toRef": {"type": "string", "description": "Target ref, defaults to HEAD"}
			},
			"required": ["repoPath"]
		}`),
	}, r.getChangedFiles)

	r.register(Definition{
		Name:        "openChangedFiles",
		Description: "Open every file changed between two refs: diffs for modifications, plain files for additions",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"repoPath": {"type": "string", "description": "Absolute path of the repository"},
				"fromRef": {"type": "string", "description": "Base ref, defaults to HEAD~1"},
				"toRef": {"type": "string", "description": "Target ref, defaults to HEAD"},
				"isolated": {"type": "boolean", "description": "Show only these comparisons in a dedicated maximized group"},
				"newWindow": {"type": "boolean", "description": "Legacy: detach into a separate window (ignored when isolated is set)"}
			},
			"required": ["repoPath"]
		}`),
	}, r.openChangedFiles)

	r.register(Definition{
		Name:        "runCommand",
		Description: "Run an arbitrary editor command by id with optional positional arguments",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"command": {"type": "string", "description": "Editor command id"},
				"args": {"type": "array", "items": {"type": "string"}, "description": "Positional arguments"}
			},
			"required": ["command"]
		}`),
	}, r.runCommand)

	return r
}

func (r *Registry) register(def Definition, exec Executor) {
	r.defs = append(r.defs, def)
	r.executors[def.Name] = exec
}

// List returns the tool definitions in declaration order.
func (r *Registry) List() []protocol.Tool {
	tools := make([]protocol.Tool, 0, len(r.defs))
	for _, d := range r.defs {
		tools = append(tools, protocol.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return tools
}

// Resolve looks up a tool's executor by name.
func (r *Registry) Resolve(name string) (Executor, bool) {
	exec, ok := r.executors[name]
	return exec, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.defs)
}

// schema validates the literal at startup so a typo fails fast.
func schema(s string) json.RawMessage {
	compact := json.RawMessage(s)
	var v any
	if err := json.Unmarshal(compact, &v); err != nil {
		panic("tool: bad schema literal: " + err.Error())
	}
	return compact
}
