package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Task is one todo entry.
type Task struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Document is the whole todo file: workspaces in insertion order, each with
// its ordered task list. It encodes as a JSON object whose key order matches
// the workspace order.
type Document struct {
	names []string
	tasks map[string][]Task
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{tasks: map[string][]Task{}}
}

// Workspaces returns the workspace names in insertion order.
func (d *Document) Workspaces() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Has reports whether workspace exists.
func (d *Document) Has(workspace string) bool {
	_, ok := d.tasks[workspace]
	return ok
}

// Tasks returns a copy of the tasks in workspace.
func (d *Document) Tasks(workspace string) ([]Task, bool) {
	tasks, ok := d.tasks[workspace]
	if !ok {
		return nil, false
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out, true
}

func (d *Document) addWorkspace(name string) {
	d.names = append(d.names, name)
	d.tasks[name] = []Task{}
}

func (d *Document) removeWorkspace(name string) {
	delete(d.tasks, name)
	for i, existing := range d.names {
		if existing == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			return
		}
	}
}

func (d *Document) setTasks(workspace string, tasks []Task) {
	d.tasks[workspace] = tasks
}

// MarshalJSON writes workspaces in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		tasks := d.tasks[name]
		if tasks == nil {
			tasks = []Task{}
		}
		value, err := json.Marshal(tasks)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a workspace object, keeping key order.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("todo document: expected object, got %v", tok)
	}

	fresh := NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("todo document: expected workspace name, got %v", tok)
		}
		var tasks []Task
		if err := dec.Decode(&tasks); err != nil {
			return fmt.Errorf("todo document: workspace %q: %w", name, err)
		}
		if tasks == nil {
			tasks = []Task{}
		}
		if !fresh.Has(name) {
			fresh.names = append(fresh.names, name)
		}
		fresh.tasks[name] = tasks
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = *fresh
	return nil
}

// encode renders the document with four-space indentation.
func (d *Document) encode() ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
