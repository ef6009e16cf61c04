package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type todoResponse struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	Workspaces []string `json:"workspaces"`
	Tasks      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"tasks"`
}

func todoCall(t *testing.T, handler http.Handler, method, target, body string) (int, todoResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := serve(handler, req)

	var resp todoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestTodoLifecycle(t *testing.T) {
	handler, _ := newServer(t)

	code, resp := todoCall(t, handler, http.MethodGet, "/api/todo/workspaces", "")
	if code != http.StatusOK || !resp.Success || len(resp.Workspaces) != 0 {
		t.Fatalf("expected empty listing, got %d %+v", code, resp)
	}

	for _, name := range []string{"home", "work"} {
		if code, resp := todoCall(t, handler, http.MethodPost, "/api/todo/workspace", `{"name":"`+name+`"}`); code != http.StatusOK || !resp.Success {
			t.Fatalf("add workspace %s: %d %+v", name, code, resp)
		}
	}

	code, resp = todoCall(t, handler, http.MethodPost, "/api/todo/workspace", `{"name":"home"}`)
	if code != http.StatusBadRequest || resp.Success || resp.Error != "Workspace already exists" {
		t.Fatalf("expected duplicate rejection, got %d %+v", code, resp)
	}

	code, resp = todoCall(t, handler, http.MethodPost, "/api/todo/tasks/home", `{"title":"Buy milk","description":"2 litres"}`)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("add task: %d %+v", code, resp)
	}
	todoCall(t, handler, http.MethodPost, "/api/todo/tasks/home", `{"title":"Water plants"}`)

	code, resp = todoCall(t, handler, http.MethodPut, "/api/todo/tasks/home/0", `{"description":"oat"}`)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("edit task: %d %+v", code, resp)
	}

	code, resp = todoCall(t, handler, http.MethodGet, "/api/todo/tasks/home", "")
	if code != http.StatusOK || len(resp.Tasks) != 2 {
		t.Fatalf("list tasks: %d %+v", code, resp)
	}
	if resp.Tasks[0].Title != "Buy milk" || resp.Tasks[0].Description != "oat" || resp.Tasks[1].Title != "Water plants" {
		t.Fatalf("unexpected tasks %+v", resp.Tasks)
	}

	code, resp = todoCall(t, handler, http.MethodDelete, "/api/todo/tasks/home/0", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("remove task: %d %+v", code, resp)
	}
	_, resp = todoCall(t, handler, http.MethodGet, "/api/todo/tasks/home", "")
	if len(resp.Tasks) != 1 || resp.Tasks[0].Title != "Water plants" {
		t.Fatalf("unexpected tasks after removal %+v", resp.Tasks)
	}

	code, resp = todoCall(t, handler, http.MethodDelete, "/api/todo/workspace/home", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("remove workspace: %d %+v", code, resp)
	}
	_, resp = todoCall(t, handler, http.MethodGet, "/api/todo/workspaces", "")
	if len(resp.Workspaces) != 1 || resp.Workspaces[0] != "work" {
		t.Fatalf("unexpected workspaces %v", resp.Workspaces)
	}
}

func TestTodoErrors(t *testing.T) {
	handler, _ := newServer(t)
	todoCall(t, handler, http.MethodPost, "/api/todo/workspace", `{"name":"home"}`)

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		message string
	}{
		{"blank workspace name", http.MethodPost, "/api/todo/workspace", `{"name":"  "}`, "Workspace name is required"},
		{"missing workspace tasks", http.MethodGet, "/api/todo/tasks/garden", "", "Workspace does not exist"},
		{"remove missing workspace", http.MethodDelete, "/api/todo/workspace/garden", "", "Workspace does not exist"},
		{"blank title", http.MethodPost, "/api/todo/tasks/home", `{"title":""}`, "Task title is required"},
		{"index out of range", http.MethodDelete, "/api/todo/tasks/home/3", "", "Task index out of range"},
		{"non numeric index", http.MethodPut, "/api/todo/tasks/home/first", `{"title":"x"}`, "Task index out of range"},
		{"invalid json", http.MethodPost, "/api/todo/workspace", `{"name":`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := todoCall(t, handler, tt.method, tt.target, tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", code)
			}
			if resp.Success || resp.Error != tt.message {
				t.Fatalf("expected %q, got %+v", tt.message, resp)
			}
		})
	}
}
