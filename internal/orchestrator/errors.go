package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tool-resolution errors never abort a run. All but MalformedToolCallError
// are turned into a result payload the model sees on the next turn.

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

type ToolTimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
}

// MalformedToolCallError marks a call whose id cannot be echoed back. The
// call is dropped, not answered.
type MalformedToolCallError struct {
	ID   string
	Tool string
}

func (e *MalformedToolCallError) Error() string {
	return fmt.Sprintf("tool call for %s has malformed id %q", e.Tool, e.ID)
}

// errorPayload renders a tool failure as the JSON payload sent to the model.
func errorPayload(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()}) // string map; marshal cannot fail
	return string(b)
}
