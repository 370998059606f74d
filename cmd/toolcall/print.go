package main

import (
	"fmt"
	"io"

	"github.com/chris/toolcall/internal/llm"
	"github.com/chris/toolcall/internal/prompthub"
)

func printMessage(w io.Writer, m llm.Message) {
	switch {
	case m.Role == llm.RoleTool:
		fmt.Fprintf(w, "[tool %s] %s\n", m.ToolCallID, m.Content)
	case len(m.ToolCalls) > 0:
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(w, "[%s -> %s %s] %s\n", m.Role, tc.Name, tc.ID, tc.Arguments())
		}
	default:
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
	}
}

// printDocument writes the whole body, or only the value at field when set.
func printDocument(w io.Writer, doc *prompthub.Document, field string) error {
	if field == "" {
		_, err := fmt.Fprintln(w, doc.String())
		return err
	}
	v := doc.Get(field)
	if !v.Exists() {
		return fmt.Errorf("field %q not found in response", field)
	}
	_, err := fmt.Fprintln(w, v.String())
	return err
}
