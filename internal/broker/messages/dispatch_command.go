package messages

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DispatchCommand: входящая команда на отгрузку заказа (топик dispatch-команд).
type DispatchCommand struct {
	MessageID   string `json:"messageId"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Carrier     string `json:"carrier"`
	RequestedAt string `json:"requestedAt"`
}

// ParseError marks a payload that is not a structurally valid command.
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseDispatchCommand accepts a JSON object that carries all five fields as strings.
// Missing fields, null, or values of another JSON type are rejected.
func ParseDispatchCommand(raw []byte) (DispatchCommand, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return DispatchCommand{}, &ParseError{Message: "invalid json: " + err.Error()}
	}

	var cmd DispatchCommand
	targets := []struct {
		name string
		dst  *string
	}{
		{"messageId", &cmd.MessageID},
		{"requestId", &cmd.RequestID},
		{"orderId", &cmd.OrderID},
		{"carrier", &cmd.Carrier},
		{"requestedAt", &cmd.RequestedAt},
	}
	for _, t := range targets {
		v, ok := fields[t.name]
		if !ok {
			return DispatchCommand{}, &ParseError{Field: t.name, Message: "is required"}
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '"' {
			return DispatchCommand{}, &ParseError{Field: t.name, Message: "must be a string"}
		}
		if err := json.Unmarshal(v, t.dst); err != nil {
			return DispatchCommand{}, &ParseError{Field: t.name, Message: "must be a string"}
		}
	}
	return cmd, nil
}
