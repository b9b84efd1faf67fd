package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InstructionType discriminates the server->page envelope.
type InstructionType string

const (
	TypeSnapshot InstructionType = "snapshot"
	TypeConfirm  InstructionType = "confirm"
	TypePrompt   InstructionType = "prompt"
)

// SnapshotActionCapture is the only snapshot action pages implement.
const SnapshotActionCapture = "capture"

// Instruction is the server->page request envelope. Exactly one reply
// object is expected back on the same connection, in send order.
type Instruction struct {
	Type     InstructionType `json:"type"`
	Action   string          `json:"action,omitempty"`
	Message  string          `json:"message,omitempty"`
	Question string          `json:"question,omitempty"`
}

func SnapshotInstruction() Instruction {
	return Instruction{Type: TypeSnapshot, Action: SnapshotActionCapture}
}

func ConfirmInstruction(message string) Instruction {
	return Instruction{Type: TypeConfirm, Message: message}
}

func PromptInstruction(question string) Instruction {
	return Instruction{Type: TypePrompt, Question: question}
}

func (in Instruction) Validate() error {
	switch in.Type {
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidInstruction)
	case TypeSnapshot:
		if strings.TrimSpace(in.Action) == "" {
			return fmt.Errorf("%w: missing action", ErrInvalidInstruction)
		}
	case TypeConfirm, TypePrompt:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInstructionType, in.Type)
	}
	return nil
}

// Encode validates the instruction and serializes it as one text frame.
func (in Instruction) Encode() ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(in)
}
