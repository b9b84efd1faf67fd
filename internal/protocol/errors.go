package protocol

import "errors"

var (
	ErrInvalidInstruction     = errors.New("protocol: invalid instruction")
	ErrUnknownInstructionType = errors.New("protocol: unknown instruction type")
)
