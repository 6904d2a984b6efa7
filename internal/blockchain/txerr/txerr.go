// internal/blockchain/txerr/txerr.go
package txerr

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// InstructionError - разобранный вариант {"InstructionError": [index, err]}.
type InstructionError struct {
	Index int
	// Key - строковый ключ ошибки ("InvalidArgument", "Custom", ...).
	Key string
	// Code заполняется только для Key == "Custom".
	Code uint32
}

func (i InstructionError) Error() string {
	if i.Key == "Custom" {
		return fmt.Sprintf("Error processing Instruction %d: custom program error: 0x%x", i.Index, i.Code)
	}
	return fmt.Sprintf("Error processing Instruction %d: %s", i.Index, Text(i.Key))
}

// ParseInstructionError разбирает поле err из статуса подписи или симуляции.
// Возвращает nil без ошибки, если это не InstructionError.
func ParseInstructionError(raw interface{}) (*InstructionError, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	v, ok := m["InstructionError"]
	if !ok {
		return nil, nil
	}

	values, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return nil, errors.Errorf("invalid InstructionError tuple size: %d", len(values))
	}

	index, err := parseNumber(values[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse instruction index")
	}
	ie := &InstructionError{Index: index}

	switch t := values[1].(type) {
	case string:
		ie.Key = t
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Errorf("invalid instruction result size: %d", len(t))
		}
		for k, val := range t {
			ie.Key = k
			if k == "Custom" {
				code, err := parseNumber(val)
				if err != nil {
					return nil, errors.Wrap(err, "failed to parse custom error code")
				}
				ie.Code = uint32(code)
			}
		}
	default:
		return nil, errors.Errorf("unhandled instruction error type %T", t)
	}
	return ie, nil
}

// Text возвращает описание ключа InstructionError или сам ключ.
func Text(key string) string {
	if text, ok := instructionErrorTexts[key]; ok {
		return text
	}
	return key
}

func parseNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value: %v", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value: %v", v)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case uint32:
		return int(n), nil
	}
	return 0, errors.Errorf("non numeric value: %v", v)
}

var instructionErrorTexts = map[string]string{
	"GenericError":              "generic instruction error",
	"InvalidArgument":           "invalid program argument",
	"InvalidInstructionData":    "invalid instruction data",
	"InvalidAccountData":        "invalid account data for instruction",
	"AccountDataTooSmall":       "account data too small for instruction",
	"InsufficientFunds":         "insufficient funds for instruction",
	"IncorrectProgramId":        "incorrect program id for instruction",
	"MissingRequiredSignature":  "missing required signature for instruction",
	"AccountAlreadyInitialized": "instruction requires an uninitialized account",
	"UninitializedAccount":      "instruction requires an initialized account",
	"UnbalancedInstruction":     "sum of account balances before and after instruction do not match",
	"ModifiedProgramId":         "instruction illegally modified the program id of an account",
	"ReadonlyLamportChange":     "instruction changed the balance of a read-only account",
	"ReadonlyDataModified":      "instruction modified data of a read-only account",
	"NotEnoughAccountKeys":      "insufficient account keys for instruction",
	"AccountNotExecutable":      "instruction expected an executable account",
	"AccountBorrowFailed":       "instruction tries to borrow reference for an account which is already borrowed",
	"MissingAccount":            "an account required by the instruction is missing",
	"InvalidSeeds":              "provided seeds do not result in a valid address",
	"InvalidRealloc":            "failed to reallocate account data",
}
