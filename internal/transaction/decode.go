// internal/transaction/decode.go
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/rovshanmuradov/serum-sender/internal/blockchain"
	"github.com/rovshanmuradov/serum-sender/internal/blockchain/txerr"
)

const (
	programLogPrefix   = "Program log: "
	errorPrefix        = "Error: "
	anchorErrorMarker  = "AnchorError occurred"
	anchorMessageField = "Error Message:"

	// Причина по умолчанию, когда ни симуляция, ни статус не дали текста ошибки.
	genericFailureReason = "Transaction failed"
)

// FailureReason подбирает человекочитаемую причину ошибки транзакции.
//
// Порядок: последняя строка "Program log:" из логов симуляции, затем
// расшифрованный InstructionError, затем ошибка в виде JSON. landed - ошибка,
// с которой транзакция попала в блок; используется, если симуляция ошибки не показала.
func FailureReason(tx *solana.Transaction, sim *blockchain.SimulationResult, landed interface{}) string {
	if sim != nil && sim.Err != nil {
		if reason, ok := lastProgramLog(sim.Logs); ok {
			return reason
		}
		return describeError(tx, sim.Err)
	}
	if landed != nil {
		return describeError(tx, landed)
	}
	return genericFailureReason
}

// lastProgramLog ищет последнюю строку "Program log: ", просматривая логи с конца.
func lastProgramLog(logs []string) (string, bool) {
	for i := len(logs) - 1; i >= 0; i-- {
		line := logs[i]
		if !strings.HasPrefix(line, programLogPrefix) {
			continue
		}
		msg := strings.TrimPrefix(line, programLogPrefix)
		if strings.Contains(msg, anchorErrorMarker) {
			if anchorMsg := anchorErrorMessage(msg); anchorMsg != "" {
				return anchorMsg, true
			}
		}
		msg = strings.TrimSpace(strings.TrimPrefix(msg, errorPrefix))
		if msg == "" {
			continue
		}
		return msg, true
	}
	return "", false
}

// anchorErrorMessage достаёт текст из строки вида
// "AnchorError occurred. Error Code: X. Error Number: 6001. Error Message: Slippage exceeded."
func anchorErrorMessage(line string) string {
	idx := strings.Index(line, anchorMessageField)
	if idx < 0 {
		return ""
	}
	msg := strings.TrimSpace(line[idx+len(anchorMessageField):])
	return strings.TrimSuffix(msg, ".")
}

func describeError(tx *solana.Transaction, raw interface{}) string {
	ie, err := txerr.ParseInstructionError(raw)
	if err == nil && ie != nil {
		if ie.Key == "Custom" {
			if msg, ok := customErrorText(tx, ie.Index, ie.Code); ok {
				return fmt.Sprintf("Error processing Instruction %d: %s", ie.Index, msg)
			}
		}
		return ie.Error()
	}

	if s, ok := raw.(string); ok {
		return s
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}

// customErrorText ищет код ошибки в таблице программы, вызванной инструкцией index.
func customErrorText(tx *solana.Transaction, index int, code uint32) (string, bool) {
	if tx == nil || index < 0 || index >= len(tx.Message.Instructions) {
		return "", false
	}
	programIdx := int(tx.Message.Instructions[index].ProgramIDIndex)
	if programIdx >= len(tx.Message.AccountKeys) {
		return "", false
	}

	var table map[uint32]string
	switch tx.Message.AccountKeys[programIdx] {
	case solana.SystemProgramID:
		table = systemProgramErrors
	case solana.TokenProgramID:
		table = tokenProgramErrors
	default:
		return "", false
	}
	msg, ok := table[code]
	return msg, ok
}

// RPCErrorReason достаёт причину из ответа узла с проваленной preflight-симуляцией.
func RPCErrorReason(err error) (string, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return "", false
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return rpcErr.Message, rpcErr.Message != ""
	}

	var logs []string
	if rawLogs, ok := data["logs"].([]interface{}); ok {
		for _, l := range rawLogs {
			if s, ok := l.(string); ok {
				logs = append(logs, s)
			}
		}
	}
	if reason, ok := lastProgramLog(logs); ok {
		return reason, true
	}
	if txErr, ok := data["err"]; ok && txErr != nil {
		return describeError(nil, txErr), true
	}
	return rpcErr.Message, rpcErr.Message != ""
}

var systemProgramErrors = map[uint32]string{
	0: "an account with the same address already exists",
	1: "account does not have enough SOL to perform the operation",
	2: "cannot assign account to this program id",
	3: "cannot allocate account data of this length",
	4: "length of requested seed is too long",
	5: "provided address does not match addressed derived from seed",
	6: "advancing stored nonce requires a populated RecentBlockhashes sysvar",
	7: "stored nonce is still in recent_blockhashes",
	8: "specified nonce does not match stored nonce",
}

var tokenProgramErrors = map[uint32]string{
	0:  "Lamport balance below rent-exempt threshold",
	1:  "Insufficient funds",
	2:  "Invalid Mint",
	3:  "Account not associated with this Mint",
	4:  "Owner does not match",
	5:  "Fixed supply",
	6:  "Already in use",
	7:  "Invalid number of provided signers",
	8:  "Invalid number of required signers",
	9:  "State is unititialized",
	10: "Instruction does not support native tokens",
	11: "Non-native account can only be closed if its balance is zero",
	12: "Invalid instruction",
	13: "State is invalid for requested operation",
	14: "Operation overflowed",
	15: "Account does not support specified authority type",
	16: "This token mint cannot freeze accounts",
	17: "Account is frozen",
	18: "The provided decimals value different from the Mint decimals",
	19: "Instruction does not support non-native tokens",
}
