// internal/actions/priority.go
package actions

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

type PriorityLevel string

const (
	PriorityNone    PriorityLevel = "none"
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// ParsePriorityLevel разбирает уровень из конфигурации; пустая строка - без приоритета.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	level := PriorityLevel(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case "":
		return PriorityNone, nil
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityExtreme:
		return level, nil
	default:
		return "", fmt.Errorf("unknown priority level: %s", s)
	}
}

type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports
	HeapSize     uint32 // Additional heap memory (optional)
}

type PriorityManager struct {
	profiles map[PriorityLevel]*PriorityConfig
	logger   *zap.Logger
}

func NewPriorityManager(logger *zap.Logger) *PriorityManager {
	return &PriorityManager{
		profiles: map[PriorityLevel]*PriorityConfig{
			PriorityNone: {},
			PriorityLow: {
				ComputeUnits: 200_000,
				PriorityFee:  1_000,
			},
			PriorityMedium: {
				ComputeUnits: 400_000,
				PriorityFee:  5_000,
			},
			PriorityHigh: {
				ComputeUnits: 800_000,
				PriorityFee:  10_000,
			},
			PriorityExtreme: {
				ComputeUnits: 1_000_000,
				PriorityFee:  50_000,
				HeapSize:     32 * 1024, // 32KB
			},
		},
		logger: logger.Named("priority"),
	}
}

func (pm *PriorityManager) CreatePriorityInstructions(level PriorityLevel) ([]solana.Instruction, error) {
	config, ok := pm.profiles[level]
	if !ok {
		return nil, fmt.Errorf("unknown priority level: %s", level)
	}

	pm.logger.Debug("Priority instructions",
		zap.String("level", string(level)),
		zap.Uint32("compute_units", config.ComputeUnits),
		zap.Uint64("micro_lamports", config.PriorityFee))
	return pm.createInstructions(config), nil
}

func (pm *PriorityManager) CreateCustomPriorityInstructions(priorityFee uint64, units uint32) []solana.Instruction {
	return pm.createInstructions(&PriorityConfig{
		ComputeUnits: units,
		PriorityFee:  priorityFee,
	})
}

func (pm *PriorityManager) createInstructions(config *PriorityConfig) []solana.Instruction {
	var instructions []solana.Instruction

	if config.ComputeUnits > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(config.ComputeUnits).Build())
	}
	if config.PriorityFee > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(config.PriorityFee).Build())
	}
	if config.HeapSize > 0 {
		instructions = append(instructions, computebudget.NewRequestHeapFrameInstruction(config.HeapSize).Build())
	}

	return instructions
}
