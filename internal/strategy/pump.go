package strategy

import (
	"bytes"
	"context"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
	"ShredPull/pkg/logger"
)

const (
	PumpProgramID        = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	PumpMigrationAccount = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"
)

var (
	// anchor discriminators of the pump program instructions
	PumpCreateDiscriminator   = []byte{24, 30, 200, 40, 5, 28, 7, 119}
	PumpWithdrawDiscriminator = []byte{183, 18, 70, 156, 148, 109, 161, 34}
)

// invokes reports whether tx calls program with data starting with disc.
// An empty disc matches any instruction of program.
func invokes(tx *models.Transaction, program string, disc []byte) bool {
	for _, ix := range tx.Instructions {
		if tx.ProgramID(ix) == program && bytes.HasPrefix(ix.Data, disc) {
			return true
		}
	}
	return false
}

// PumpDetector flags token creations on the pump program and hands them to
// the notifier, if any.
type PumpDetector struct {
	program  string
	notifier drepo.Notifier
	logger   *logger.Logger
}

func NewPumpDetector(program string, notifier drepo.Notifier, lg *logger.Logger) *PumpDetector {
	if program == "" {
		program = PumpProgramID
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &PumpDetector{program: program, notifier: notifier, logger: lg}
}

func (d *PumpDetector) Name() string { return models.StrategyPump }

func (d *PumpDetector) Detect(ctx context.Context, b *models.EntryBatch) []models.Signature {
	var out []models.Signature
	for i := range b.Entries {
		for j := range b.Entries[i].Transactions {
			tx := &b.Entries[i].Transactions[j]
			if invokes(tx, d.program, PumpCreateDiscriminator) {
				out = append(out, models.Signature(tx.FirstSignature()))
			}
		}
	}
	if len(out) > 0 && d.notifier != nil {
		if err := d.notifier.Notify(ctx, out); err != nil {
			d.logger.Warn("pump notify failed", logger.Error(err), logger.Int("count", len(out)))
		}
	}
	return out
}

// GraduatesDetector flags bonding curve completions: the migration account
// withdrawing through the pump program.
type GraduatesDetector struct {
	program   string
	migration string
}

func NewGraduatesDetector(program, migration string) *GraduatesDetector {
	if program == "" {
		program = PumpProgramID
	}
	if migration == "" {
		migration = PumpMigrationAccount
	}
	return &GraduatesDetector{program: program, migration: migration}
}

func (d *GraduatesDetector) Name() string { return models.StrategyGraduates }

func (d *GraduatesDetector) Detect(_ context.Context, b *models.EntryBatch) []models.Signature {
	var out []models.Signature
	for i := range b.Entries {
		for j := range b.Entries[i].Transactions {
			tx := &b.Entries[i].Transactions[j]
			if tx.HasAccount(d.migration) && invokes(tx, d.program, PumpWithdrawDiscriminator) {
				out = append(out, models.Signature(tx.FirstSignature()))
			}
		}
	}
	return out
}
