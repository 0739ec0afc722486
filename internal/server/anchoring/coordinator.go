// Package anchoring reconciles anchoring requests with record confirmation
// state. Anchoring is best-effort: a record is fully readable and analyzable
// in every state, and a failed submission never escalates beyond the caller
// that asked for it.
package anchoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/logging"
	"github.com/medchain/medchain-server/internal/server/anchor"
	"github.com/medchain/medchain-server/internal/server/models"
)

// State is the per-record anchoring state: Unanchored → Pending → Confirmed.
type State string

const (
	StateUnanchored State = "unanchored"
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
)

// Submission is the handle returned to anchoring callers. A Pending
// submission resolves by polling RequestAnchor or Status again; there is no
// callback mechanism.
type Submission struct {
	RecordID string
	State    State
	TxRef    string
}

// recordLedger is the slice of the record ledger the coordinator drives.
type recordLedger interface {
	Get(ctx context.Context, id string) (*models.MedicalRecord, error)
	Confirm(ctx context.Context, id, txRef string) (*models.MedicalRecord, error)
}

type Coordinator struct {
	records recordLedger
	ledger  anchor.Adapter
	logger  logging.Logger
}

func NewCoordinator(records recordLedger, ledger anchor.Adapter, logger logging.Logger) *Coordinator {
	return &Coordinator{
		records: records,
		ledger:  ledger,
		logger:  logger.With("module", "anchoring"),
	}
}

// RequestAnchor submits the record's content hash for anchoring. If the
// ledger already holds an anchor for the hash, whoever submitted it, the
// coordinator short-circuits to Confirmed without a duplicate transaction.
// A failed submission surfaces as ErrAnchorFault and leaves the record
// untouched and usable.
func (c *Coordinator) RequestAnchor(ctx context.Context, recordID string) (*Submission, error) {
	record, err := c.records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.Confirmed {
		return &Submission{RecordID: recordID, State: StateConfirmed, TxRef: record.TxRef}, nil
	}

	status, err := c.ledger.IsAnchored(ctx, record.ContentHash)
	if err != nil {
		// The status query is an optimization; the submit below gives the
		// definitive answer on whether the ledger is reachable.
		c.logger.Warn(ctx, "anchor status check failed, submitting anyway",
			"record_id", recordID, "error", err.Error())
	} else if status.Anchored {
		return c.confirmAnchored(ctx, recordID, status.TxRef)
	}

	txRef, pending, err := c.ledger.Submit(ctx, record.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordID, err)
	}

	if pending {
		c.logger.Info(ctx, "anchor pending", "record_id", recordID, "tx_ref", txRef)
		return &Submission{RecordID: recordID, State: StatePending, TxRef: txRef}, nil
	}

	return c.confirmAnchored(ctx, recordID, txRef)
}

// Status reports the record's anchoring state, reconciling with the ledger:
// an anchor that landed since the last look is folded into the record.
func (c *Coordinator) Status(ctx context.Context, recordID string) (*Submission, error) {
	record, err := c.records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.Confirmed {
		return &Submission{RecordID: recordID, State: StateConfirmed, TxRef: record.TxRef}, nil
	}

	status, err := c.ledger.IsAnchored(ctx, record.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", recordID, err)
	}
	if status.Anchored {
		return c.confirmAnchored(ctx, recordID, status.TxRef)
	}

	return &Submission{RecordID: recordID, State: StateUnanchored}, nil
}

// confirmAnchored marks the record confirmed with txRef. Losing a confirm
// race is fine here: the record ended up confirmed either way, so the
// coordinator reports the stored reference instead of an error.
func (c *Coordinator) confirmAnchored(ctx context.Context, recordID, txRef string) (*Submission, error) {
	record, err := c.records.Confirm(ctx, recordID, txRef)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyConfirmed) {
			record, err = c.records.Get(ctx, recordID)
			if err != nil {
				return nil, err
			}
			return &Submission{RecordID: recordID, State: StateConfirmed, TxRef: record.TxRef}, nil
		}
		return nil, err
	}

	c.logger.Info(ctx, "record anchored", "record_id", recordID, "tx_ref", record.TxRef)

	return &Submission{RecordID: recordID, State: StateConfirmed, TxRef: record.TxRef}, nil
}
