package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Operation names as they appear in receipts, events, logs and metrics.
const (
	OpCreateGrant         = "create_grant"
	OpRegisterApplication = "register_application"
	OpApproveApplication  = "approve_application"
	OpDenyApplication     = "deny_application"
	OpVote                = "vote"
)

// Receipt acknowledges an applied registry call. TxID is the content id of
// the call record as submitted, so two receipts never share an id. Ids the
// store assigns are filled in afterwards with Assign.
type Receipt struct {
	TxID       string    `json:"tx_id"`
	Op         string    `json:"op"`
	Caller     Identity  `json:"caller"`
	GrantID    uint64    `json:"grant_id"`
	ProjectIDs []uint64  `json:"project_ids,omitempty"`
	AppliedAt  time.Time `json:"applied_at"`
}

type callRecord struct {
	Nonce      string    `json:"nonce"`
	Op         string    `json:"op"`
	Caller     Identity  `json:"caller"`
	GrantID    uint64    `json:"grant_id"`
	ProjectIDs []uint64  `json:"project_ids,omitempty"`
	Args       any       `json:"args,omitempty"`
	AppliedAt  time.Time `json:"applied_at"`
}

// NewReceipt builds the receipt for a call; args are folded into the
// content id but not echoed back.
func NewReceipt(op string, caller Identity, grantID uint64, projectIDs []uint64, args any, at time.Time) (Receipt, error) {
	rec := callRecord{
		Nonce:      uuid.NewString(),
		Op:         op,
		Caller:     caller,
		GrantID:    grantID,
		ProjectIDs: projectIDs,
		Args:       args,
		AppliedAt:  at.UTC(),
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal call record: %w", err)
	}

	mh, err := multihash.Sum(raw, multihash.SHA2_256, -1)
	if err != nil {
		return Receipt{}, fmt.Errorf("hash call record: %w", err)
	}

	return Receipt{
		TxID:       cid.NewCidV1(cid.Raw, mh).String(),
		Op:         op,
		Caller:     caller,
		GrantID:    grantID,
		ProjectIDs: projectIDs,
		AppliedAt:  rec.AppliedAt,
	}, nil
}

// Assign returns the receipt naming the records the store created.
func (r Receipt) Assign(grantID uint64, projectIDs ...uint64) Receipt {
	r.GrantID = grantID
	if len(projectIDs) > 0 {
		r.ProjectIDs = projectIDs
	}
	return r
}
