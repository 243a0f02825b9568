package scan

import (
	"context"
	"strconv"
	"strings"
)

// Header is the non-ledger metadata attached to a scan session. The engine
// treats it as an opaque payload merged into the final submission, except
// that WorkOrderNo scopes the remote existence check and CapacityPcs acts
// as the hard ceiling for partitioned scopes.
type Header struct {
	Date          string `json:"date"`
	Counterparty  string `json:"counterparty"`
	Reference     string `json:"reference"`
	Remarks       string `json:"remarks"`
	WorkOrderNo   string `json:"work_order_no"`
	CapacityBoxes int    `json:"capacity_boxes"`
	CapacityPcs   int    `json:"capacity_pcs"`
}

// FlatItem is one line of a flat-scope wire payload.
type FlatItem struct {
	Identity string `json:"identity"`
	Quantity int    `json:"quantity"`
}

// BoxRow is one partition of a partitioned-scope wire payload: the box
// ordinal plus its raw codes flattened into a single comma-delimited field.
type BoxRow struct {
	BoxNo    int    `json:"box_no"`
	Name     string `json:"name"`
	Barcodes string `json:"barcodes"`
}

// Payload is the assembled wire format handed to the remote bulk-create
// endpoint in a single all-or-nothing call.
type Payload struct {
	SessionID string     `json:"session_id"`
	Header    Header     `json:"header"`
	Items     []FlatItem `json:"items,omitempty"`
	Boxes     []BoxRow   `json:"boxes,omitempty"`
}

// Submitter issues the assembled payload to the remote record API. An
// application-level failure response is returned as an error; the caller
// leaves the scope untouched so the user may retry.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) error
}

// assembleFlat validates and flattens a flat ledger. The ledger must be
// non-empty and no line may have an empty identity; violations are local
// errors and no network call is issued.
func assembleFlat(sessionID int64, header Header, ledger *Ledger) (Payload, error) {
	if ledger.Len() == 0 {
		return Payload{}, ErrEmptyLedger
	}
	items := make([]FlatItem, 0, ledger.Len())
	for _, line := range ledger.Lines() {
		if line.Identity == "" {
			return Payload{}, ErrEmptyIdentity
		}
		items = append(items, FlatItem{Identity: line.Identity, Quantity: line.Quantity})
	}
	return Payload{
		SessionID: strconv.FormatInt(sessionID, 10),
		Header:    header,
		Items:     items,
	}, nil
}

// assemblePartitioned validates and flattens a partitioned ledger. Boxes
// that are still empty are skipped; at least one code must be present.
func assemblePartitioned(sessionID int64, header Header, parts *PartitionedLedger) (Payload, error) {
	if parts.TotalCodes() == 0 {
		return Payload{}, ErrEmptyLedger
	}
	var rows []BoxRow
	for _, box := range parts.Boxes() {
		if len(box.Codes) == 0 {
			continue
		}
		rows = append(rows, BoxRow{
			BoxNo:    box.Ordinal,
			Name:     box.Name,
			Barcodes: strings.Join(box.Codes, ","),
		})
	}
	return Payload{
		SessionID: strconv.FormatInt(sessionID, 10),
		Header:    header,
		Boxes:     rows,
	}, nil
}
