package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"intake-app/journal"
	"intake-app/scan"
)

// sessionFromParam resolves the :id route parameter against the registry.
func sessionFromParam(manager *scan.Manager, ctx *fiber.Ctx) (*scan.Session, error) {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session ID")
	}
	session, ok := manager.Get(id)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return session, nil
}

// currentUserID returns the authenticated user, or 0 on guest routes.
func currentUserID(ctx *fiber.Ctx) int {
	if v, ok := ctx.Locals("userID").(float64); ok {
		return int(v)
	}
	return 0
}

// bearerToken returns the caller's own token for forwarding, if any.
func bearerToken(ctx *fiber.Ctx) string {
	if v, ok := ctx.Locals("bearerToken").(string); ok {
		return v
	}
	return ""
}

// scanStatus maps engine errors on the scan path to HTTP statuses.
func scanStatus(err error) int {
	switch err {
	case scan.ErrFieldBusy, scan.ErrSubmitPending:
		return fiber.StatusConflict
	case scan.ErrSessionClosed:
		return fiber.StatusGone
	default:
		return fiber.StatusBadRequest
	}
}

// journalScanResult records every accepted and rejected candidate of one
// scan call. Advisory, never fails the request.
func journalScanResult(j *journal.Journal, session *scan.Session, scope string, boxNo, quantity, userID int, res scan.ScanResult) {
	for _, code := range res.Accepted {
		j.RecordScan(journal.ScanEvent{
			SessionID: session.IDString(),
			Scope:     scope,
			Code:      code,
			Outcome:   "accepted",
			Quantity:  quantity,
			BoxNo:     boxNo,
			CreatedBy: userID,
		})
	}
	for _, rej := range res.Rejected {
		j.RecordScan(journal.ScanEvent{
			SessionID: session.IDString(),
			Scope:     scope,
			Code:      rej.Code,
			Outcome:   "rejected",
			Reason:    rej.Reason,
			BoxNo:     boxNo,
			CreatedBy: userID,
		})
	}
}
