package controllers

import (
	"errors"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"

	"intake-app/journal"
	"intake-app/recordstore"
	"intake-app/scan"
)

// OrderFormController drives the public order-form scope: a flat ledger of
// SKU/quantity lines with prompt-and-replace merge semantics and no remote
// existence check. Guest route, submissions go out with the configured
// service token.
type OrderFormController struct {
	Manager *scan.Manager
	Store   *recordstore.Client
	Journal *journal.Journal
}

func NewOrderFormController(manager *scan.Manager, store *recordstore.Client, j *journal.Journal) *OrderFormController {
	return &OrderFormController{Manager: manager, Store: store, Journal: j}
}

func (c *OrderFormController) CreateSession(ctx *fiber.Ctx) error {
	var input struct {
		Date         string `json:"date" validate:"required"`
		Counterparty string `json:"counterparty" validate:"required"`
		Reference    string `json:"reference"`
		Remarks      string `json:"remarks"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session := c.Manager.Create(
		scan.Config{Policy: scan.MergeReplace},
		scan.Header{
			Date:         input.Date,
			Counterparty: input.Counterparty,
			Reference:    input.Reference,
			Remarks:      input.Remarks,
		},
	)

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session created", "data": session.View()})
}

// Scan accepts one SKU with the quantity confirmed in the dialog. When the
// client omits the quantity, a rescan keeps the line's previous value (the
// dialog default) and a first scan counts one piece.
func (c *OrderFormController) Scan(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	var input struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
		if ready, _ := scan.Normalize(input.Code, 0); len(ready) == 1 {
			if line, ok := session.LedgerLine(ready[0]); ok {
				quantity = line.Quantity
			}
		}
	}

	result, err := session.ScanCode(ctx.UserContext(), input.Code, quantity)
	if err != nil {
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	journalScanResult(c.Journal, session, "order_form", 0, quantity, currentUserID(ctx), result)

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Scan processed", "data": result})
}

func (c *OrderFormController) AddLine(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	ordinal, err := session.AddLine()
	if err != nil {
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Line added", "data": fiber.Map{"ordinal": ordinal}})
}

func (c *OrderFormController) EditLine(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	ordinal, err := ctx.ParamsInt("ordinal")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ordinal"})
	}

	var input struct {
		Identity string `json:"identity"`
		Quantity int    `json:"quantity"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := session.EditLine(ordinal, input.Identity, input.Quantity); err != nil {
		if errors.Is(err, scan.ErrLineNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Line updated", "data": session.View()})
}

func (c *OrderFormController) RemoveLine(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	ordinal, err := ctx.ParamsInt("ordinal")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ordinal"})
	}

	if err := session.RemoveLineOrdinal(ordinal); err != nil {
		if errors.Is(err, scan.ErrLineNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Line removed", "data": session.View()})
}

func (c *OrderFormController) GetSession(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session found", "data": session.View()})
}

func (c *OrderFormController) Submit(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	view := session.View()
	submitErr := session.Submit(ctx.UserContext(), c.Store)

	c.Journal.RecordSubmission(journal.SubmissionLog{
		SessionID:  session.IDString(),
		Scope:      "order_form",
		Reference:  view.Header.Reference,
		LineCount:  view.Totals.DistinctLines,
		TotalQty:   view.Totals.TotalQuantity,
		Success:    submitErr == nil,
		FailReason: errString(submitErr),
		CreatedBy:  currentUserID(ctx),
	})

	if submitErr != nil {
		return submitError(ctx, submitErr)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Order submitted"})
}

func (c *OrderFormController) Discard(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	c.Manager.Discard(session.ID())
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session discarded"})
}

// submitError classifies a submit failure: precondition violations are the
// caller's problem, everything else is the remote API's.
func submitError(ctx *fiber.Ctx, err error) error {
	switch err {
	case scan.ErrEmptyLedger, scan.ErrEmptyIdentity:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "message": err.Error()})
	case scan.ErrSubmitPending:
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case scan.ErrSessionClosed:
		return ctx.Status(fiber.StatusGone).JSON(fiber.Map{"error": err.Error()})
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error(), "message": "Submission failed, session preserved for retry"})
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
