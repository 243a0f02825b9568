package controllers

import (
	"errors"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"

	"intake-app/journal"
	"intake-app/recordstore"
	"intake-app/scan"
)

// StockIntakeController drives the stock-creation scope: a flat ledger of
// barcodes where every rescan counts more pieces (increment-on-rescan).
// Authenticated route; the caller's bearer token is forwarded on submit.
type StockIntakeController struct {
	Manager *scan.Manager
	Store   *recordstore.Client
	Journal *journal.Journal
}

func NewStockIntakeController(manager *scan.Manager, store *recordstore.Client, j *journal.Journal) *StockIntakeController {
	return &StockIntakeController{Manager: manager, Store: store, Journal: j}
}

func (c *StockIntakeController) CreateSession(ctx *fiber.Ctx) error {
	var input struct {
		Date         string `json:"date" validate:"required"`
		Counterparty string `json:"counterparty"`
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
		scan.Config{Policy: scan.MergeIncrement},
		scan.Header{
			Date:         input.Date,
			Counterparty: input.Counterparty,
			Reference:    input.Reference,
			Remarks:      input.Remarks,
		},
	)

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session created", "data": session.View()})
}

// Scan accepts one barcode. Each scan counts one piece unless the scanner
// payload carries an explicit quantity.
func (c *StockIntakeController) Scan(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	var input struct {
		Barcode  string `json:"barcode"`
		Quantity int    `json:"quantity"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	result, err := session.ScanCode(ctx.UserContext(), input.Barcode, quantity)
	if err != nil {
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	journalScanResult(c.Journal, session, "stock_intake", 0, quantity, currentUserID(ctx), result)

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Scan processed", "data": result})
}

// EditQuantity corrects a line after a miscount.
func (c *StockIntakeController) EditQuantity(ctx *fiber.Ctx) error {
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

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Quantity updated", "data": session.View()})
}

func (c *StockIntakeController) RemoveLine(ctx *fiber.Ctx) error {
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

func (c *StockIntakeController) GetSession(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session found", "data": session.View()})
}

func (c *StockIntakeController) Submit(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	view := session.View()
	submitErr := session.Submit(ctx.UserContext(), c.Store.WithToken(bearerToken(ctx)))

	c.Journal.RecordSubmission(journal.SubmissionLog{
		SessionID:  session.IDString(),
		Scope:      "stock_intake",
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
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Stock submitted"})
}

func (c *StockIntakeController) Discard(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	c.Manager.Discard(session.ID())
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session discarded"})
}
